// Package corpus loads and validates the permit corpus file.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/district-tools/permitnav/internal/domain"
	"github.com/district-tools/permitnav/internal/domain/record"
)

// Corpus is one immutable version of the permit database.
type Corpus struct {
	version  string
	records  []record.Record
	agencies map[string]record.Agency
}

// Version returns the corpus version tag, derived from the file contents.
func (c *Corpus) Version() string { return c.version }

// Records returns the permit records in file order.
func (c *Corpus) Records() []record.Record { return c.records }

// Agency resolves an agency by id.
func (c *Corpus) Agency(id string) (record.Agency, bool) {
	a, ok := c.agencies[id]
	return a, ok
}

// permitDTO mirrors one permit entry in permits.json.
type permitDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Agency         string   `json:"agency"`
	Description    string   `json:"description"`
	Requirements   string   `json:"requirements,omitempty"`
	Fees           string   `json:"fees,omitempty"`
	ProcessingTime string   `json:"processing_time,omitempty"`
	HowToApply     string   `json:"how_to_apply,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	ApplyURL       string   `json:"apply_url,omitempty"`
	RelatedPermits []string `json:"related_permits,omitempty"`
}

type agencyDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Formerly string `json:"formerly,omitempty"`
}

type fileDTO struct {
	Agencies []agencyDTO `json:"agencies"`
	Permits  []permitDTO `json:"permits"`
}

// Load reads a corpus file, validates it, and tags it with a version derived
// from a hash of the raw bytes. Loading the same file twice yields the same
// version tag.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Corpus from raw permits.json bytes.
func Parse(data []byte) (*Corpus, error) {
	var f fileDTO
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse corpus: %v", domain.ErrCorpusInvalid, err)
	}
	if len(f.Permits) == 0 {
		return nil, fmt.Errorf("%w: corpus has no permits", domain.ErrCorpusInvalid)
	}

	agencies := make(map[string]record.Agency, len(f.Agencies))
	for _, a := range f.Agencies {
		ag, err := record.NewAgency(a.ID, a.Name, a.Formerly)
		if err != nil {
			return nil, err
		}
		if _, dup := agencies[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate agency id %q", domain.ErrCorpusInvalid, a.ID)
		}
		agencies[a.ID] = ag
	}

	records := make([]record.Record, 0, len(f.Permits))
	seen := make(map[string]struct{}, len(f.Permits))
	for _, p := range f.Permits {
		r, err := record.New(p.ID, p.Name, p.Category, p.Agency, p.Description)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate permit id %q", domain.ErrCorpusInvalid, p.ID)
		}
		seen[p.ID] = struct{}{}
		if _, ok := agencies[p.Agency]; !ok {
			return nil, fmt.Errorf("%w: permit %q references unknown agency %q",
				domain.ErrCorpusInvalid, p.ID, p.Agency)
		}
		records = append(records, r.WithOptional(
			p.Requirements, p.Fees, p.ProcessingTime, p.HowToApply, p.Notes, p.ApplyURL,
			p.RelatedPermits,
		))
	}

	return &Corpus{
		version:  VersionOf(data),
		records:  records,
		agencies: agencies,
	}, nil
}

// VersionOf derives the corpus version tag from raw corpus bytes.
func VersionOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}
