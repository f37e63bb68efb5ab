package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/district-tools/permitnav/internal/domain"
	"github.com/district-tools/permitnav/internal/domain/passage"
)

// Binary vector layout, unchanged from the deployed artifact format:
// uint32 LE count, uint32 LE dimensions, then count x dimensions float32 LE.
const vectorHeaderSize = 8

// meta mirrors the passages.json artifact half: passage metadata plus the
// corpus version tag that ties the artifact to its source records.
type meta struct {
	CorpusVersion string       `json:"corpus_version"`
	Dimensions    int          `json:"dimensions"`
	BuiltAt       time.Time    `json:"built_at"`
	Passages      []passageDTO `json:"passages"`
}

type passageDTO struct {
	ID         string `json:"id"`
	RecordID   string `json:"permit_id"`
	RecordName string `json:"permit_name"`
	Agency     string `json:"agency"`
	Category   string `json:"category,omitempty"`
	Text       string `json:"text"`
}

// Serialize renders the index as its two artifact halves: the binary vector
// file and the passage metadata JSON.
func (idx *Index) Serialize() (vectors, metaJSON []byte, err error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(idx.entries))); err != nil {
		return nil, nil, fmt.Errorf("write vector count: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(idx.dimensions)); err != nil {
		return nil, nil, fmt.Errorf("write dimensions: %w", err)
	}
	for _, e := range idx.entries {
		for _, v := range e.Vector {
			if err := binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)); err != nil {
				return nil, nil, fmt.Errorf("write vector %s: %w", e.Passage.ID(), err)
			}
		}
	}

	m := meta{
		CorpusVersion: idx.corpusVersion,
		Dimensions:    idx.dimensions,
		BuiltAt:       idx.builtAt,
		Passages:      make([]passageDTO, len(idx.entries)),
	}
	for i, e := range idx.entries {
		p := e.Passage
		m.Passages[i] = passageDTO{
			ID:         p.ID(),
			RecordID:   p.RecordID(),
			RecordName: p.RecordName(),
			Agency:     p.Agency(),
			Category:   p.Category(),
			Text:       p.Text(),
		}
	}
	metaJSON, err = json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal passages: %w", err)
	}

	return buf.Bytes(), metaJSON, nil
}

// Deserialize rebuilds an index from the artifact pair. Both halves are
// validated against each other; a truncated or inconsistent artifact is
// rejected as corrupt rather than silently shortened.
func Deserialize(vectors, metaJSON []byte) (*Index, error) {
	if len(vectors) < vectorHeaderSize {
		return nil, fmt.Errorf("%w: vector file shorter than header (%d bytes)",
			domain.ErrIndexCorrupt, len(vectors))
	}
	count := int(binary.LittleEndian.Uint32(vectors[0:4]))
	dims := int(binary.LittleEndian.Uint32(vectors[4:8]))
	if dims <= 0 {
		return nil, fmt.Errorf("%w: non-positive dimensions %d", domain.ErrIndexCorrupt, dims)
	}

	want := vectorHeaderSize + count*dims*4
	if len(vectors) != want {
		return nil, fmt.Errorf("%w: vector file is %d bytes, header implies %d",
			domain.ErrIndexCorrupt, len(vectors), want)
	}

	var m meta
	if err := json.Unmarshal(metaJSON, &m); err != nil {
		return nil, fmt.Errorf("%w: parse passages: %v", domain.ErrIndexCorrupt, err)
	}
	if m.Dimensions != dims {
		return nil, fmt.Errorf("%w: metadata dimensions %d, vector file dimensions %d",
			domain.ErrIndexCorrupt, m.Dimensions, dims)
	}
	if len(m.Passages) != count {
		return nil, fmt.Errorf("%w: %d passages for %d vectors",
			domain.ErrIndexCorrupt, len(m.Passages), count)
	}

	entries := make([]Entry, count)
	offset := vectorHeaderSize
	for i := 0; i < count; i++ {
		vec := make([]float32, dims)
		for j := 0; j < dims; j++ {
			bits := binary.LittleEndian.Uint32(vectors[offset : offset+4])
			vec[j] = math.Float32frombits(bits)
			offset += 4
		}
		p := m.Passages[i]
		entries[i] = Entry{
			Passage: passage.New(p.ID, p.RecordID, p.RecordName, p.Agency, p.Category, p.Text),
			Vector:  vec,
		}
	}

	idx, err := Build(entries, m.CorpusVersion, m.BuiltAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	return idx, nil
}
