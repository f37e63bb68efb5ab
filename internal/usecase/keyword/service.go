// Package keyword implements a term-overlap fallback search over raw permit
// records. It needs no embedding provider and no quota, so it stays available
// when the vector pipeline is down or the daily ceiling is spent.
package keyword

import (
	"sort"
	"strings"

	"github.com/district-tools/permitnav/internal/corpus"
	"github.com/district-tools/permitnav/internal/domain/record"
)

// DefaultLimit caps how many matches a search returns.
const DefaultLimit = 10

// Match is one scored permit record.
type Match struct {
	Record record.Record
	Score  float64
}

// Service scans the loaded corpus for term overlap.
type Service struct {
	corpus *corpus.Corpus
	limit  int
}

// New creates a keyword search service over a loaded corpus.
func New(c *corpus.Corpus) *Service {
	return &Service{corpus: c, limit: DefaultLimit}
}

// WithLimit returns a copy of the service with a different result cap.
// The copy keeps per-request limits from racing each other.
func (s *Service) WithLimit(n int) *Service {
	if n <= 0 {
		return s
	}
	c := *s
	c.limit = n
	return &c
}

// Search scores every record by the fraction of query terms found in its
// searchable text. Records with no overlap are excluded. Ties break on
// record id for a stable order.
func (s *Service) Search(query string) []Match {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	var matches []Match
	for _, r := range s.corpus.Records() {
		haystack := searchableText(&r)
		overlap := 0
		for _, t := range terms {
			if strings.Contains(haystack, t) {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		matches = append(matches, Match{
			Record: r,
			Score:  float64(overlap) / float64(len(terms)),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.ID() < matches[j].Record.ID()
	})
	if len(matches) > s.limit {
		matches = matches[:s.limit]
	}
	return matches
}

func searchableText(r *record.Record) string {
	parts := []string{
		r.Name(), r.Category(), r.Description(),
		r.Requirements(), r.HowToApply(), r.Notes(),
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// tokenize lowercases and splits the query, dropping punctuation and terms
// too short to carry meaning.
func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var terms []string
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
