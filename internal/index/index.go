// Package index implements the in-memory vector index over permit passages.
//
// The corpus is small (at most a few thousand passages), so search is an
// exact exhaustive scan with cosine similarity. An approximate structure
// would add tuning surface without a measurable win at this scale.
package index

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/district-tools/permitnav/internal/domain"
	"github.com/district-tools/permitnav/internal/domain/passage"
)

// Entry is one (passage, vector) pair fed into Build.
type Entry struct {
	Passage passage.Passage
	Vector  []float32
}

// Hit is one ranked search result.
type Hit struct {
	Passage passage.Passage
	Score   float64
}

// Index is an immutable snapshot of one corpus version. Search is a pure
// read; a built index is safe for concurrent use without locking.
type Index struct {
	entries       []Entry
	dimensions    int
	corpusVersion string
	builtAt       time.Time
}

// Build creates an index from entries. All vectors must share one dimension.
func Build(entries []Entry, corpusVersion string, builtAt time.Time) (*Index, error) {
	dims := 0
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return nil, fmt.Errorf("%w: entry %d (%s) has an empty vector",
				domain.ErrDimensionMismatch, i, e.Passage.ID())
		}
		if dims == 0 {
			dims = len(e.Vector)
			continue
		}
		if len(e.Vector) != dims {
			return nil, fmt.Errorf("%w: entry %d (%s) has dimension %d, want %d",
				domain.ErrDimensionMismatch, i, e.Passage.ID(), len(e.Vector), dims)
		}
	}

	snapshot := make([]Entry, len(entries))
	copy(snapshot, entries)

	return &Index{
		entries:       snapshot,
		dimensions:    dims,
		corpusVersion: corpusVersion,
		builtAt:       builtAt.UTC(),
	}, nil
}

// Size returns the number of stored passages.
func (idx *Index) Size() int { return len(idx.entries) }

// Dimensions returns the vector dimension shared by all entries.
func (idx *Index) Dimensions() int { return idx.dimensions }

// CorpusVersion returns the corpus version tag this index was built from.
func (idx *Index) CorpusVersion() string { return idx.corpusVersion }

// BuiltAt returns the build timestamp.
func (idx *Index) BuiltAt() time.Time { return idx.builtAt }

// Entries returns the stored entries in build order.
func (idx *Index) Entries() []Entry { return idx.entries }

// Search returns the min(k, size) most similar passages, descending by
// cosine similarity, ties broken ascending by passage ID so ranking is
// deterministic.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(idx.entries) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
			domain.ErrDimensionMismatch, len(query), idx.dimensions)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if k > len(idx.entries) {
		k = len(idx.entries)
	}

	hits := make([]Hit, len(idx.entries))
	for i, e := range idx.entries {
		hits[i] = Hit{Passage: e.Passage, Score: cosineSimilarity(query, e.Vector)}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Passage.ID() < hits[j].Passage.ID()
	})

	return hits[:k], nil
}

// cosineSimilarity divides the dot product by both norms explicitly —
// stored vectors are not assumed pre-normalized. Zero-norm input scores 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
