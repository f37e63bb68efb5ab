package index

import (
	"errors"
	"testing"
	"time"

	"github.com/district-tools/permitnav/internal/domain"
	"github.com/district-tools/permitnav/internal/domain/passage"
)

func entry(id string, vec ...float32) Entry {
	return Entry{
		Passage: passage.New(id, "rec-"+id, "Permit "+id, "Agency", "Cat", "text "+id),
		Vector:  vec,
	}
}

func buildIndex(t *testing.T, entries ...Entry) *Index {
	t.Helper()
	idx, err := Build(entries, "abc123def456", time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestBuild_DimensionMismatch(t *testing.T) {
	_, err := Build([]Entry{
		entry("a", 1, 0, 0),
		entry("b", 1, 0),
	}, "v", time.Now())
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBuild_EmptyVector(t *testing.T) {
	_, err := Build([]Entry{entry("a")}, "v", time.Now())
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearch_RankedByCosine(t *testing.T) {
	idx := buildIndex(t,
		entry("far", -1, 0),
		entry("near", 1, 0),
		entry("mid", 1, 1),
	)

	hits, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Passage.ID() != "near" || hits[1].Passage.ID() != "mid" || hits[2].Passage.ID() != "far" {
		t.Errorf("unexpected order: %s, %s, %s",
			hits[0].Passage.ID(), hits[1].Passage.ID(), hits[2].Passage.ID())
	}
	if hits[0].Score <= hits[1].Score || hits[1].Score <= hits[2].Score {
		t.Errorf("scores not descending: %v, %v, %v", hits[0].Score, hits[1].Score, hits[2].Score)
	}
}

func TestSearch_TieBreakByPassageID(t *testing.T) {
	// Identical vectors, identical scores: order must fall back to IDs.
	idx := buildIndex(t,
		entry("bbb", 1, 0),
		entry("aaa", 1, 0),
	)

	hits, err := idx.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Passage.ID() != "aaa" || hits[1].Passage.ID() != "bbb" {
		t.Errorf("tie not broken by id: %s, %s", hits[0].Passage.ID(), hits[1].Passage.ID())
	}
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	idx := buildIndex(t, entry("only", 1, 0))

	hits, err := idx.Search([]float32{0, 1}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit, got %d", len(hits))
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := buildIndex(t)

	_, err := idx.Search([]float32{1, 0}, 5)
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	idx := buildIndex(t, entry("a", 1, 0))

	_, err := idx.Search([]float32{1, 0, 0}, 1)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearch_ZeroNormVectorScoresZero(t *testing.T) {
	idx := buildIndex(t,
		entry("zero", 0, 0),
		entry("unit", 1, 0),
	)

	hits, err := idx.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[1].Passage.ID() != "zero" || hits[1].Score != 0 {
		t.Errorf("expected zero-norm vector last with score 0, got %s %v",
			hits[1].Passage.ID(), hits[1].Score)
	}
}
