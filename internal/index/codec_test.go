package index

import (
	"errors"
	"testing"
	"time"

	"github.com/district-tools/permitnav/internal/domain"
)

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	builtAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	idx, err := Build([]Entry{
		entry("a:000", 0.1, 0.2, 0.3),
		entry("b:000", -0.4, 0.5, -0.6),
	}, "abc123def456", builtAt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	vectors, meta, err := idx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	got, err := Deserialize(vectors, meta)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if got.Size() != 2 || got.Dimensions() != 3 {
		t.Errorf("got %d passages, %d dims", got.Size(), got.Dimensions())
	}
	if got.CorpusVersion() != "abc123def456" {
		t.Errorf("corpus version %q", got.CorpusVersion())
	}
	if !got.BuiltAt().Equal(builtAt) {
		t.Errorf("built at %v, want %v", got.BuiltAt(), builtAt)
	}

	for i, e := range got.Entries() {
		orig := idx.Entries()[i]
		if e.Passage.ID() != orig.Passage.ID() {
			t.Errorf("entry %d id %q, want %q", i, e.Passage.ID(), orig.Passage.ID())
		}
		if e.Passage.Text() != orig.Passage.Text() {
			t.Errorf("entry %d text mismatch", i)
		}
		for j := range e.Vector {
			if e.Vector[j] != orig.Vector[j] {
				t.Errorf("entry %d vector[%d] = %v, want %v", i, j, e.Vector[j], orig.Vector[j])
			}
		}
	}
}

func TestDeserialize_TruncatedVectors(t *testing.T) {
	idx, _ := Build([]Entry{entry("a", 1, 2, 3)}, "v", time.Now())
	vectors, meta, err := idx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	_, err = Deserialize(vectors[:len(vectors)-4], meta)
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestDeserialize_ShortHeader(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3}, []byte("{}"))
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestDeserialize_MetaVectorCountMismatch(t *testing.T) {
	one, _ := Build([]Entry{entry("a", 1, 2)}, "v", time.Now())
	two, _ := Build([]Entry{entry("a", 1, 2), entry("b", 3, 4)}, "v", time.Now())

	vectors, _, err := one.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	_, meta, err := two.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	_, err = Deserialize(vectors, meta)
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestDeserialize_MalformedMeta(t *testing.T) {
	idx, _ := Build([]Entry{entry("a", 1, 2)}, "v", time.Now())
	vectors, _, err := idx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	_, err = Deserialize(vectors, []byte("not json"))
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}
