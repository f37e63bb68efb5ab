package artifact

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func TestLocal_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(filepath.Join(dir, "embeddings"))
	ctx := context.Background()

	vectors := []byte{1, 2, 3, 4}
	meta := []byte(`{"passages":[]}`)

	if err := store.Save(ctx, vectors, meta); err != nil {
		t.Fatalf("Save: %v", err)
	}

	gotVectors, gotMeta, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(gotVectors, vectors) {
		t.Errorf("vectors mismatch: %v", gotVectors)
	}
	if !bytes.Equal(gotMeta, meta) {
		t.Errorf("meta mismatch: %s", gotMeta)
	}
}

func TestLocal_Overwrite(t *testing.T) {
	store := NewLocal(t.TempDir())
	ctx := context.Background()

	if err := store.Save(ctx, []byte("old"), []byte("old-meta")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, []byte("new"), []byte("new-meta")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	vectors, meta, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(vectors) != "new" || string(meta) != "new-meta" {
		t.Errorf("expected the second artifact, got %s / %s", vectors, meta)
	}
}

func TestLocal_LoadMissing(t *testing.T) {
	store := NewLocal(filepath.Join(t.TempDir(), "never-built"))

	if _, _, err := store.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}
