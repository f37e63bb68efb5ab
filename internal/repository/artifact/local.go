package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local stores the artifact pair on the local filesystem.
type Local struct {
	dir string
}

var _ Store = (*Local)(nil)

// NewLocal creates a filesystem-backed store rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Save writes both halves via temp file + rename so a crashed build never
// leaves a partial artifact in place.
func (l *Local) Save(_ context.Context, vectors, meta []byte) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := writeAtomic(filepath.Join(l.dir, VectorsFile), vectors); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	if err := writeAtomic(filepath.Join(l.dir, MetaFile), meta); err != nil {
		return fmt.Errorf("write passages: %w", err)
	}
	return nil
}

// Load reads both halves.
func (l *Local) Load(_ context.Context) ([]byte, []byte, error) {
	vectors, err := os.ReadFile(filepath.Join(l.dir, VectorsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read vectors: %w", err)
	}
	meta, err := os.ReadFile(filepath.Join(l.dir, MetaFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read passages: %w", err)
	}
	return vectors, meta, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
