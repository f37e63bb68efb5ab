// Package artifact persists the index artifact pair: the binary vector file
// and the passage metadata JSON. The pair is written and read as a unit.
package artifact

import "context"

// Default artifact file names, unchanged from the deployed layout.
const (
	VectorsFile = "permits.index"
	MetaFile    = "passages.json"
)

// Store reads and writes one artifact pair.
type Store interface {
	// Save persists both halves. Implementations must make the pair visible
	// atomically: a reader never observes one half from an older build.
	Save(ctx context.Context, vectors, meta []byte) error
	// Load returns both halves of the current artifact.
	Load(ctx context.Context) (vectors, meta []byte, err error)
}
