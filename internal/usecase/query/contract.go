package query

import (
	"context"

	"github.com/district-tools/permitnav/internal/index"
)

// IndexProvider serves the warm in-memory index.
type IndexProvider interface {
	Index(ctx context.Context) (*index.Index, error)
}

// Admitter is the usage guard contract.
type Admitter interface {
	Admit(ctx context.Context) (bool, error)
}
