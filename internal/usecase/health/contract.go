package health

import "context"

// DBPinger checks counter-store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexChecker checks that the vector index is loaded and servable.
type IndexChecker interface {
	Ready(ctx context.Context) error
}
