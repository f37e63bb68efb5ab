package domain

import "errors"

var (
	// ErrInvalidQuery signals an empty or oversized question.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrQuotaExceeded signals the daily query ceiling has been reached.
	ErrQuotaExceeded = errors.New("daily query quota exceeded")
	// ErrEmbeddingUnavailable signals an embedding provider transport or service failure.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrEmbeddingRateLimited signals the embedding provider is throttling.
	ErrEmbeddingRateLimited = errors.New("embedding service rate limited")
	// ErrGenerationUnavailable signals a generation provider failure after retries.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	// ErrRetrievalUnavailable signals the question could not be embedded after retries.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrDimensionMismatch signals vectors of differing dimensions.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrIndexCorrupt signals a truncated or malformed index artifact.
	ErrIndexCorrupt = errors.New("index artifact corrupt")
	// ErrEmptyIndex signals a search against an index with no entries.
	ErrEmptyIndex = errors.New("index is empty")
	// ErrIndexStale signals an artifact built from a different corpus version.
	ErrIndexStale = errors.New("index corpus version stale")
	// ErrCorpusInvalid signals a corpus file that fails validation.
	ErrCorpusInvalid = errors.New("invalid corpus")
)
