// Package indexer builds the vector index artifact from a corpus file.
//
// The build is offline and all-or-nothing: a single passage whose embedding
// fails after retries aborts the run. A partial index that silently omits
// permits is worse than a failed build.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/district-tools/permitnav/internal/chunker"
	"github.com/district-tools/permitnav/internal/corpus"
	"github.com/district-tools/permitnav/internal/domain"
	"github.com/district-tools/permitnav/internal/domain/passage"
	"github.com/district-tools/permitnav/internal/index"
	"github.com/district-tools/permitnav/internal/repository/artifact"
	"github.com/district-tools/permitnav/internal/retry"
)

// DefaultBatchSize bounds how many passages go into one embedding request.
const DefaultBatchSize = 32

// Service orchestrates chunking, embedding, index build, and persistence.
type Service struct {
	chunker   *chunker.Chunker
	embedder  domain.Embedder
	store     artifact.Store
	batchSize int
	retry     retry.Policy
	now       func() time.Time
	logger    *zap.Logger
}

// New creates an indexer service.
func New(
	ch *chunker.Chunker,
	embedder domain.Embedder,
	store artifact.Store,
	logger *zap.Logger,
) *Service {
	return &Service{
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		batchSize: DefaultBatchSize,
		retry:     retry.Default,
		now:       time.Now,
		logger:    logger,
	}
}

// WithBatchSize overrides the embedding batch size.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithRetryPolicy overrides the embedding retry policy.
func (s *Service) WithRetryPolicy(p retry.Policy) *Service {
	s.retry = p
	return s
}

// Build chunks every record, embeds the passages in batches, builds the
// index, and persists the artifact pair. Rebuilding an unchanged corpus is
// idempotent in passage set and corpus version; vector values may vary with
// provider nondeterminism.
func (s *Service) Build(ctx context.Context, c *corpus.Corpus) (*index.Index, error) {
	passages := s.chunkAll(c)
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: corpus produced no passages", domain.ErrCorpusInvalid)
	}
	s.logger.Info("Corpus chunked",
		zap.Int("records", len(c.Records())),
		zap.Int("passages", len(passages)),
		zap.String("corpus_version", c.Version()),
	)

	vectors, err := s.embedAll(ctx, passages)
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w", err)
	}

	entries := make([]index.Entry, len(passages))
	for i := range passages {
		entries[i] = index.Entry{Passage: passages[i], Vector: vectors[i]}
	}

	idx, err := index.Build(entries, c.Version(), s.now())
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	vecData, metaData, err := idx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize index: %w", err)
	}

	// Round-trip check before publishing: a build that cannot be read back
	// must never replace a working artifact.
	if _, err := index.Deserialize(vecData, metaData); err != nil {
		return nil, fmt.Errorf("verify serialized index: %w", err)
	}

	if err := s.store.Save(ctx, vecData, metaData); err != nil {
		return nil, fmt.Errorf("persist index artifact: %w", err)
	}

	s.logger.Info("Index artifact published",
		zap.Int("passages", idx.Size()),
		zap.Int("dimensions", idx.Dimensions()),
		zap.String("corpus_version", idx.CorpusVersion()),
	)
	return idx, nil
}

func (s *Service) chunkAll(c *corpus.Corpus) []passage.Passage {
	var passages []passage.Passage
	for _, r := range c.Records() {
		agency, _ := c.Agency(r.AgencyID()) // reference validated at corpus load
		passages = append(passages, s.chunker.Chunk(r, agency)...)
	}
	return passages
}

// embedAll embeds passages batch by batch with bounded retries per batch.
func (s *Service) embedAll(ctx context.Context, passages []passage.Passage) ([][]float32, error) {
	vectors := make([][]float32, 0, len(passages))

	for start := 0; start < len(passages); start += s.batchSize {
		end := start + s.batchSize
		if end > len(passages) {
			end = len(passages)
		}
		texts := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			texts = append(texts, p.Text())
		}

		batch, err := s.embedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end-1, err)
		}
		vectors = append(vectors, batch...)

		s.logger.Info("Embedded batch",
			zap.Int("done", len(vectors)),
			zap.Int("total", len(passages)),
		)
	}

	return vectors, nil
}

func (s *Service) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32
	err := retry.Do(ctx, s.retry, batchRetryable, func(ctx context.Context) error {
		var res domain.BatchEmbeddingResult
		var err error
		if be, ok := s.embedder.(domain.BatchEmbedder); ok {
			res, err = be.BatchEmbed(ctx, texts)
		} else {
			res, err = domain.BatchFallback(ctx, s.embedder, texts)
		}
		if err != nil {
			return err
		}
		embeddings = res.Embeddings
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts",
			domain.ErrEmbeddingUnavailable, len(embeddings), len(texts))
	}
	return embeddings, nil
}

func batchRetryable(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, domain.ErrEmbeddingRateLimited)
}
