// Package query implements the online answer pipeline: validate, admit,
// embed, search, assemble context, generate, attach sources.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/district-tools/permitnav/internal/domain"
	"github.com/district-tools/permitnav/internal/domain/answer"
	"github.com/district-tools/permitnav/internal/index"
	"github.com/district-tools/permitnav/internal/metrics"
	"github.com/district-tools/permitnav/internal/retry"
)

const contextSeparator = "\n\n---\n\n"

// Options are the immutable retrieval parameters, fixed at process start.
type Options struct {
	TopK            int
	MaxContextChars int
	MaxQuestionLen  int
	CallTimeout     time.Duration
	Retry           retry.Policy
}

// Service answers free-text questions against the permit index.
type Service struct {
	indexes  IndexProvider
	guard    Admitter
	embedder domain.Embedder
	gen      domain.Generator
	opts     Options
	logger   *zap.Logger
}

// New creates a query service.
func New(
	indexes IndexProvider,
	guard Admitter,
	embedder domain.Embedder,
	gen domain.Generator,
	opts Options,
	logger *zap.Logger,
) *Service {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MaxQuestionLen <= 0 {
		opts.MaxQuestionLen = 500
	}
	return &Service{
		indexes:  indexes,
		guard:    guard,
		embedder: embedder,
		gen:      gen,
		opts:     opts,
		logger:   logger,
	}
}

// Answer runs the full pipeline for one question. Validation and the quota
// check happen before any paid call; the quota reservation at admit time is
// the single counter increment for the query.
func (s *Service) Answer(ctx context.Context, question string) (answer.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		return answer.Answer{}, fmt.Errorf("%w: question is empty", domain.ErrInvalidQuery)
	}
	if len(question) > s.opts.MaxQuestionLen {
		metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		return answer.Answer{}, fmt.Errorf("%w: question exceeds %d characters",
			domain.ErrInvalidQuery, s.opts.MaxQuestionLen)
	}

	admitted, err := s.guard.Admit(ctx)
	if err != nil {
		return answer.Answer{}, err
	}
	if !admitted {
		metrics.QueriesTotal.WithLabelValues("quota_denied").Inc()
		return answer.Answer{}, domain.ErrQuotaExceeded
	}

	queryVec, err := s.embedQuestion(ctx, question)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("retrieval_failed").Inc()
		return answer.Answer{}, fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, err)
	}

	idx, err := s.indexes.Index(ctx)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("retrieval_failed").Inc()
		return answer.Answer{}, err
	}

	hits, err := idx.Search(queryVec, s.opts.TopK)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("retrieval_failed").Inc()
		return answer.Answer{}, fmt.Errorf("%w: search index: %w", domain.ErrRetrievalUnavailable, err)
	}

	contextBlock, included := s.assembleContext(hits)

	text, err := s.generate(ctx, contextBlock, question)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("generation_failed").Inc()
		return answer.Answer{}, err
	}

	metrics.QueriesTotal.WithLabelValues("answered").Inc()
	return answer.New(text, sourcesFor(included)), nil
}

// embedQuestion vectorizes the question with bounded retries. Rate limiting
// and transport failures are retryable; anything else aborts immediately.
func (s *Service) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	var vec []float32
	err := retry.Do(ctx, s.opts.Retry, embeddingRetryable, func(ctx context.Context) error {
		callCtx, cancel := s.callContext(ctx)
		defer cancel()

		res, err := s.embedder.Embed(callCtx, question)
		if err != nil {
			return fmt.Errorf("embed question: %w", err)
		}
		vec = res.Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// generate invokes the generation service with bounded retries. A failure
// after retries surfaces as a typed error, never as an empty answer.
func (s *Service) generate(ctx context.Context, contextBlock, question string) (string, error) {
	var text string
	err := retry.Do(ctx, s.opts.Retry, generationRetryable, func(ctx context.Context) error {
		callCtx, cancel := s.callContext(ctx)
		defer cancel()

		res, err := s.gen.Generate(callCtx, instructions, contextBlock, question)
		if err != nil {
			return fmt.Errorf("generate answer: %w", err)
		}
		text = res.Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// assembleContext joins the ranked passages, labeled with their source, into
// one block bounded by MaxContextChars. Passages that don't fit are dropped
// whole, lowest-ranked first. The returned hits are exactly those whose text
// was sent — sources are derived from them, not from the raw retrieval.
func (s *Service) assembleContext(hits []index.Hit) (string, []index.Hit) {
	var b strings.Builder
	var included []index.Hit

	for _, h := range hits {
		block := fmt.Sprintf("Source: %s (%s)\n%s", h.Passage.RecordName(), h.Passage.Agency(), h.Passage.Text())

		projected := b.Len() + len(block)
		if b.Len() > 0 {
			projected += len(contextSeparator)
		}
		// The top passage always goes in: a context bound tighter than a
		// single passage must not produce an empty context.
		if s.opts.MaxContextChars > 0 && projected > s.opts.MaxContextChars && len(included) > 0 {
			break
		}

		if b.Len() > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(block)
		included = append(included, h)
	}

	return b.String(), included
}

// sourcesFor deduplicates included passages by record, keeping rank order
// and each record's best score.
func sourcesFor(included []index.Hit) []answer.Source {
	seen := make(map[string]struct{}, len(included))
	var sources []answer.Source
	for _, h := range included {
		p := h.Passage
		if _, ok := seen[p.RecordID()]; ok {
			continue
		}
		seen[p.RecordID()] = struct{}{}
		sources = append(sources, answer.NewSource(
			p.RecordID(), p.RecordName(), p.Agency(), roundScore(h.Score),
		))
	}
	return sources
}

func roundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.CallTimeout)
}

func embeddingRetryable(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, domain.ErrEmbeddingRateLimited)
}

func generationRetryable(err error) bool {
	return errors.Is(err, domain.ErrGenerationUnavailable)
}
