// Package warm keeps the deserialized vector index in process memory.
//
// Cold start pays the artifact load once; every later request within the
// process lifetime reuses the in-memory index. The manager also pins the
// index to the deployed corpus version: an artifact left over from a
// previous deploy is rejected and reloaded rather than silently served.
package warm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/district-tools/permitnav/internal/domain"
	"github.com/district-tools/permitnav/internal/index"
	"github.com/district-tools/permitnav/internal/repository/artifact"
)

// Manager loads the index artifact once and serves the in-memory instance.
type Manager struct {
	store           artifact.Store
	expectedVersion string // empty accepts any version
	logger          *zap.Logger

	mu  sync.Mutex
	idx *index.Index
}

// NewManager creates a warm-state manager over an artifact store.
func NewManager(store artifact.Store, expectedVersion string, logger *zap.Logger) *Manager {
	return &Manager{store: store, expectedVersion: expectedVersion, logger: logger}
}

// Index returns the warm in-memory index, loading it on first use. A cached
// index whose corpus version no longer matches the deployed version is
// discarded and loaded fresh.
func (m *Manager) Index(ctx context.Context) (*index.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idx != nil {
		if m.versionMatches(m.idx) {
			return m.idx, nil
		}
		m.logger.Warn("Cached index is stale, reloading",
			zap.String("cached_version", m.idx.CorpusVersion()),
			zap.String("expected_version", m.expectedVersion),
		)
		m.idx = nil
	}

	idx, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	m.idx = idx
	return idx, nil
}

func (m *Manager) load(ctx context.Context) (*index.Index, error) {
	vectors, meta, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load index artifact: %w", err)
	}

	idx, err := index.Deserialize(vectors, meta)
	if err != nil {
		return nil, fmt.Errorf("deserialize index: %w", err)
	}

	if !m.versionMatches(idx) {
		return nil, fmt.Errorf("%w: artifact version %q, deployed version %q",
			domain.ErrIndexStale, idx.CorpusVersion(), m.expectedVersion)
	}

	m.logger.Info("Index loaded",
		zap.Int("passages", idx.Size()),
		zap.Int("dimensions", idx.Dimensions()),
		zap.String("corpus_version", idx.CorpusVersion()),
	)
	return idx, nil
}

// Ready reports whether the index can be served, loading it if necessary.
func (m *Manager) Ready(ctx context.Context) error {
	_, err := m.Index(ctx)
	return err
}

func (m *Manager) versionMatches(idx *index.Index) bool {
	return m.expectedVersion == "" || idx.CorpusVersion() == m.expectedVersion
}
