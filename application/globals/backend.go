package globals

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"liberandum-backend/infrastructure/persistence/abstractions"
	"liberandum-backend/pkg/observability"

	"go.uber.org/zap"
)

// EntryStore is the narrow keyed surface the snapshot cache needs from a
// store. Get returns nil when the key is absent.
type EntryStore interface {
	Get(ctx context.Context, key string) (abstractions.Record, error)
	Create(ctx context.Context, entry abstractions.Record, autoID bool) (abstractions.Record, error)
	Update(ctx context.Context, key string, entry abstractions.Record) (abstractions.Record, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// RepositoryStore adapts a generic repository to EntryStore
type RepositoryStore struct {
	repo abstractions.Repository
}

// NewRepositoryStore wraps repo
func NewRepositoryStore(repo abstractions.Repository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) Get(ctx context.Context, key string) (abstractions.Record, error) {
	return s.repo.GetByID(ctx, key)
}

func (s *RepositoryStore) Create(ctx context.Context, entry abstractions.Record, autoID bool) (abstractions.Record, error) {
	return s.repo.Create(ctx, entry, autoID)
}

func (s *RepositoryStore) Update(ctx context.Context, key string, entry abstractions.Record) (abstractions.Record, error) {
	return s.repo.UpdateByID(ctx, key, entry)
}

func (s *RepositoryStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.repo.DeleteByID(ctx, key)
}

// BackendState is which store the cache is using
type BackendState int32

const (
	StateUnprobed BackendState = iota
	StatePrimary
	StateFallback
)

func (s BackendState) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateFallback:
		return "fallback"
	default:
		return "unprobed"
	}
}

// backendSelector moves Unprobed -> Primary -> Fallback. The switch to the
// fallback is one-way for the life of the process.
type backendSelector struct {
	primary  EntryStore
	fallback EntryStore
	probeKey string

	state   atomic.Int32
	probeMu sync.Mutex

	logger  *zap.Logger
	metrics *observability.Collector
}

func newBackendSelector(primary, fallback EntryStore, probeKey string, logger *zap.Logger, metrics *observability.Collector) *backendSelector {
	return &backendSelector{
		primary:  primary,
		fallback: fallback,
		probeKey: probeKey,
		logger:   logger,
		metrics:  metrics,
	}
}

func (b *backendSelector) current() BackendState {
	return BackendState(b.state.Load())
}

// active returns the store to use, probing the primary on first use
func (b *backendSelector) active(ctx context.Context) (EntryStore, BackendState) {
	switch b.current() {
	case StatePrimary:
		return b.primary, StatePrimary
	case StateFallback:
		return b.fallback, StateFallback
	}

	b.probeMu.Lock()
	defer b.probeMu.Unlock()

	// another caller may have finished the probe while we waited
	switch b.current() {
	case StatePrimary:
		return b.primary, StatePrimary
	case StateFallback:
		return b.fallback, StateFallback
	}

	if b.primary == nil {
		b.demote("probe", nil)
		return b.fallback, StateFallback
	}
	if _, err := b.primary.Get(ctx, b.probeKey); err != nil {
		if errors.Is(err, context.Canceled) {
			// the caller went away; probe again on the next use
			return b.primary, StateUnprobed
		}
		b.demote("probe", err)
		return b.fallback, StateFallback
	}

	b.state.Store(int32(StatePrimary))
	b.logger.Info("Snapshot cache using primary store")
	return b.primary, StatePrimary
}

func (b *backendSelector) demote(op string, cause error) {
	if BackendState(b.state.Swap(int32(StateFallback))) == StateFallback {
		return
	}
	b.metrics.RecordCacheFailover()
	b.logger.Warn("Snapshot cache switched to fallback store",
		zap.String("operation", op),
		zap.Error(cause),
	)
}

// run executes fn on the active store. A primary failure demotes the cache
// and fn is retried once on the fallback. A cancelled caller is not a
// primary failure.
func (b *backendSelector) run(ctx context.Context, op string, fn func(EntryStore) error) error {
	store, state := b.active(ctx)
	err := fn(store)
	if err == nil || state == StateFallback {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	b.demote(op, err)
	return fn(b.fallback)
}
