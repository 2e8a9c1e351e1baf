package globals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"liberandum-backend/infrastructure/persistence/abstractions"
	"liberandum-backend/pkg/observability"
	"liberandum-backend/pkg/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Cache entry attributes
const (
	fieldData           = "data"
	fieldCachedAt       = "cached_at"
	fieldExpiresAt      = "expires_at"
	fieldTTLHours       = "ttl_hours"
	fieldDataSource     = "data_source"
	fieldAPICreditsUsed = "api_credits_used"
)

// Cache statuses reported by Info
const (
	StatusNoCache = "no_cache"
	StatusValid   = "valid"
	StatusExpired = "expired"
)

// payload keys that describe a cache hit and must not be persisted
var transientKeys = []string{"from_cache", "cache_created_at", "cache_expires_at"}

// CachedSnapshot is a cache hit
type CachedSnapshot struct {
	Data           json.RawMessage
	FromCache      bool
	CachedAt       time.Time
	ExpiresAt      time.Time
	DataSource     string
	APICreditsUsed int64
}

// CacheInfo describes the state of the cache entry
type CacheInfo struct {
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	CachedAt       string   `json:"cached_at,omitempty"`
	ExpiresAt      string   `json:"expires_at,omitempty"`
	TTLHours       *float64 `json:"ttl_hours,omitempty"`
	DataSource     string   `json:"data_source,omitempty"`
	APICreditsUsed int64    `json:"api_credits_used"`
	IsValid        bool     `json:"is_valid"`
	UsingFallback  bool     `json:"using_file_fallback"`
}

// CacheOption configures a SnapshotCache
type CacheOption func(*SnapshotCache)

// WithCacheClock overrides the cache clock
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *SnapshotCache) { c.now = now }
}

// SnapshotCache keeps one serialized snapshot under a fixed key with a fixed
// TTL. It reads and writes the primary store until that store fails once,
// then serves every call from the fallback store.
type SnapshotCache struct {
	backends *backendSelector
	key      string
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	metrics  *observability.Collector
}

// NewSnapshotCache creates the cache. A nil primary starts on the fallback.
func NewSnapshotCache(
	primary, fallback EntryStore,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	metrics *observability.Collector,
	opts ...CacheOption,
) *SnapshotCache {
	c := &SnapshotCache{
		backends: newBackendSelector(primary, fallback, key, logger, metrics),
		key:      key,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key
func (c *SnapshotCache) Key() string {
	return c.key
}

// TTL returns the entry lifetime
func (c *SnapshotCache) TTL() time.Duration {
	return c.ttl
}

// UsingFallback reports whether the cache has switched to the fallback store
func (c *SnapshotCache) UsingFallback() bool {
	return c.backends.current() == StateFallback
}

func (c *SnapshotCache) read(ctx context.Context, op string) (abstractions.Record, error) {
	var entry abstractions.Record
	err := c.backends.run(ctx, op, func(store EntryStore) error {
		var err error
		entry, err = store.Get(ctx, c.key)
		return err
	})
	return entry, err
}

// Get returns the snapshot while it is valid, or nil on a miss. An error
// means neither store could be read.
func (c *SnapshotCache) Get(ctx context.Context) (snapshot *CachedSnapshot, err error) {
	ctx, span := observability.StartSpan(ctx, "cache.get", attribute.String("cache.key", c.key))
	defer func() { observability.EndSpan(span, err) }()

	entry, err := c.read(ctx, "get")
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if entry == nil {
		c.metrics.RecordCacheMiss()
		c.logger.Info("Snapshot cache miss", zap.String("key", c.key))
		return nil, nil
	}

	cachedAt, expiresAt, ok := c.window(entry)
	now := c.now().UTC()
	if !ok || !now.Before(expiresAt) {
		c.metrics.RecordCacheMiss()
		c.logger.Info("Snapshot cache expired",
			zap.String("key", c.key),
			zap.Duration("expired_for", now.Sub(expiresAt)),
		)
		return nil, nil
	}

	c.metrics.RecordCacheHit()
	c.logger.Debug("Snapshot cache hit",
		zap.String("key", c.key),
		zap.Duration("expires_in", expiresAt.Sub(now)),
	)
	return &CachedSnapshot{
		Data:           json.RawMessage(entry.String(fieldData)),
		FromCache:      true,
		CachedAt:       cachedAt,
		ExpiresAt:      expiresAt,
		DataSource:     entry.String(fieldDataSource),
		APICreditsUsed: utils.SafeInt(entry[fieldAPICreditsUsed], 0),
	}, nil
}

// window parses the entry's validity interval. An entry without a readable
// expiry falls back to cached_at + ttl; one without either is invalid.
func (c *SnapshotCache) window(entry abstractions.Record) (time.Time, time.Time, bool) {
	cachedAt, cachedOK := parseTimestamp(entry.String(fieldCachedAt))
	expiresAt, expiresOK := parseTimestamp(entry.String(fieldExpiresAt))

	switch {
	case expiresOK:
		return cachedAt, expiresAt, true
	case cachedOK:
		return cachedAt, cachedAt.Add(c.ttl), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// Set stores payload as the current snapshot, stamping it valid for one TTL
func (c *SnapshotCache) Set(ctx context.Context, payload interface{}) (err error) {
	ctx, span := observability.StartSpan(ctx, "cache.set", attribute.String("cache.key", c.key))
	defer func() { observability.EndSpan(span, err) }()

	entry, err := c.buildEntry(payload)
	if err != nil {
		return err
	}

	err = c.backends.run(ctx, "set", func(store EntryStore) error {
		existing, err := store.Get(ctx, c.key)
		if err != nil {
			return err
		}
		if existing != nil {
			_, err = store.Update(ctx, c.key, entry)
		} else {
			_, err = store.Create(ctx, entry, false)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	c.logger.Info("Snapshot cached",
		zap.String("key", c.key),
		zap.String("expires_at", entry.String(fieldExpiresAt)),
		zap.Bool("using_fallback", c.UsingFallback()),
	)
	return nil
}

func (c *SnapshotCache) buildEntry(payload interface{}) (abstractions.Record, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var clean map[string]interface{}
	if err := json.Unmarshal(raw, &clean); err != nil {
		return nil, fmt.Errorf("snapshot must be a JSON object: %w", err)
	}
	for _, k := range transientKeys {
		delete(clean, k)
	}

	data, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	source := utils.SafeString(clean["source"])
	if source == "" {
		source = "unknown"
	}

	now := c.now().UTC()
	return abstractions.Record{
		abstractions.FieldID: c.key,
		fieldData:            string(data),
		fieldCachedAt:        now.Format(time.RFC3339Nano),
		fieldExpiresAt:       now.Add(c.ttl).Format(time.RFC3339Nano),
		fieldTTLHours:        c.ttl.Hours(),
		fieldDataSource:      source,
		fieldAPICreditsUsed:  utils.SafeInt(clean["total_api_credits_used"], 0),
	}, nil
}

// Clear deletes the entry and reports whether one existed
func (c *SnapshotCache) Clear(ctx context.Context) (bool, error) {
	var existed bool
	err := c.backends.run(ctx, "clear", func(store EntryStore) error {
		var err error
		existed, err = store.Delete(ctx, c.key)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to clear cache entry: %w", err)
	}

	c.logger.Info("Snapshot cache cleared", zap.String("key", c.key), zap.Bool("existed", existed))
	return existed, nil
}

// Info reports the entry's status without returning the payload
func (c *SnapshotCache) Info(ctx context.Context) (CacheInfo, error) {
	entry, err := c.read(ctx, "info")
	if err != nil {
		return CacheInfo{}, fmt.Errorf("failed to read cache entry: %w", err)
	}

	info := CacheInfo{UsingFallback: c.UsingFallback()}
	if entry == nil {
		info.Status = StatusNoCache
		info.Message = "No cache entry"
		return info, nil
	}

	info.CachedAt = entry.String(fieldCachedAt)
	info.ExpiresAt = entry.String(fieldExpiresAt)
	info.TTLHours = utils.OptionalFloat(entry[fieldTTLHours])
	info.DataSource = entry.String(fieldDataSource)
	info.APICreditsUsed = utils.SafeInt(entry[fieldAPICreditsUsed], 0)

	_, expiresAt, ok := c.window(entry)
	now := c.now().UTC()
	info.IsValid = ok && now.Before(expiresAt)

	if info.IsValid {
		info.Status = StatusValid
		info.Message = fmt.Sprintf("Cache is valid, expires in %d minutes", int(expiresAt.Sub(now).Minutes()))
	} else {
		info.Status = StatusExpired
		info.Message = fmt.Sprintf("Cache expired %d minutes ago", int(now.Sub(expiresAt).Minutes()))
	}
	return info, nil
}

// parseTimestamp accepts RFC 3339 and zone-less ISO-8601 timestamps; the
// latter are read as UTC
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
