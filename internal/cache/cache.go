package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Clear drops every entry
	Clear()

	// Size returns the current number of items in the cache
	Size() int

	Stats() Stats
}

// Stats counts cache lookups. Entries is -1 when the backend cannot tell.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// StatsReporter is implemented by report caches that keep counters.
type StatsReporter interface {
	Stats() Stats
}

// Generation identifies the cache contents between two invalidations. Get
// returns the current one and Set drops writes carrying an older one, so a
// report computed before a write is never stored after it.
type Generation int64

// Reports caches serialized report payloads. Invalidate drops every entry
// written before the call; it runs after each transaction or goal write.
type Reports interface {
	Get(ctx context.Context, key string) ([]byte, Generation, bool)
	Set(ctx context.Context, gen Generation, key string, data []byte)
	Invalidate(ctx context.Context) error
}

// Local keeps report payloads in an in-process LRU.
type Local struct {
	mu  sync.Mutex
	gen Generation
	lru Cache[[]byte]
}

// NewLocal creates an in-process report cache holding up to size entries.
func NewLocal(size int, ttl time.Duration) *Local {
	return &Local{lru: NewLRUCache[[]byte](size, ttl)}
}

func (l *Local) Get(_ context.Context, key string) ([]byte, Generation, bool) {
	l.mu.Lock()
	gen := l.gen
	l.mu.Unlock()
	data, ok := l.lru.Get(key)
	return data, gen, ok
}

func (l *Local) Set(_ context.Context, gen Generation, key string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	l.lru.Set(key, data)
}

func (l *Local) Invalidate(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.lru.Clear()
	return nil
}

func (l *Local) Stats() Stats {
	return l.lru.Stats()
}

// CleanExpired lets a Manager sweep the underlying LRU.
func (l *Local) CleanExpired() int {
	if c, ok := l.lru.(Cleaner); ok {
		return c.CleanExpired()
	}
	return 0
}

// Noop is used when report caching is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, Generation, bool) { return nil, 0, false }
func (Noop) Set(context.Context, Generation, string, []byte)        {}
func (Noop) Invalidate(context.Context) error                       { return nil }

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	started     bool
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			totalCleaned := 0
			for _, cache := range m.caches {
				totalCleaned += cache.CleanExpired()
			}
			if totalCleaned > 0 {
				slog.Debug("Expired cache entries removed", "count", totalCleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	select {
	case <-m.stopCleanup:
		return
	default:
	}
	close(m.stopCleanup)
	if m.started {
		<-m.cleanupDone
	}
}
