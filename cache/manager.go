package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
)

type entry[V any] struct {
	key          string
	value        V
	timestamp    time.Time
	ttl          time.Duration
	accessCount  int
	lastAccessed time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.Sub(e.timestamp) > e.ttl
}

// Stats is the serializable view returned by Manager.Stats.
type Stats struct {
	Name        string     `json:"name"`
	Size        int        `json:"size"`
	MaxSize     int        `json:"maxSize"`
	Hits        int64      `json:"hits"`
	Misses      int64      `json:"misses"`
	HitRate     float64    `json:"hitRate"`
	Evictions   int64      `json:"evictions"`
	MemoryUsage int        `json:"memoryUsage"`
	OldestEntry *time.Time `json:"oldestEntry,omitempty"`
	NewestEntry *time.Time `json:"newestEntry,omitempty"`
}

// Manager is a TTL and LRU bounded key/value cache. Expired entries are
// treated as absent on read whether or not a sweep has removed them yet.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: cache operations never fail because of persistence; store errors
// are logged.
type Manager[V any] struct {
	cfg Config

	mu        sync.Mutex
	entries   map[string]*list.Element
	order     *list.List // front = least recently used
	hits      int64
	misses    int64
	evictions int64
	// gen counts invalidations; loads started under an older value must not
	// be cached.
	gen uint64

	saver *Debouncer

	runMu   sync.Mutex
	stopCh  chan struct{}
	stopped chan struct{}
}

// NewManager creates a Manager and, when a Store is configured, loads its
// previous state. Load failures are logged and the cache starts empty.
func NewManager[V any](ctx context.Context, cfg Config) *Manager[V] {
	cfg = cfg.withDefaults()
	m := &Manager[V]{
		cfg:     cfg,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
	if cfg.Store != nil {
		m.saver = NewDebouncer(cfg.SaveDebounce, func() { _ = m.save(context.Background()) })
		m.load(ctx)
	}
	return m
}

// Get returns the value for key. A miss or an expired entry returns false
// and counts a miss; a hit marks the entry most recently used.
func (m *Manager[V]) Get(key string) (V, bool) {
	var zero V
	now := m.cfg.Now()

	m.mu.Lock()
	el, ok := m.entries[key]
	if ok && el.Value.(*entry[V]).expired(now) {
		m.removeLocked(el)
		ok = false
	}
	if !ok {
		m.misses++
		m.mu.Unlock()
		m.cfg.Metrics.RecordCacheLookup(context.Background(), m.cfg.Name, false)
		return zero, false
	}

	e := el.Value.(*entry[V])
	e.accessCount++
	e.lastAccessed = now
	m.order.MoveToBack(el)
	m.hits++
	v := e.value
	m.mu.Unlock()

	m.cfg.Metrics.RecordCacheLookup(context.Background(), m.cfg.Name, true)
	return v, true
}

// Set stores value under key. ttl <= 0 uses the default TTL. When the cache
// is full the least recently used entry is evicted first.
func (m *Manager[V]) Set(key string, value V, ttl time.Duration) {
	m.mu.Lock()
	m.setLocked(key, value, ttl)
	m.mu.Unlock()

	m.scheduleSave()
}

// setIfCurrent stores value only if no invalidation happened since gen was
// read from generation.
func (m *Manager[V]) setIfCurrent(key string, value V, ttl time.Duration, gen uint64) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	m.setLocked(key, value, ttl)
	m.mu.Unlock()

	m.scheduleSave()
	return true
}

func (m *Manager[V]) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manager[V]) setLocked(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}
	now := m.cfg.Now()

	if el, ok := m.entries[key]; ok {
		m.removeLocked(el)
	}
	if m.order.Len() >= m.cfg.MaxSize {
		if front := m.order.Front(); front != nil {
			m.removeLocked(front)
			m.evictions++
		}
	}
	m.entries[key] = m.order.PushBack(&entry[V]{
		key:          key,
		value:        value,
		timestamp:    now,
		ttl:          ttl,
		lastAccessed: now,
	})
}

// Has reports whether key holds an unexpired entry. It does not change
// recency or statistics.
func (m *Manager[V]) Has(key string) bool {
	now := m.cfg.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	return ok && !el.Value.(*entry[V]).expired(now)
}

// Delete removes key. It reports whether an entry was present.
func (m *Manager[V]) Delete(key string) bool {
	m.mu.Lock()
	m.gen++
	el, ok := m.entries[key]
	if ok {
		m.removeLocked(el)
	}
	m.mu.Unlock()

	if ok {
		m.scheduleSave()
	}
	return ok
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (m *Manager[V]) DeletePrefix(prefix string) int {
	m.mu.Lock()
	m.gen++
	removed := 0
	for key, el := range m.entries {
		if strings.HasPrefix(key, prefix) {
			m.removeLocked(el)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.scheduleSave()
	}
	return removed
}

// Clear removes every entry and resets hit and miss counts.
func (m *Manager[V]) Clear() {
	m.mu.Lock()
	m.gen++
	m.entries = make(map[string]*list.Element)
	m.order.Init()
	m.hits, m.misses, m.evictions = 0, 0, 0
	m.mu.Unlock()

	m.scheduleSave()
}

// Cleanup removes every expired entry and returns how many were removed.
func (m *Manager[V]) Cleanup() int {
	now := m.cfg.Now()

	m.mu.Lock()
	removed := 0
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*entry[V]).expired(now) {
			m.removeLocked(el)
			removed++
		}
		el = next
	}
	m.mu.Unlock()

	if removed > 0 {
		m.cfg.Logger.Debug(context.Background(), "cache cleanup",
			observe.F("cache", m.cfg.Name),
			observe.F("removed", removed),
		)
		m.scheduleSave()
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (m *Manager[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Keys returns unexpired keys from least to most recently used.
func (m *Manager[V]) Keys() []string {
	now := m.cfg.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, m.order.Len())
	for el := m.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[V])
		if !e.expired(now) {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Stats returns size, hit and memory statistics. MemoryUsage is an estimate:
// key length plus JSON value length plus a fixed overhead per entry.
func (m *Manager[V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Name:      m.cfg.Name,
		Size:      m.order.Len(),
		MaxSize:   m.cfg.MaxSize,
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
	}
	if total := m.hits + m.misses; total > 0 {
		s.HitRate = float64(m.hits) / float64(total)
	}

	var oldest, newest time.Time
	for el := m.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[V])
		size := len(e.key) + entryOverhead
		if data, err := json.Marshal(e.value); err == nil {
			size += len(data)
		}
		s.MemoryUsage += size

		if oldest.IsZero() || e.timestamp.Before(oldest) {
			oldest = e.timestamp
		}
		if newest.IsZero() || e.timestamp.After(newest) {
			newest = e.timestamp
		}
	}
	if !oldest.IsZero() {
		s.OldestEntry = &oldest
		s.NewestEntry = &newest
	}
	return s
}

func (m *Manager[V]) removeLocked(el *list.Element) {
	e := el.Value.(*entry[V])
	delete(m.entries, e.key)
	m.order.Remove(el)
}

// Start runs the periodic expiry sweep until Stop is called.
func (m *Manager[V]) Start() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.stopCh != nil {
		return
	}

	m.stopCh = make(chan struct{})
	m.stopped = make(chan struct{})
	go m.cleanupLoop(m.stopCh, m.stopped)
}

func (m *Manager[V]) cleanupLoop(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-stop:
			return
		}
	}
}

// Stop ends the sweep and, when persistence is enabled, saves synchronously.
// It may be called more than once; a Start after Stop runs a new sweep.
func (m *Manager[V]) Stop(ctx context.Context) error {
	m.runMu.Lock()
	stopped := m.stopped
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh, m.stopped = nil, nil
	}
	m.runMu.Unlock()

	if stopped != nil {
		select {
		case <-stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if m.saver != nil {
		m.saver.Stop()
		return m.save(ctx)
	}
	return nil
}

// Flush persists the cache now if a debounced save is pending.
func (m *Manager[V]) Flush(ctx context.Context) error {
	if m.saver == nil || !m.saver.Pending() {
		return nil
	}
	m.saver.Cancel()
	return m.save(ctx)
}

func (m *Manager[V]) scheduleSave() {
	if m.saver != nil {
		m.saver.Trigger()
	}
}

// snapshot captures the cache in persisted form.
func (m *Manager[V]) snapshot() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &Snapshot{
		Cache:     make(map[string]StoredEntry, len(m.entries)),
		Stats:     SnapshotStats{Hits: m.hits, Misses: m.misses},
		Timestamp: m.cfg.Now().UnixMilli(),
	}
	for el := m.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[V])
		data, err := json.Marshal(e.value)
		if err != nil {
			return nil, err
		}
		snap.Cache[e.key] = StoredEntry{
			Value:        data,
			Timestamp:    e.timestamp.UnixMilli(),
			TTL:          e.ttl.Milliseconds(),
			AccessCount:  e.accessCount,
			LastAccessed: e.lastAccessed.UnixMilli(),
		}
	}
	return snap, nil
}

func (m *Manager[V]) save(ctx context.Context) error {
	snap, err := m.snapshot()
	if err == nil {
		err = m.cfg.Store.Save(ctx, snap)
	}
	if err != nil {
		m.cfg.Logger.Warn(ctx, "cache save failed",
			observe.F("cache", m.cfg.Name),
			observe.F("error", err.Error()),
		)
	}
	return err
}

// load restores entries from the store, skipping expired and undecodable
// ones, in least to most recently used order.
func (m *Manager[V]) load(ctx context.Context) {
	snap, err := m.cfg.Store.Load(ctx)
	if err != nil {
		m.cfg.Logger.Warn(ctx, "cache load failed",
			observe.F("cache", m.cfg.Name),
			observe.F("error", err.Error()),
		)
		return
	}
	if snap == nil {
		return
	}

	now := m.cfg.Now()
	restored := make([]*entry[V], 0, len(snap.Cache))
	for key, se := range snap.Cache {
		if ValidateKey(key) != nil {
			continue
		}
		e := &entry[V]{
			key:          key,
			timestamp:    time.UnixMilli(se.Timestamp),
			ttl:          time.Duration(se.TTL) * time.Millisecond,
			accessCount:  se.AccessCount,
			lastAccessed: time.UnixMilli(se.LastAccessed),
		}
		if e.expired(now) {
			continue
		}
		if err := json.Unmarshal(se.Value, &e.value); err != nil {
			continue
		}
		restored = append(restored, e)
	}
	sort.Slice(restored, func(i, j int) bool {
		return restored[i].lastAccessed.Before(restored[j].lastAccessed)
	})
	if len(restored) > m.cfg.MaxSize {
		restored = restored[len(restored)-m.cfg.MaxSize:]
	}

	m.mu.Lock()
	for _, e := range restored {
		m.entries[e.key] = m.order.PushBack(e)
	}
	m.hits = snap.Stats.Hits
	m.misses = snap.Stats.Misses
	m.mu.Unlock()

	m.cfg.Logger.Info(ctx, "cache loaded",
		observe.F("cache", m.cfg.Name),
		observe.F("entries", len(restored)),
	)
}
