package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// testClock is a settable time source for TTL tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, cfg Config) (*Manager[string], *testClock) {
	t.Helper()
	clock := newTestClock()
	cfg.Now = clock.Now
	return NewManager[string](context.Background(), cfg), clock
}

func TestManager_SetGet(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	m.Set("k", "v", 0)

	got, ok := m.Get("k")
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	if got != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) hit, want miss")
	}
}

func TestManager_SetOverwrites(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	m.Set("k", "one", 0)
	m.Set("k", "two", 0)

	if got, _ := m.Get("k"); got != "two" {
		t.Errorf("Get() = %q, want two", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestManager_TTLExpiry(t *testing.T) {
	m, clock := newTestManager(t, Config{DefaultTTL: time.Minute})

	m.Set("default", "a", 0)
	m.Set("short", "b", 10*time.Second)

	clock.Advance(10 * time.Second)
	if _, ok := m.Get("short"); !ok {
		t.Error("entry expired at exactly its TTL, want still valid")
	}

	clock.Advance(time.Millisecond)
	if _, ok := m.Get("short"); ok {
		t.Error("short entry still valid after TTL")
	}
	if _, ok := m.Get("default"); !ok {
		t.Error("default entry expired early")
	}

	clock.Advance(time.Minute)
	if m.Has("default") {
		t.Error("Has() true for expired entry")
	}
	if _, ok := m.Get("default"); ok {
		t.Error("default entry still valid after default TTL")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want expired entries removed on read", m.Len())
	}
}

func TestManager_LRUEviction(t *testing.T) {
	m, _ := newTestManager(t, Config{MaxSize: 3})

	m.Set("a", "1", 0)
	m.Set("b", "2", 0)
	m.Set("c", "3", 0)

	// Touch "a" so "b" becomes least recently used.
	if _, ok := m.Get("a"); !ok {
		t.Fatal("Get(a) miss")
	}
	m.Set("d", "4", 0)

	if m.Has("b") {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if !m.Has(k) {
			t.Errorf("%s should still be cached", k)
		}
	}
	if got := m.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestManager_EvictsFirstInsertedWithoutReads(t *testing.T) {
	m, _ := newTestManager(t, Config{MaxSize: 2})

	m.Set("first", "1", 0)
	m.Set("second", "2", 0)
	m.Set("third", "3", 0)

	if m.Has("first") {
		t.Error("first should have been evicted")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManager_HasDoesNotTouchStats(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	m.Set("k", "v", 0)

	m.Has("k")
	m.Has("missing")

	stats := m.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Has() changed stats: hits=%d misses=%d", stats.Hits, stats.Misses)
	}
}

func TestManager_Delete(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	m.Set("k", "v", 0)

	if !m.Delete("k") {
		t.Error("Delete() = false for present key")
	}
	if m.Delete("k") {
		t.Error("Delete() = true for absent key")
	}
	if m.Has("k") {
		t.Error("key still present after Delete")
	}
}

func TestManager_DeletePrefix(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	m.Set("n8n:getWorkflow:1", "a", 0)
	m.Set("n8n:getWorkflow:2", "b", 0)
	m.Set("n8n:listWorkflows", "c", 0)

	if got := m.DeletePrefix("n8n:getWorkflow"); got != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", got)
	}
	if !m.Has("n8n:listWorkflows") {
		t.Error("unrelated key removed")
	}
}

func TestManager_Clear(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	m.Set("a", "1", 0)
	m.Get("a")
	m.Get("b")

	m.Clear()

	stats := m.Stats()
	if stats.Size != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("stats after Clear = %+v", stats)
	}
}

func TestManager_Cleanup(t *testing.T) {
	m, clock := newTestManager(t, Config{})
	m.Set("short", "1", time.Second)
	m.Set("long", "2", time.Hour)

	clock.Advance(2 * time.Second)

	if got := m.Cleanup(); got != 1 {
		t.Errorf("Cleanup() = %d, want 1", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	if got := m.Cleanup(); got != 0 {
		t.Errorf("second Cleanup() = %d, want 0", got)
	}
}

func TestManager_Keys(t *testing.T) {
	m, clock := newTestManager(t, Config{})
	m.Set("a", "1", 0)
	m.Set("b", "2", 0)
	m.Set("gone", "3", time.Second)
	m.Get("a")

	clock.Advance(2 * time.Second)

	got := m.Keys()
	want := []string{"b", "a"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestManager_Stats(t *testing.T) {
	m, clock := newTestManager(t, Config{Name: "workflows", MaxSize: 10})

	m.Set("ab", "xyz", 0) // 2 + len(`"xyz"`) + 64
	clock.Advance(time.Second)
	m.Set("c", "", 0) // 1 + len(`""`) + 64

	m.Get("ab")
	m.Get("ab")
	m.Get("ab")
	m.Get("nope")

	stats := m.Stats()
	if stats.Name != "workflows" || stats.MaxSize != 10 || stats.Size != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Hits != 3 || stats.Misses != 1 {
		t.Errorf("hits=%d misses=%d, want 3/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.75 {
		t.Errorf("HitRate = %v, want 0.75", stats.HitRate)
	}
	if want := (2 + 5 + 64) + (1 + 2 + 64); stats.MemoryUsage != want {
		t.Errorf("MemoryUsage = %d, want %d", stats.MemoryUsage, want)
	}
	if stats.OldestEntry == nil || stats.NewestEntry == nil {
		t.Fatal("oldest/newest entry not set")
	}
	if got := stats.NewestEntry.Sub(*stats.OldestEntry); got != time.Second {
		t.Errorf("newest - oldest = %v, want 1s", got)
	}
}

func TestManager_StatsEmpty(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	stats := m.Stats()
	if stats.HitRate != 0 {
		t.Errorf("HitRate = %v, want 0", stats.HitRate)
	}
	if stats.OldestEntry != nil || stats.NewestEntry != nil {
		t.Error("empty cache reports entry times")
	}
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager[int](context.Background(), Config{
		CleanupInterval: 5 * time.Millisecond,
	})
	m.Set("short", 1, time.Millisecond)

	m.Start()
	m.Start() // second call is a no-op

	deadline := time.Now().Add(2 * time.Second)
	for m.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Len() != 0 {
		t.Error("sweep did not remove expired entry")
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestManager_StopAfterCancelledStop(t *testing.T) {
	m := NewManager[int](context.Background(), Config{CleanupInterval: time.Hour})
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	m.Start()
	// Either outcome is fine; neither call may panic on a closed channel.
	_ = m.Stop(cancelled)
	_ = m.Stop(cancelled)

	m.Start()
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() after restart error = %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager[int](context.Background(), Config{MaxSize: 50})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*100+j)%75)
				m.Set(key, j, 0)
				m.Get(key)
				m.Has(key)
			}
			m.Stats()
		}(i)
	}
	wg.Wait()

	if m.Len() > 50 {
		t.Errorf("Len() = %d, exceeds MaxSize", m.Len())
	}
}

func TestManager_StructValues(t *testing.T) {
	type workflow struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	m := NewManager[workflow](context.Background(), Config{})

	m.Set("wf:1", workflow{ID: "1", Name: "Sync"}, 0)

	got, ok := m.Get("wf:1")
	if !ok || got.Name != "Sync" {
		t.Errorf("Get() = %+v, %v", got, ok)
	}
}
