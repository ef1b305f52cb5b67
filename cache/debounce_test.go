package cache

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		d.Trigger()
	}
	if !d.Pending() {
		t.Error("Pending() = false after Trigger")
	}

	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(40 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if d.Pending() {
		t.Error("Pending() = true after firing")
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Cancel()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != 0 {
		t.Error("cancelled call ran")
	}

	d.Trigger()
	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestDebouncer_StopIgnoresTriggers(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(5*time.Millisecond, func() { calls.Add(1) })

	d.Stop()
	d.Trigger()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Error("stopped debouncer ran")
	}
}

func TestManager_DebouncedSave(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "c.json"))
	m := NewManager[int](context.Background(), Config{
		Store:        store,
		SaveDebounce: 10 * time.Millisecond,
	})

	m.Set("a", 1, 0)
	m.Set("b", 2, 0)

	waitFor(t, func() bool {
		snap, err := store.Load(context.Background())
		return err == nil && snap != nil && len(snap.Cache) == 2
	})
}
