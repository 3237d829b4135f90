package entity

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Store Tests
// =============================================================================

func named(id int64, name string) Entity {
	return New(id, map[string]any{"name": name})
}

func TestNewStore(t *testing.T) {
	store := NewStore("entities")
	if store == nil {
		t.Fatal("NewStore returned nil")
	}
	if store.Name() != "entities" {
		t.Errorf("Name() = %q, want %q", store.Name(), "entities")
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
}

func TestStore_PutThenGet(t *testing.T) {
	store := NewStore("entities")

	for i := int64(-2); i < 5; i++ {
		e := New(i, map[string]any{"n": i, "tag": fmt.Sprintf("t%d", i)})
		returned := store.Put(e)
		if returned.ID != e.ID {
			t.Errorf("Put returned ID %d, want %d", returned.ID, e.ID)
		}

		got, ok := store.Get(i)
		if !ok {
			t.Fatalf("Get(%d) after Put: not found", i)
		}
		if got.ID != i || got.Fields["tag"] != fmt.Sprintf("t%d", i) {
			t.Errorf("Get(%d) = %+v, want %+v", i, got, e)
		}
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore("entities")
	if _, ok := store.Get(42); ok {
		t.Error("Get on empty store should report absent")
	}
}

func TestStore_DeleteThenGet(t *testing.T) {
	store := NewStore("entities")
	store.Put(named(1, "a"))
	store.Put(named(2, "b"))

	if removed := store.Delete(1); !removed {
		t.Error("Delete(1) should report removal")
	}
	if _, ok := store.Get(1); ok {
		t.Error("Get(1) after Delete should report absent")
	}
	if _, ok := store.Get(2); !ok {
		t.Error("Delete(1) must not affect other entries")
	}
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	store := NewStore("entities")
	store.Put(named(1, "a"))

	if removed := store.Delete(99); removed {
		t.Error("Delete of missing ID should report nothing removed")
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d after no-op delete, want 1", store.Count())
	}
}

func TestStore_ListReflectsLastPut(t *testing.T) {
	store := NewStore("entities")
	store.Put(named(3, "c"))
	store.Put(named(1, "a"))
	store.Put(named(2, "b"))
	store.Put(named(1, "a2"))
	store.Put(named(3, "c2"))

	items := store.List()
	if len(items) != 3 {
		t.Fatalf("List() returned %d items, want 3", len(items))
	}

	want := map[int64]string{1: "a2", 2: "b", 3: "c2"}
	seen := make(map[int64]bool)
	for _, e := range items {
		if seen[e.ID] {
			t.Errorf("duplicate ID %d in List()", e.ID)
		}
		seen[e.ID] = true
		if e.Fields["name"] != want[e.ID] {
			t.Errorf("entity %d name = %v, want %v", e.ID, e.Fields["name"], want[e.ID])
		}
	}

	// List is ordered by ID for deterministic output.
	for i, id := range []int64{1, 2, 3} {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %d, want %d", i, items[i].ID, id)
		}
	}
}

func TestStore_PutIdempotent(t *testing.T) {
	once := NewStore("entities")
	twice := NewStore("entities")

	e := named(7, "same")
	once.Put(e)
	twice.Put(e)
	twice.Put(e)

	a, b := once.List(), twice.List()
	if len(a) != len(b) {
		t.Fatalf("len mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Fields["name"] != b[i].Fields["name"] {
			t.Errorf("item %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestStore_Scenario(t *testing.T) {
	store := NewStore("entities")

	store.Put(named(1, "a"))
	got, ok := store.Get(1)
	if !ok || got.Fields["name"] != "a" {
		t.Fatalf("Get(1) = %+v, %v; want name a", got, ok)
	}

	store.Put(named(1, "b"))
	got, ok = store.Get(1)
	if !ok || got.Fields["name"] != "b" {
		t.Fatalf("Get(1) = %+v, %v; want name b", got, ok)
	}

	items := store.List()
	if len(items) != 1 || items[0].ID != 1 || items[0].Fields["name"] != "b" {
		t.Fatalf("List() = %+v, want [{1 b}]", items)
	}

	store.Delete(1)
	if _, ok := store.Get(1); ok {
		t.Error("Get(1) after Delete should report absent")
	}
	if items := store.List(); len(items) != 0 {
		t.Errorf("List() = %+v, want empty", items)
	}
}

func TestStore_StoredCopyIsIsolated(t *testing.T) {
	store := NewStore("entities")
	e := named(1, "a")
	store.Put(e)

	e.Fields["name"] = "mutated"
	got, _ := store.Get(1)
	if got.Fields["name"] != "a" {
		t.Errorf("caller mutation leaked into store: %v", got.Fields["name"])
	}

	got.Fields["name"] = "mutated again"
	again, _ := store.Get(1)
	if again.Fields["name"] != "a" {
		t.Errorf("Get result mutation leaked into store: %v", again.Fields["name"])
	}
}

func TestStore_SeedResetAndClear(t *testing.T) {
	store := NewStore("entities", WithSeed([]Entity{named(1, "seed-a"), named(2, "seed-b")}))
	if store.Count() != 2 {
		t.Fatalf("seeded Count() = %d, want 2", store.Count())
	}

	store.Put(named(3, "c"))
	store.Delete(1)

	if n := store.Reset(); n != 2 {
		t.Errorf("Reset() = %d, want 2", n)
	}
	if _, ok := store.Get(3); ok {
		t.Error("Reset should drop non-seed entities")
	}
	if got, ok := store.Get(1); !ok || got.Fields["name"] != "seed-a" {
		t.Error("Reset should restore seed entities")
	}

	if n := store.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if store.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", store.Count())
	}
	if store.SeedCount() != 2 {
		t.Errorf("Clear must keep seed data, SeedCount() = %d", store.SeedCount())
	}
}

func TestStore_LoadRejectsDuplicates(t *testing.T) {
	store := NewStore("entities")
	store.Put(named(9, "keep"))

	err := store.Load([]Entity{named(1, "a"), named(1, "b")})
	if err == nil {
		t.Fatal("Load with duplicate IDs should fail")
	}
	if _, ok := store.Get(9); !ok {
		t.Error("failed Load must not modify the store")
	}

	if err := store.Load([]Entity{named(1, "a"), named(2, "b")}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.Count() != 2 {
		t.Errorf("Count() after Load = %d, want 2", store.Count())
	}
	if _, ok := store.Get(9); ok {
		t.Error("Load should replace the previous contents")
	}
}

func TestStore_Fork(t *testing.T) {
	obs := NewMetricsObserver()
	shared := NewStore("entities", WithSeed([]Entity{named(1, "seed")}), WithObserver(obs))
	shared.Put(named(2, "shared-only"))

	fork := shared.Fork()
	if fork.Count() != 1 {
		t.Errorf("fork Count() = %d, want seed only (1)", fork.Count())
	}
	fork.Put(named(3, "fork-only"))

	if _, ok := shared.Get(3); ok {
		t.Error("writes to a fork must not reach the shared store")
	}
	if obs.Snapshot().PutCount != 2 {
		t.Errorf("fork should share the observer, PutCount = %d", obs.Snapshot().PutCount)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore("entities")

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := int64(i % 20)
				switch (w + i) % 4 {
				case 0:
					store.Put(New(id, map[string]any{"worker": w}))
				case 1:
					store.Get(id)
				case 2:
					store.Delete(id)
				default:
					store.List()
				}
			}
		}(w)
	}
	wg.Wait()

	if n := store.Count(); n > 20 {
		t.Errorf("Count() = %d, cannot exceed distinct IDs (20)", n)
	}
}

// =============================================================================
// Observer Tests
// =============================================================================

func TestMetricsObserver_CountsOperations(t *testing.T) {
	obs := NewMetricsObserver()
	store := NewStore("entities", WithObserver(obs))

	store.Put(named(1, "a"))
	store.Get(1)
	store.Get(2)
	store.List()
	store.Delete(1)
	store.Reset()

	snap := obs.Snapshot()
	if snap.PutCount != 1 {
		t.Errorf("PutCount = %d, want 1", snap.PutCount)
	}
	if snap.GetCount != 2 || snap.GetMissCount != 1 {
		t.Errorf("GetCount/GetMissCount = %d/%d, want 2/1", snap.GetCount, snap.GetMissCount)
	}
	if snap.ListCount != 1 {
		t.Errorf("ListCount = %d, want 1", snap.ListCount)
	}
	if snap.DeleteCount != 1 {
		t.Errorf("DeleteCount = %d, want 1", snap.DeleteCount)
	}
	if snap.ResetCount != 1 {
		t.Errorf("ResetCount = %d, want 1", snap.ResetCount)
	}
	if snap.TotalOperations() != 6 {
		t.Errorf("TotalOperations() = %d, want 6", snap.TotalOperations())
	}
}

// =============================================================================
// Feed Tests
// =============================================================================

func TestStore_PublishesChanges(t *testing.T) {
	feed := NewFeed(8)
	store := NewStore("entities", WithFeed(feed))

	events, cancel := feed.Subscribe()
	defer cancel()

	store.Put(named(1, "a"))
	store.Delete(1)
	store.Delete(1) // no-op: nothing published
	store.Reset()

	want := []EventType{EventPut, EventDelete, EventReset}
	for i, typ := range want {
		select {
		case ev := <-events:
			if ev.Type != typ {
				t.Errorf("event %d type = %q, want %q", i, ev.Type, typ)
			}
			if ev.Time.IsZero() {
				t.Errorf("event %d has zero time", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected extra event %+v", ev)
	default:
	}
}

func TestStore_EventsFollowCommitOrder(t *testing.T) {
	const writers = 4
	feed := NewFeed(writers * 2)
	store := NewStore("entities", WithFeed(feed))

	events, cancel := feed.Subscribe()
	defer cancel()

	for round := 0; round < 500; round++ {
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				store.Put(New(1, map[string]any{"writer": w}))
			}(w)
		}
		wg.Wait()

		var last Event
		for i := 0; i < writers; i++ {
			last = <-events
		}
		got, _ := store.Get(1)
		if last.Entity == nil || last.Entity.Fields["writer"] != got.Fields["writer"] {
			t.Fatalf("round %d: last event %+v does not match stored entity %+v", round, last.Entity, got)
		}
	}
}

func TestEvent_MarshalJSONKeepsZeroValues(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"delete of id 0", Event{Type: EventDelete, ID: 0, Time: ts}, `{"type":"delete","id":0,"time":"2024-01-02T03:04:05Z"}`},
		{"reset to empty", Event{Type: EventReset, Time: ts}, `{"type":"reset","count":0,"time":"2024-01-02T03:04:05Z"}`},
		{"put", Event{Type: EventPut, ID: 2, Entity: &Entity{ID: 2, Fields: map[string]any{}}, Time: ts}, `{"type":"put","id":2,"entity":{"id":2},"time":"2024-01-02T03:04:05Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ev)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}

			var back Event
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if back.Type != tt.ev.Type || back.ID != tt.ev.ID || back.Count != tt.ev.Count {
				t.Errorf("round trip = %+v, want %+v", back, tt.ev)
			}
		})
	}
}

func TestFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	feed := NewFeed(1)
	_, cancel := feed.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			feed.Publish(Event{Type: EventPut, ID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestFeed_CancelUnsubscribes(t *testing.T) {
	feed := NewFeed(1)
	events, cancel := feed.Subscribe()
	if feed.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", feed.Subscribers())
	}

	cancel()
	cancel()

	if feed.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after cancel, want 0", feed.Subscribers())
	}
	if _, open := <-events; open {
		t.Error("channel should be closed after cancel")
	}
}

// =============================================================================
// Provider Tests
// =============================================================================

func TestParseScope(t *testing.T) {
	tests := []struct {
		input   string
		want    Scope
		wantErr bool
	}{
		{"", ScopeSingleton, false},
		{"singleton", ScopeSingleton, false},
		{"Request", ScopeRequest, false},
		{" request ", ScopeRequest, false},
		{"prototype", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScope(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScope(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseScope(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProvider_Singleton(t *testing.T) {
	shared := NewStore("entities")
	p := NewProvider(ScopeSingleton, shared)

	p.Acquire().Put(named(1, "a"))
	if _, ok := p.Acquire().Get(1); !ok {
		t.Error("singleton scope should share writes between acquisitions")
	}
	if p.Acquire() != shared {
		t.Error("singleton scope should return the shared store")
	}
}

func TestProvider_Request(t *testing.T) {
	shared := NewStore("entities", WithSeed([]Entity{named(1, "seed")}))
	p := NewProvider(ScopeRequest, shared)

	first := p.Acquire()
	first.Put(named(2, "b"))

	second := p.Acquire()
	if _, ok := second.Get(2); ok {
		t.Error("request scope must not leak writes into the next request")
	}
	if _, ok := second.Get(1); !ok {
		t.Error("request scope stores should start from the seed")
	}
	if p.Scope() != ScopeRequest {
		t.Errorf("Scope() = %q", p.Scope())
	}
}
