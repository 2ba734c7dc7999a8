package registry

import (
	"testing"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/domain"
)

func TestRegisterAssignsIDsAndStoresActions(t *testing.T) {
	r := New(10)

	id := r.Register(domain.ActionFileOperation, map[string]any{"event_type": "created"}, "monitor", nil)
	if id == "" {
		t.Fatal("expected non-empty action ID")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 action, got %d", r.Len())
	}

	action, ok := r.ByID(id)
	if !ok {
		t.Fatalf("action %s not found", id)
	}
	if action.Type != domain.ActionFileOperation || action.Source != "monitor" {
		t.Fatalf("unexpected action %+v", action)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	r := New(3)
	first := r.Register(domain.ActionAppSwitch, map[string]any{"app_name": "a"}, "test", nil)
	for i := 0; i < 3; i++ {
		r.Register(domain.ActionAppSwitch, map[string]any{"app_name": "b"}, "test", nil)
	}

	if r.Len() != 3 {
		t.Fatalf("expected capacity 3, got %d", r.Len())
	}
	if _, ok := r.ByID(first); ok {
		t.Fatal("oldest action should have been evicted")
	}
}

func TestActionsFiltersByTimeTypeAndLimit(t *testing.T) {
	r := New(0)
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	clock := base
	r.now = func() time.Time { return clock }

	r.Register(domain.ActionFileOperation, nil, "test", nil)
	clock = base.Add(10 * time.Second)
	r.Register(domain.ActionAppSwitch, nil, "test", nil)
	clock = base.Add(20 * time.Second)
	r.Register(domain.ActionFileOperation, nil, "test", nil)

	got := r.Actions(base.Add(5*time.Second), "", 0)
	if len(got) != 2 {
		t.Fatalf("since filter: expected 2, got %d", len(got))
	}

	got = r.Actions(time.Time{}, domain.ActionFileOperation, 0)
	if len(got) != 2 {
		t.Fatalf("type filter: expected 2, got %d", len(got))
	}

	got = r.Actions(time.Time{}, "", 1)
	if len(got) != 1 {
		t.Fatalf("limit: expected 1, got %d", len(got))
	}
	if got[0].Timestamp != base.Add(20*time.Second) {
		t.Fatal("limit should keep the newest entries")
	}
}

func TestRecentUsesTrailingWindow(t *testing.T) {
	r := New(0)
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	clock := base
	r.now = func() time.Time { return clock }

	r.Register(domain.ActionFileOperation, nil, "test", nil)
	clock = base.Add(45 * time.Second)
	r.Register(domain.ActionFileOperation, nil, "test", nil)

	got := r.Recent(30 * time.Second)
	if len(got) != 1 {
		t.Fatalf("expected 1 recent action, got %d", len(got))
	}
}

func TestClearOlderThan(t *testing.T) {
	r := New(0)
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	clock := base
	r.now = func() time.Time { return clock }

	r.Register(domain.ActionFileOperation, nil, "test", nil)
	clock = base.Add(time.Hour)
	r.Register(domain.ActionFileOperation, nil, "test", nil)

	r.ClearOlderThan(30 * time.Minute)
	if r.Len() != 1 {
		t.Fatalf("expected 1 action after clear, got %d", r.Len())
	}
}

func TestStatsCountsByTypeAndSource(t *testing.T) {
	r := New(0)
	r.Register(domain.ActionFileOperation, nil, "monitor", nil)
	r.Register(domain.ActionFileOperation, nil, "monitor", nil)
	r.Register(domain.ActionAppSwitch, nil, "simulator", nil)

	stats := r.Stats()
	if stats.TotalActions != 3 {
		t.Fatalf("expected 3 total, got %d", stats.TotalActions)
	}
	if stats.ByType[domain.ActionFileOperation] != 2 {
		t.Fatalf("expected 2 file ops, got %d", stats.ByType[domain.ActionFileOperation])
	}
	if stats.BySource["simulator"] != 1 {
		t.Fatalf("expected 1 simulator action, got %d", stats.BySource["simulator"])
	}
}

func TestSeedDemoActivityProducesDetectableWindow(t *testing.T) {
	r := New(0)
	SeedDemoActivity(r)

	stats := r.Stats()
	if stats.ByType[domain.ActionFileOperation] != 4 {
		t.Fatalf("expected 4 file ops, got %d", stats.ByType[domain.ActionFileOperation])
	}
	if stats.ByType[domain.ActionAppSwitch] != 4 || stats.ByType[domain.ActionKeyboardShortcut] != 4 {
		t.Fatalf("expected 2 full switch/paste cycles, got %+v", stats.ByType)
	}
}
