package events_test

import (
	"context"
	"testing"
	"time"

	"stereowatch/internal/events"
	"stereowatch/internal/sessions"
	"stereowatch/internal/testsupport"
)

func openStore(t *testing.T) *events.Store {
	t.Helper()
	store, err := events.Open(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(id, endpointID string, at time.Time) events.Record {
	return events.Record{
		ID:           id,
		EndpointID:   endpointID,
		EndpointName: "Buds Pro",
		Previous:     "stereo",
		Current:      "hands-free",
		At:           at,
	}
}

func TestSaveAndRecentRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	rec := record("evt-1", "AA:BB:CC:DD:EE:FF", time.Unix(1700000000, 0).UTC())
	rec.Sessions = []sessions.Session{
		{PID: 4242, Name: "Firefox", Resolved: true, Peak: 0.7},
		{PID: 100, Name: "pid 100", Resolved: false, Peak: 0.3},
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].ID != "evt-1" || got[0].Current != "hands-free" {
		t.Fatalf("unexpected record %+v", got[0])
	}
	if len(got[0].Sessions) != 2 || got[0].Sessions[0].Name != "Firefox" {
		t.Fatalf("unexpected sessions %+v", got[0].Sessions)
	}
	if !got[0].At.Equal(rec.At) {
		t.Fatalf("expected %v, got %v", rec.At, got[0].At)
	}
}

func TestRecentOrdersNewestFirstAndLimits(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 5; i++ {
		rec := record(string(rune('a'+i)), "AA:BB:CC:DD:EE:FF", base.Add(time.Duration(i)*time.Minute))
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	got, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if !got[0].At.After(got[1].At) || !got[1].At.After(got[2].At) {
		t.Fatal("expected newest-first ordering")
	}
}

func TestForEndpointFilters(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	at := time.Unix(1700000000, 0).UTC()
	if err := store.Save(ctx, record("evt-1", "AA:BB:CC:DD:EE:FF", at)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, record("evt-2", "11:22:33:44:55:66", at.Add(time.Minute))); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.ForEndpoint(ctx, "AA:BB:CC:DD:EE:FF", 10)
	if err != nil {
		t.Fatalf("for endpoint: %v", err)
	}
	if len(got) != 1 || got[0].ID != "evt-1" {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestPruneOlderThan(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	if err := store.Save(ctx, record("old", "AA:BB:CC:DD:EE:FF", base)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, record("new", "AA:BB:CC:DD:EE:FF", base.Add(48*time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}

	pruned, err := store.PruneOlderThan(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned record, got %d", pruned)
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("unexpected survivors %+v", got)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	at := time.Unix(1700000000, 0).UTC()
	if err := store.Save(ctx, record("evt-1", "AA:BB:CC:DD:EE:FF", at)); err != nil {
		t.Fatalf("save: %v", err)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty store, got %d records", len(got))
	}
}
