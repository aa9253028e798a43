package sync

import (
	"errors"
	"testing"
	"time"
)

func TestNewEngineRequiresStore(t *testing.T) {
	_, err := NewEngine(EngineConfig{})
	if !errors.Is(err, errMissingStore) {
		t.Fatalf("expected missing store error, got %v", err)
	}
}

func TestNewEngineDefaults(t *testing.T) {
	_, store, _, _ := newTestEngine(t)

	engine, err := NewEngine(EngineConfig{Store: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.clock == nil || engine.ids == nil || engine.logger == nil {
		t.Fatal("expected clock, id provider and logger defaults")
	}
	if len(engine.adapters) != 6 {
		t.Fatalf("expected one adapter per entity kind, got %d", len(engine.adapters))
	}
}

func TestServerTimeIsUTC(t *testing.T) {
	engine, _, clock, _ := newTestEngine(t)
	clock.current = time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("GMT+2", 2*60*60))

	serverTime := engine.ServerTime()
	if serverTime.Location() != time.UTC {
		t.Fatalf("expected UTC server time, got %v", serverTime)
	}
}

func TestUUIDProviderIssuesUniqueIDs(t *testing.T) {
	provider := NewUUIDProvider()

	first, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == "" || first == second {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", first, second)
	}
}
