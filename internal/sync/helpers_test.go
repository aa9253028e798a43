package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verdantstack/agrisync/internal/farm"
)

// manualClock lets tests control the server-authoritative timestamps.
type manualClock struct {
	current time.Time
}

func (c *manualClock) Now() time.Time {
	return c.current
}

func (c *manualClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *farm.Store, *manualClock, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:agrisync_sync_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&farm.Plantation{},
		&farm.Field{},
		&farm.PlantingSeason{},
		&farm.Activity{},
		&farm.FinancialRecord{},
		&farm.ActivityPhoto{},
		&farm.Tombstone{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	clock := &manualClock{current: testEpoch}
	store, err := farm.NewStore(farm.StoreConfig{Database: db, Clock: clock.Now})
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	engine, err := NewEngine(EngineConfig{
		Store:  store,
		Clock:  clock.Now,
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct engine: %v", err)
	}
	return engine, store, clock, db
}

func seedPlantation(t *testing.T, store *farm.Store, ownerID, id string) *farm.Plantation {
	t.Helper()
	plantation := &farm.Plantation{ID: id, OwnerID: ownerID, Name: "Plantation " + id}
	if err := store.CreatePlantation(context.Background(), plantation); err != nil {
		t.Fatalf("failed to seed plantation: %v", err)
	}
	return plantation
}

func seedField(t *testing.T, store *farm.Store, plantationID, id string) *farm.Field {
	t.Helper()
	field := &farm.Field{ID: id, PlantationID: plantationID, Name: "Field " + id}
	if err := store.CreateField(context.Background(), field); err != nil {
		t.Fatalf("failed to seed field: %v", err)
	}
	return field
}

func seedSeason(t *testing.T, store *farm.Store, fieldID, id, cropType string) *farm.PlantingSeason {
	t.Helper()
	season := &farm.PlantingSeason{ID: id, FieldID: fieldID, CropType: cropType}
	if err := store.CreatePlantingSeason(context.Background(), season); err != nil {
		t.Fatalf("failed to seed planting season: %v", err)
	}
	return season
}

func seedActivity(t *testing.T, store *farm.Store, fieldID, id, category string) *farm.Activity {
	t.Helper()
	activity := &farm.Activity{ID: id, FieldID: fieldID, Category: category}
	if err := store.CreateActivity(context.Background(), activity); err != nil {
		t.Fatalf("failed to seed activity: %v", err)
	}
	return activity
}

func rfc3339(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func mustPush(t *testing.T, engine *Engine, userID string, operations ...Operation) PushResult {
	t.Helper()
	result, err := engine.Push(context.Background(), userID, operations)
	if err != nil {
		t.Fatalf("unexpected push error: %v", err)
	}
	return result
}

func singleConflict(t *testing.T, result PushResult) Conflict {
	t.Helper()
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected exactly one conflict, got %d: %#v", len(result.Conflicts), result.Conflicts)
	}
	return result.Conflicts[0]
}
