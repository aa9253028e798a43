package sync

import (
	"context"
	"time"

	"github.com/verdantstack/agrisync/internal/farm"
)

// Pull assembles everything in the user's ownership graph that changed
// strictly after the checkpoint, plus tombstones for removals. A nil
// checkpoint means beginning of time. Pull is read-only and fails as a
// whole: there is no partial-success contract to report through.
func (e *Engine) Pull(ctx context.Context, userID string, checkpoint *time.Time) (PullResult, error) {
	since := time.Time{}
	if checkpoint != nil {
		since = checkpoint.UTC()
	}

	result := PullResult{
		Data: Snapshot{
			Plantations:      make([]map[string]any, 0),
			Fields:           make([]map[string]any, 0),
			PlantingSeasons:  make([]map[string]any, 0),
			Activities:       make([]map[string]any, 0),
			FinancialRecords: make([]map[string]any, 0),
			ActivityPhotos:   make([]map[string]any, 0),
		},
		Deletions: make([]Deletion, 0),
	}

	for _, kind := range farm.Kinds() {
		adapter := e.adapters[kind]
		records, err := adapter.listOwnedSince(ctx, userID, since)
		if err != nil {
			return PullResult{}, err
		}
		serialized := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			serialized = append(serialized, adapter.serialize(rec))
		}
		switch kind {
		case farm.KindPlantation:
			result.Data.Plantations = serialized
		case farm.KindField:
			result.Data.Fields = serialized
		case farm.KindPlantingSeason:
			result.Data.PlantingSeasons = serialized
		case farm.KindActivity:
			result.Data.Activities = serialized
		case farm.KindFinancialRecord:
			result.Data.FinancialRecords = serialized
		case farm.KindActivityPhoto:
			result.Data.ActivityPhotos = serialized
		}
	}

	tombstones, err := e.store.ListDeletionsSince(ctx, userID, since)
	if err != nil {
		return PullResult{}, err
	}
	for _, tombstone := range tombstones {
		result.Deletions = append(result.Deletions, Deletion{
			Entity:    tombstone.EntityKind,
			ID:        tombstone.EntityID,
			DeletedAt: tombstone.DeletedAt,
		})
	}

	result.ServerTime = e.now()
	return result, nil
}
