package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/verdantstack/agrisync/internal/farm"
)

// Direct write path used by the CRUD endpoints. It reuses the per-kind
// adapters so validation, ownership scoping and tombstoning behave exactly
// as they do under sync, but skips the optimistic concurrency check: a
// direct write always wins and bumps the server timestamp.

// ListOwned returns every record of the kind in the user's ownership graph.
func (e *Engine) ListOwned(ctx context.Context, userID string, kind farm.EntityKind) ([]map[string]any, error) {
	adapter, ok := e.adapterFor(kind)
	if !ok {
		return nil, ErrUnknownKind
	}
	records, err := adapter.listOwnedSince(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	serialized := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		serialized = append(serialized, adapter.serialize(rec))
	}
	return serialized, nil
}

// DirectCreate persists a new record, generating an id when the caller did
// not supply one.
func (e *Engine) DirectCreate(ctx context.Context, userID string, kind farm.EntityKind, body map[string]any) (map[string]any, error) {
	adapter, ok := e.adapterFor(kind)
	if !ok {
		return nil, ErrUnknownKind
	}

	fields := payload(body)
	entityID := fields.str("id")
	if entityID == "" {
		generated, err := e.ids.NewID()
		if err != nil {
			return nil, err
		}
		entityID = generated
	} else {
		// Checked without ownership scoping so a collision with a foreign
		// record reads the same as one with the caller's own.
		taken, err := e.store.EntityExists(ctx, kind, entityID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, validationf("%s already exists", adapter.label())
		}
	}

	rec, err := adapter.create(ctx, userID, entityID, fields)
	if err != nil {
		return nil, err
	}
	return adapter.serialize(rec), nil
}

// DirectUpdate merges the supplied fields into an owned record.
func (e *Engine) DirectUpdate(ctx context.Context, userID string, kind farm.EntityKind, entityID string, body map[string]any) (map[string]any, error) {
	adapter, ok := e.adapterFor(kind)
	if !ok {
		return nil, ErrUnknownKind
	}
	rec, err := adapter.resolveOwned(ctx, entityID, userID)
	if err != nil {
		return nil, err
	}
	updated, err := adapter.update(ctx, userID, rec, payload(body))
	if err != nil {
		return nil, err
	}
	return adapter.serialize(updated), nil
}

// DirectDelete removes an owned record and records its tombstone, keeping
// the deletion log complete for clients that pulled the record earlier.
func (e *Engine) DirectDelete(ctx context.Context, userID string, kind farm.EntityKind, entityID string) error {
	adapter, ok := e.adapterFor(kind)
	if !ok {
		return ErrUnknownKind
	}
	rec, err := adapter.resolveOwned(ctx, entityID, userID)
	if err != nil {
		return err
	}
	return adapter.remove(ctx, userID, rec)
}

// KindForCollection maps a URL collection segment to its entity kind.
func KindForCollection(collection string) (farm.EntityKind, error) {
	switch collection {
	case "plantations":
		return farm.KindPlantation, nil
	case "fields":
		return farm.KindField, nil
	case "planting-seasons":
		return farm.KindPlantingSeason, nil
	case "activities":
		return farm.KindActivity, nil
	case "financial-records":
		return farm.KindFinancialRecord, nil
	case "activity-photos":
		return farm.KindActivityPhoto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, collection)
	}
}
