package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verdantstack/agrisync/internal/farm"
)

// applyOperation attempts to bring server state in line with one client
// intent. A nil conflict means the operation was applied. A returned error is
// an unexpected failure (storage and the like); the push coordinator
// downgrades it to a conflict so siblings in the batch still run.
//
// Parent references are resolved fresh here for every operation, never from a
// batch-start snapshot: a create earlier in the batch must be visible to a
// later operation that references it.
func (e *Engine) applyOperation(ctx context.Context, userID string, op Operation) (*Conflict, error) {
	adapter, ok := e.adapterFor(op.Entity)
	if !ok {
		return e.conflictFor(op, fmt.Sprintf("unsupported entity kind %q", op.Entity), nil), nil
	}

	switch op.Type {
	case OperationCreate:
		return e.applyCreate(ctx, userID, adapter, op)
	case OperationUpdate:
		return e.applyUpdate(ctx, userID, adapter, op)
	case OperationDelete:
		return e.applyDelete(ctx, userID, adapter, op)
	default:
		return e.conflictFor(op, "unsupported operation", nil), nil
	}
}

func (e *Engine) applyCreate(ctx context.Context, userID string, adapter entityAdapter, op Operation) (*Conflict, error) {
	body := payload(op.Payload)
	entityID := body.str("id")
	if entityID == "" {
		return e.conflictFor(op, fmt.Sprintf("missing %s id", adapter.label()), nil), nil
	}

	// A retried create lands here: same client-assigned id, record already
	// present. The client should treat this conflict as success.
	existing, err := adapter.resolveOwned(ctx, entityID, userID)
	if err == nil {
		reason := fmt.Sprintf("%s already exists", adapter.label())
		return e.conflictFor(op, reason, adapter.serialize(existing)), nil
	}
	if !errors.Is(err, farm.ErrNotFound) {
		return nil, err
	}

	// The id may be taken by a record outside the user's ownership graph.
	// Same reason as the retry case, but no snapshot: the record is not
	// theirs to see.
	taken, err := e.store.EntityExists(ctx, adapter.kind(), entityID)
	if err != nil {
		return nil, err
	}
	if taken {
		return e.conflictFor(op, fmt.Sprintf("%s already exists", adapter.label()), nil), nil
	}

	if _, err := adapter.create(ctx, userID, entityID, body); err != nil {
		var invalid *ValidationError
		if errors.As(err, &invalid) {
			return e.conflictFor(op, invalid.Reason, nil), nil
		}
		return nil, err
	}
	return nil, nil
}

func (e *Engine) applyUpdate(ctx context.Context, userID string, adapter entityAdapter, op Operation) (*Conflict, error) {
	body := payload(op.Payload)
	rec, conflict, err := e.resolveTarget(ctx, userID, adapter, op, body)
	if rec == nil {
		return conflict, err
	}

	if _, err := adapter.update(ctx, userID, rec, body); err != nil {
		var invalid *ValidationError
		if errors.As(err, &invalid) {
			return e.conflictFor(op, invalid.Reason, nil), nil
		}
		return nil, err
	}
	return nil, nil
}

func (e *Engine) applyDelete(ctx context.Context, userID string, adapter entityAdapter, op Operation) (*Conflict, error) {
	body := payload(op.Payload)
	rec, conflict, err := e.resolveTarget(ctx, userID, adapter, op, body)
	if rec == nil {
		return conflict, err
	}

	if err := adapter.remove(ctx, userID, rec); err != nil {
		return nil, err
	}
	return nil, nil
}

// resolveTarget performs the shared update/delete preamble: target id
// present, ownership path resolves, and the optimistic concurrency check
// passes. A nil record with nil error carries the conflict to report.
func (e *Engine) resolveTarget(ctx context.Context, userID string, adapter entityAdapter, op Operation, body payload) (Record, *Conflict, error) {
	entityID := body.str("id")
	if entityID == "" {
		return nil, e.conflictFor(op, fmt.Sprintf("missing %s id", adapter.label()), nil), nil
	}

	rec, err := adapter.resolveOwned(ctx, entityID, userID)
	if errors.Is(err, farm.ErrNotFound) {
		return nil, e.conflictFor(op, fmt.Sprintf("%s not found", adapter.label()), nil), nil
	}
	if err != nil {
		return nil, nil, err
	}

	// Last-write-loses-to-server: a claim the server cannot parse, or one
	// strictly older than the stored record, sends the client back to pull.
	// An equal claim is accepted so a retried accepted write stays idempotent.
	claimed, parseErr := time.Parse(time.RFC3339, op.ClientUpdatedAt)
	if parseErr != nil || rec.LastModified().After(claimed) {
		reason := fmt.Sprintf("%s has newer updates on the server", adapter.label())
		return nil, e.conflictFor(op, reason, adapter.serialize(rec)), nil
	}

	return rec, nil, nil
}

func (e *Engine) conflictFor(op Operation, reason string, serverRecord map[string]any) *Conflict {
	return &Conflict{
		OperationID:     op.OperationID,
		Entity:          op.Entity,
		Operation:       op.Type,
		ClientUpdatedAt: op.ClientUpdatedAt,
		Payload:         op.Payload,
		ServerRecord:    serverRecord,
		Reason:          reason,
	}
}
