package sync

import (
	"context"

	"go.uber.org/zap"
)

// Push drives a batch of client operations through the applier, one at a
// time and in submission order. Operations are independent: a conflict or
// failure never aborts the remainder of the batch, and an operation applied
// before a later failure stays applied.
func (e *Engine) Push(ctx context.Context, userID string, operations []Operation) (PushResult, error) {
	result := PushResult{
		AppliedOperationIDs: make([]string, 0, len(operations)),
		Conflicts:           make([]Conflict, 0),
	}

	for _, op := range operations {
		conflict, err := e.applyOperation(ctx, userID, op)
		if err != nil {
			// Unexpected failure (storage, serialization). Downgraded to a
			// conflict so the batch still reports per-operation outcomes.
			e.logger.Error("sync operation failed",
				zap.String("user_id", userID),
				zap.String("entity", string(op.Entity)),
				zap.String("operation", string(op.Type)),
				zap.Error(err))
			conflict = e.conflictFor(op, err.Error(), nil)
		}
		if conflict != nil {
			result.Conflicts = append(result.Conflicts, *conflict)
			continue
		}
		if op.OperationID != "" {
			result.AppliedOperationIDs = append(result.AppliedOperationIDs, op.OperationID)
		}
	}

	result.ServerTime = e.now()
	return result, nil
}
