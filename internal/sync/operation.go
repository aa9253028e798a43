package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/verdantstack/agrisync/internal/farm"
)

// OperationType enumerates the client-submitted mutation intents.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// Operation is one queued client mutation. Operations in a batch are applied
// sequentially and independently; each may succeed or conflict on its own.
type Operation struct {
	OperationID     string
	Entity          farm.EntityKind
	Type            OperationType
	Payload         map[string]any
	ClientUpdatedAt string
}

// Conflict reports an operation the engine could not safely apply. Conflicts
// are data, never errors, so one bad operation cannot abort its batch.
type Conflict struct {
	OperationID     string          `json:"operationId,omitempty"`
	Entity          farm.EntityKind `json:"entity"`
	Operation       OperationType   `json:"operation"`
	ClientUpdatedAt string          `json:"clientUpdatedAt"`
	Payload         map[string]any  `json:"payload"`
	ServerRecord    map[string]any  `json:"serverRecord,omitempty"`
	Reason          string          `json:"reason"`
}

// PushResult tells the client which operations committed and which need
// reconciliation. ServerTime is the client's next checkpoint candidate.
type PushResult struct {
	AppliedOperationIDs []string   `json:"appliedOperationIds"`
	Conflicts           []Conflict `json:"conflicts"`
	ServerTime          time.Time  `json:"serverTime"`
}

// Snapshot groups serialized records by entity kind for a pull response.
type Snapshot struct {
	Plantations      []map[string]any `json:"plantations"`
	Fields           []map[string]any `json:"fields"`
	PlantingSeasons  []map[string]any `json:"plantingSeasons"`
	Activities       []map[string]any `json:"activities"`
	FinancialRecords []map[string]any `json:"financialRecords"`
	ActivityPhotos   []map[string]any `json:"activityPhotos"`
}

// Deletion informs a client that an entity it may hold locally was removed.
type Deletion struct {
	Entity    farm.EntityKind `json:"entity"`
	ID        string          `json:"id"`
	DeletedAt time.Time       `json:"deletedAt"`
}

// PullResult is the incremental catch-up payload since a checkpoint.
type PullResult struct {
	ServerTime time.Time  `json:"serverTime"`
	Data       Snapshot   `json:"data"`
	Deletions  []Deletion `json:"deletions"`
}

// Record is the minimal view the applier needs of a stored entity.
type Record interface {
	RecordID() string
	LastModified() time.Time
}

// ValidationError marks a data problem the client must fix: a missing parent
// reference, an illegal enumerated value, a duplicate identifier. The applier
// converts it into a Conflict; the direct CRUD path maps it to a 4xx status.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// payload wraps the kind-specific field bag of an operation. Presence of a
// key matters: update merges only fields the client actually sent.
type payload map[string]any

func (p payload) has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p payload) str(key string) string {
	if value, ok := p[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// strPtr distinguishes an explicit null (clear the field) from a value. Any
// other type is a client bug and reported rather than treated as a clear.
func (p payload) strPtr(key string) (*string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, nil
	}
	if value, ok := raw.(string); ok {
		trimmed := strings.TrimSpace(value)
		return &trimmed, nil
	}
	return nil, validationf("invalid %s value", key)
}

// num rejects non-numeric values so a mistyped payload field conflicts
// instead of silently zeroing the stored value.
func (p payload) num(key string) (float64, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return 0, nil
	}
	switch value := raw.(type) {
	case float64:
		return value, nil
	case int64:
		return float64(value), nil
	case int:
		return float64(value), nil
	}
	return 0, validationf("invalid %s value", key)
}
