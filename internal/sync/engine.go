package sync

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/verdantstack/agrisync/internal/farm"
)

var (
	errMissingStore = errors.New("sync: entity store is required")

	// ErrUnknownKind indicates a collection name outside the six entity kinds.
	ErrUnknownKind = errors.New("sync: unknown entity kind")

	noOpLogger = zap.NewNop()
)

// IDProvider issues identifiers for records created through the direct CRUD
// path when the caller did not supply one.
type IDProvider interface {
	NewID() (string, error)
}

// EngineConfig describes the dependencies of the sync engine.
type EngineConfig struct {
	Store      *farm.Store
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Engine reconciles queued offline mutations against server state (push) and
// produces incremental catch-up payloads (pull). It is a second writer beside
// the CRUD services and honors the same ownership and timestamp invariants.
type Engine struct {
	store    *farm.Store
	clock    func() time.Time
	ids      IDProvider
	logger   *zap.Logger
	adapters map[farm.EntityKind]entityAdapter
}

// NewEngine constructs the engine with one adapter per entity kind.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	engine := &Engine{
		store:  cfg.Store,
		clock:  clock,
		ids:    ids,
		logger: logger,
	}
	engine.adapters = map[farm.EntityKind]entityAdapter{
		farm.KindPlantation:      &plantationAdapter{store: cfg.Store},
		farm.KindField:           &fieldAdapter{store: cfg.Store},
		farm.KindPlantingSeason:  &seasonAdapter{store: cfg.Store},
		farm.KindActivity:        &activityAdapter{store: cfg.Store},
		farm.KindFinancialRecord: &financialRecordAdapter{store: cfg.Store},
		farm.KindActivityPhoto:   &photoAdapter{store: cfg.Store},
	}
	return engine, nil
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

// ServerTime exposes the engine clock so collaborators report times
// consistent with push/pull results.
func (e *Engine) ServerTime() time.Time {
	return e.now()
}

func (e *Engine) adapterFor(kind farm.EntityKind) (entityAdapter, bool) {
	adapter, ok := e.adapters[kind]
	return adapter, ok
}
