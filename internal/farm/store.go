package farm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the record does not exist or the requesting user
	// has no ownership path to it. Callers cannot distinguish the two cases.
	ErrNotFound = errors.New("farm: record not found")

	errMissingDatabase   = errors.New("farm: database handle is required")
	errUnknownEntityKind = errors.New("farm: unknown entity kind")
)

// StoreConfig describes the dependencies of the entity store.
type StoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Store persists the six synchronizable entity kinds plus the tombstone log.
// Every read is scoped by the ownership path of the requesting user; there is
// no unscoped access. UpdatedAt is server-authoritative and bumped on every
// write through this store, whichever path (CRUD or sync) triggered it.
type Store struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewStore constructs the entity store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{db: cfg.Database, clock: clock}, nil
}

// Now exposes the store clock so collaborators stamp consistent times.
func (s *Store) Now() time.Time {
	return s.clock().UTC()
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Ownership scopes. Each joins the parent chain down to plantations.owner_id
// so a query can never return another user's rows.

func ownedFields(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN plantations ON plantations.id = fields.plantation_id").
			Where("plantations.owner_id = ?", userID)
	}
}

func ownedSeasons(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN fields ON fields.id = planting_seasons.field_id").
			Joins("JOIN plantations ON plantations.id = fields.plantation_id").
			Where("plantations.owner_id = ?", userID)
	}
}

func ownedActivities(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN fields ON fields.id = activities.field_id").
			Joins("JOIN plantations ON plantations.id = fields.plantation_id").
			Where("plantations.owner_id = ?", userID)
	}
}

func ownedFinancialRecords(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN fields ON fields.id = financial_records.field_id").
			Joins("JOIN plantations ON plantations.id = fields.plantation_id").
			Where("plantations.owner_id = ?", userID)
	}
}

func ownedPhotos(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN activities ON activities.id = activity_photos.activity_id").
			Joins("JOIN fields ON fields.id = activities.field_id").
			Joins("JOIN plantations ON plantations.id = fields.plantation_id").
			Where("plantations.owner_id = ?", userID)
	}
}

// Plantations

func (s *Store) ResolvePlantation(ctx context.Context, plantationID, userID string) (*Plantation, error) {
	var plantation Plantation
	err := s.db.WithContext(ctx).
		Where("plantations.id = ? AND plantations.owner_id = ?", plantationID, userID).
		Take(&plantation).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &plantation, nil
}

func (s *Store) ListPlantationsSince(ctx context.Context, userID string, since time.Time) ([]*Plantation, error) {
	var plantations []*Plantation
	err := s.db.WithContext(ctx).
		Where("plantations.owner_id = ? AND plantations.updated_at > ?", userID, since).
		Order("plantations.updated_at ASC").
		Find(&plantations).Error
	return plantations, err
}

func (s *Store) CreatePlantation(ctx context.Context, plantation *Plantation) error {
	now := s.Now()
	plantation.CreatedAt = now
	plantation.UpdatedAt = now
	return s.db.WithContext(ctx).Create(plantation).Error
}

func (s *Store) SavePlantation(ctx context.Context, plantation *Plantation) error {
	plantation.UpdatedAt = s.Now()
	return s.db.WithContext(ctx).Save(plantation).Error
}

func (s *Store) DeletePlantation(ctx context.Context, userID string, plantation *Plantation) error {
	now := s.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Plantation{}, "id = ?", plantation.ID).Error; err != nil {
			return err
		}
		return appendTombstone(tx, userID, KindPlantation, plantation.ID, now)
	})
}

// Fields

func (s *Store) ResolveField(ctx context.Context, fieldID, userID string) (*Field, error) {
	var field Field
	err := s.db.WithContext(ctx).
		Scopes(ownedFields(userID)).
		Where("fields.id = ?", fieldID).
		Take(&field).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &field, nil
}

func (s *Store) ListFieldsSince(ctx context.Context, userID string, since time.Time) ([]*Field, error) {
	var fields []*Field
	err := s.db.WithContext(ctx).
		Scopes(ownedFields(userID)).
		Where("fields.updated_at > ?", since).
		Order("fields.updated_at ASC").
		Find(&fields).Error
	return fields, err
}

func (s *Store) CreateField(ctx context.Context, field *Field) error {
	now := s.Now()
	field.CreatedAt = now
	field.UpdatedAt = now
	return s.db.WithContext(ctx).Create(field).Error
}

func (s *Store) SaveField(ctx context.Context, field *Field) error {
	field.UpdatedAt = s.Now()
	return s.db.WithContext(ctx).Save(field).Error
}

func (s *Store) DeleteField(ctx context.Context, userID string, field *Field) error {
	now := s.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Field{}, "id = ?", field.ID).Error; err != nil {
			return err
		}
		return appendTombstone(tx, userID, KindField, field.ID, now)
	})
}

// Planting seasons

func (s *Store) ResolvePlantingSeason(ctx context.Context, seasonID, userID string) (*PlantingSeason, error) {
	var season PlantingSeason
	err := s.db.WithContext(ctx).
		Scopes(ownedSeasons(userID)).
		Where("planting_seasons.id = ?", seasonID).
		Take(&season).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &season, nil
}

func (s *Store) ListPlantingSeasonsSince(ctx context.Context, userID string, since time.Time) ([]*PlantingSeason, error) {
	var seasons []*PlantingSeason
	err := s.db.WithContext(ctx).
		Scopes(ownedSeasons(userID)).
		Where("planting_seasons.updated_at > ?", since).
		Order("planting_seasons.updated_at ASC").
		Find(&seasons).Error
	return seasons, err
}

func (s *Store) CreatePlantingSeason(ctx context.Context, season *PlantingSeason) error {
	now := s.Now()
	season.CreatedAt = now
	season.UpdatedAt = now
	return s.db.WithContext(ctx).Create(season).Error
}

func (s *Store) SavePlantingSeason(ctx context.Context, season *PlantingSeason) error {
	season.UpdatedAt = s.Now()
	return s.db.WithContext(ctx).Save(season).Error
}

func (s *Store) DeletePlantingSeason(ctx context.Context, userID string, season *PlantingSeason) error {
	now := s.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&PlantingSeason{}, "id = ?", season.ID).Error; err != nil {
			return err
		}
		return appendTombstone(tx, userID, KindPlantingSeason, season.ID, now)
	})
}

// Activities

func (s *Store) ResolveActivity(ctx context.Context, activityID, userID string) (*Activity, error) {
	var activity Activity
	err := s.db.WithContext(ctx).
		Scopes(ownedActivities(userID)).
		Where("activities.id = ?", activityID).
		Take(&activity).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &activity, nil
}

func (s *Store) ListActivitiesSince(ctx context.Context, userID string, since time.Time) ([]*Activity, error) {
	var activities []*Activity
	err := s.db.WithContext(ctx).
		Scopes(ownedActivities(userID)).
		Where("activities.updated_at > ?", since).
		Order("activities.updated_at ASC").
		Find(&activities).Error
	return activities, err
}

func (s *Store) CreateActivity(ctx context.Context, activity *Activity) error {
	now := s.Now()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	return s.db.WithContext(ctx).Create(activity).Error
}

func (s *Store) SaveActivity(ctx context.Context, activity *Activity) error {
	activity.UpdatedAt = s.Now()
	return s.db.WithContext(ctx).Save(activity).Error
}

func (s *Store) DeleteActivity(ctx context.Context, userID string, activity *Activity) error {
	now := s.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Activity{}, "id = ?", activity.ID).Error; err != nil {
			return err
		}
		return appendTombstone(tx, userID, KindActivity, activity.ID, now)
	})
}

// Financial records

func (s *Store) ResolveFinancialRecord(ctx context.Context, recordID, userID string) (*FinancialRecord, error) {
	var record FinancialRecord
	err := s.db.WithContext(ctx).
		Scopes(ownedFinancialRecords(userID)).
		Where("financial_records.id = ?", recordID).
		Take(&record).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &record, nil
}

func (s *Store) ListFinancialRecordsSince(ctx context.Context, userID string, since time.Time) ([]*FinancialRecord, error) {
	var records []*FinancialRecord
	err := s.db.WithContext(ctx).
		Scopes(ownedFinancialRecords(userID)).
		Where("financial_records.updated_at > ?", since).
		Order("financial_records.updated_at ASC").
		Find(&records).Error
	return records, err
}

func (s *Store) CreateFinancialRecord(ctx context.Context, record *FinancialRecord) error {
	now := s.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *Store) SaveFinancialRecord(ctx context.Context, record *FinancialRecord) error {
	record.UpdatedAt = s.Now()
	return s.db.WithContext(ctx).Save(record).Error
}

func (s *Store) DeleteFinancialRecord(ctx context.Context, userID string, record *FinancialRecord) error {
	now := s.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&FinancialRecord{}, "id = ?", record.ID).Error; err != nil {
			return err
		}
		return appendTombstone(tx, userID, KindFinancialRecord, record.ID, now)
	})
}

// Activity photos

func (s *Store) ResolveActivityPhoto(ctx context.Context, photoID, userID string) (*ActivityPhoto, error) {
	var photo ActivityPhoto
	err := s.db.WithContext(ctx).
		Scopes(ownedPhotos(userID)).
		Where("activity_photos.id = ?", photoID).
		Take(&photo).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &photo, nil
}

func (s *Store) ListActivityPhotosSince(ctx context.Context, userID string, since time.Time) ([]*ActivityPhoto, error) {
	var photos []*ActivityPhoto
	err := s.db.WithContext(ctx).
		Scopes(ownedPhotos(userID)).
		Where("activity_photos.updated_at > ?", since).
		Order("activity_photos.updated_at ASC").
		Find(&photos).Error
	return photos, err
}

func (s *Store) CreateActivityPhoto(ctx context.Context, photo *ActivityPhoto) error {
	now := s.Now()
	photo.CreatedAt = now
	photo.UpdatedAt = now
	return s.db.WithContext(ctx).Create(photo).Error
}

func (s *Store) SaveActivityPhoto(ctx context.Context, photo *ActivityPhoto) error {
	photo.UpdatedAt = s.Now()
	return s.db.WithContext(ctx).Save(photo).Error
}

func (s *Store) DeleteActivityPhoto(ctx context.Context, userID string, photo *ActivityPhoto) error {
	now := s.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ActivityPhoto{}, "id = ?", photo.ID).Error; err != nil {
			return err
		}
		return appendTombstone(tx, userID, KindActivityPhoto, photo.ID, now)
	})
}

// EntityExists reports whether any record of the kind occupies the id,
// regardless of owner. The create paths use it so an id collision with a
// foreign record reads exactly like a collision with one's own, leaking
// nothing beyond the fact that the id is taken.
func (s *Store) EntityExists(ctx context.Context, kind EntityKind, entityID string) (bool, error) {
	var model any
	switch kind {
	case KindPlantation:
		model = &Plantation{}
	case KindField:
		model = &Field{}
	case KindPlantingSeason:
		model = &PlantingSeason{}
	case KindActivity:
		model = &Activity{}
	case KindFinancialRecord:
		model = &FinancialRecord{}
	case KindActivityPhoto:
		model = &ActivityPhoto{}
	default:
		return false, errUnknownEntityKind
	}
	var count int64
	err := s.db.WithContext(ctx).Model(model).Where("id = ?", entityID).Count(&count).Error
	return count > 0, err
}

// Tombstones

func appendTombstone(tx *gorm.DB, userID string, kind EntityKind, entityID string, deletedAt time.Time) error {
	return tx.Create(&Tombstone{
		UserID:     userID,
		EntityKind: kind,
		EntityID:   entityID,
		DeletedAt:  deletedAt,
	}).Error
}

// RecordDeletion appends a tombstone outside the per-kind delete helpers. It
// exists for callers that remove rows through their own transaction, so the
// tombstone log stays complete regardless of deletion path.
func (s *Store) RecordDeletion(ctx context.Context, userID string, kind EntityKind, entityID string) error {
	return appendTombstone(s.db.WithContext(ctx), userID, kind, entityID, s.Now())
}

// ListDeletionsSince returns the user's tombstones newer than since, oldest
// first, so a client replaying them never sees a later deletion early.
func (s *Store) ListDeletionsSince(ctx context.Context, userID string, since time.Time) ([]*Tombstone, error) {
	var tombstones []*Tombstone
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND deleted_at > ?", userID, since).
		Order("deleted_at ASC").
		Find(&tombstones).Error
	return tombstones, err
}
