package farm

import "time"

// EntityKind names one of the synchronizable record families. The values
// double as the wire identifiers exchanged with clients.
type EntityKind string

const (
	KindPlantation      EntityKind = "plantation"
	KindField           EntityKind = "field"
	KindPlantingSeason  EntityKind = "plantingSeason"
	KindActivity        EntityKind = "activity"
	KindFinancialRecord EntityKind = "financialRecord"
	KindActivityPhoto   EntityKind = "activityPhoto"
)

// Kinds lists every synchronizable entity kind in a stable order.
func Kinds() []EntityKind {
	return []EntityKind{
		KindPlantation,
		KindField,
		KindPlantingSeason,
		KindActivity,
		KindFinancialRecord,
		KindActivityPhoto,
	}
}

// Plantation is the root of every ownership path.
type Plantation struct {
	ID           string    `gorm:"column:id;primaryKey;size:190;not null"`
	OwnerID      string    `gorm:"column:owner_id;size:190;not null;index"`
	Name         string    `gorm:"column:name;size:320;not null"`
	Region       string    `gorm:"column:region;size:320"`
	AreaHectares float64   `gorm:"column:area_hectares"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;index;autoUpdateTime:false"`
}

func (Plantation) TableName() string { return "plantations" }

func (p *Plantation) RecordID() string        { return p.ID }
func (p *Plantation) LastModified() time.Time { return p.UpdatedAt }

// Field belongs to a plantation; CurrentCrop is nullable and constrained to
// the crop enumeration.
type Field struct {
	ID           string    `gorm:"column:id;primaryKey;size:190;not null"`
	PlantationID string    `gorm:"column:plantation_id;size:190;not null;index"`
	Name         string    `gorm:"column:name;size:320;not null"`
	AreaHectares float64   `gorm:"column:area_hectares"`
	SoilType     string    `gorm:"column:soil_type;size:64"`
	CurrentCrop  *string   `gorm:"column:current_crop;size:64"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;index;autoUpdateTime:false"`
}

func (Field) TableName() string { return "fields" }

func (f *Field) RecordID() string        { return f.ID }
func (f *Field) LastModified() time.Time { return f.UpdatedAt }

// PlantingSeason tracks a crop cycle on a field. Dates are carried as
// ISO date strings supplied by clients; the engine does not interpret them.
type PlantingSeason struct {
	ID                  string    `gorm:"column:id;primaryKey;size:190;not null"`
	FieldID             string    `gorm:"column:field_id;size:190;not null;index"`
	CropType            string    `gorm:"column:crop_type;size:64;not null"`
	PlantingDate        string    `gorm:"column:planting_date;size:32"`
	ExpectedHarvestDate string    `gorm:"column:expected_harvest_date;size:32"`
	Notes               string    `gorm:"column:notes;type:text"`
	CreatedAt           time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt           time.Time `gorm:"column:updated_at;not null;index;autoUpdateTime:false"`
}

func (PlantingSeason) TableName() string { return "planting_seasons" }

func (s *PlantingSeason) RecordID() string        { return s.ID }
func (s *PlantingSeason) LastModified() time.Time { return s.UpdatedAt }

// Activity records work performed on a field, optionally tied to a season.
type Activity struct {
	ID               string    `gorm:"column:id;primaryKey;size:190;not null"`
	FieldID          string    `gorm:"column:field_id;size:190;not null;index"`
	PlantingSeasonID *string   `gorm:"column:planting_season_id;size:190"`
	Category         string    `gorm:"column:category;size:64;not null"`
	Description      string    `gorm:"column:description;type:text"`
	PerformedAt      string    `gorm:"column:performed_at;size:32"`
	Cost             float64   `gorm:"column:cost"`
	CreatedAt        time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt        time.Time `gorm:"column:updated_at;not null;index;autoUpdateTime:false"`
}

func (Activity) TableName() string { return "activities" }

func (a *Activity) RecordID() string        { return a.ID }
func (a *Activity) LastModified() time.Time { return a.UpdatedAt }

// FinancialRecord captures income or expense attached to a field.
type FinancialRecord struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null"`
	FieldID     string    `gorm:"column:field_id;size:190;not null;index"`
	RecordType  string    `gorm:"column:record_type;size:16;not null"`
	Category    string    `gorm:"column:category;size:64"`
	Amount      float64   `gorm:"column:amount;not null"`
	Currency    string    `gorm:"column:currency;size:8"`
	RecordedAt  string    `gorm:"column:recorded_at;size:32"`
	Description string    `gorm:"column:description;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;index;autoUpdateTime:false"`
}

func (FinancialRecord) TableName() string { return "financial_records" }

func (r *FinancialRecord) RecordID() string        { return r.ID }
func (r *FinancialRecord) LastModified() time.Time { return r.UpdatedAt }

// ActivityPhoto references an uploaded image attached to an activity.
type ActivityPhoto struct {
	ID         string    `gorm:"column:id;primaryKey;size:190;not null"`
	ActivityID string    `gorm:"column:activity_id;size:190;not null;index"`
	URL        string    `gorm:"column:url;size:512;not null"`
	Caption    string    `gorm:"column:caption;size:320"`
	TakenAt    string    `gorm:"column:taken_at;size:32"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null;index;autoUpdateTime:false"`
}

func (ActivityPhoto) TableName() string { return "activity_photos" }

func (p *ActivityPhoto) RecordID() string        { return p.ID }
func (p *ActivityPhoto) LastModified() time.Time { return p.UpdatedAt }
