package farm

import "time"

// Tombstone records a deletion so disconnected clients can learn of removals
// during pull. Rows are append-only and never updated.
type Tombstone struct {
	TombstoneID uint       `gorm:"column:tombstone_id;primaryKey;autoIncrement"`
	UserID      string     `gorm:"column:user_id;size:190;not null;index:idx_tombstones_user_deleted,priority:1"`
	EntityKind  EntityKind `gorm:"column:entity_kind;size:32;not null"`
	EntityID    string     `gorm:"column:entity_id;size:190;not null"`
	DeletedAt   time.Time  `gorm:"column:deleted_at;not null;index:idx_tombstones_user_deleted,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Tombstone) TableName() string {
	return "tombstones"
}
