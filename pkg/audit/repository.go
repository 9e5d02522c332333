package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one recorded prediction in the audit trail.
type Entry struct {
	ID         uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey;column:id"`
	EventID    string            `json:"event_id" gorm:"column:event_id;uniqueIndex"`
	RecordID   string            `json:"record_id" gorm:"column:record_id;index"`
	Risk       string            `json:"risk" gorm:"column:risk"`
	Confidence string            `json:"confidence" gorm:"column:confidence"`
	Error      string            `json:"error,omitempty" gorm:"column:error"`
	Inputs     datatypes.JSONMap `json:"inputs" gorm:"column:inputs"`
	RecordedAt time.Time         `json:"recorded_at" gorm:"column:recorded_at"`
	CreatedAt  time.Time         `json:"created_at" gorm:"column:created_at"`
}

// TableName overrides gorm naming.
func (Entry) TableName() string {
	return "prediction_audit"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Entry{})
}

// Save inserts entry; redelivered events with a known event id are ignored.
func (r *Repository) Save(ctx context.Context, entry *Entry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(entry).Error
}

// Recent returns the most recent entries up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []Entry
	err := r.db.WithContext(ctx).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
