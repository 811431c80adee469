package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Thread actions
const (
	LeadActionCreated          = "Lead Created"
	LeadActionStatusUpdate     = "Status Update"
	LeadActionAssignmentUpdate = "Assignment Update"
	LeadActionNoteAdded        = "Note Added"
)

// ErrImmutableEntry is returned when code tries to rewrite an append-only row
var ErrImmutableEntry = errors.New("entry is append-only")

// LeadActivity is one entry of a lead's thread. Entries are written once and
// never updated or deleted.
type LeadActivity struct {
	ID              string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt       time.Time `gorm:"index:idx_lead_activity_lead_time" json:"timestamp"`
	LeadID          string    `gorm:"type:uuid;not null;index:idx_lead_activity_lead_time" json:"lead_id"`
	Action          string    `gorm:"not null" json:"action"`
	Details         string    `gorm:"type:text" json:"details"`
	PerformedByID   string    `gorm:"type:uuid;index" json:"performed_by"`
	PerformedByName string    `json:"performed_by_name"`
}

// BeforeCreate hook to generate UUID
func (a *LeadActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate keeps thread entries immutable
func (a *LeadActivity) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableEntry
}

// BeforeDelete keeps thread entries immutable
func (a *LeadActivity) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableEntry
}

// TableName specifies the table name
func (LeadActivity) TableName() string {
	return "lead_activities"
}
