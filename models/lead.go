package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lead status constants. Any status may follow any other.
const (
	LeadStatusFresh            = "Fresh"
	LeadStatusInterested       = "Interested"
	LeadStatusRinging          = "Ringing"
	LeadStatusFollowUp         = "Follow Up"
	LeadStatusCallDisconnected = "Call Disconnected"
	LeadStatusCallbackLater    = "Callback Later"
	LeadStatusWrongNumber      = "Wrong Number"
	LeadStatusWon              = "Won"
	LeadStatusLost             = "Lost"
)

// LeadStatuses lists every sales status in display order
var LeadStatuses = []string{
	LeadStatusFresh,
	LeadStatusInterested,
	LeadStatusRinging,
	LeadStatusFollowUp,
	LeadStatusCallDisconnected,
	LeadStatusCallbackLater,
	LeadStatusWrongNumber,
	LeadStatusWon,
	LeadStatusLost,
}

// Lead is a sales prospect
type Lead struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name   string `gorm:"not null;index" json:"name"`
	Phone  string `gorm:"not null;index" json:"phone"`
	Email  string `json:"email,omitempty"`
	Source string `json:"source,omitempty"`

	Status       string     `gorm:"not null;default:Fresh;index" json:"status"`
	CallbackTime *time.Time `json:"callback_time,omitempty"`

	AssignedToID   *string `gorm:"type:uuid;index" json:"assigned_to_id,omitempty"`
	AssignedTo     *User   `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	AssignedFromID *string `gorm:"type:uuid" json:"assigned_from_id,omitempty"`
	AssignedFrom   *User   `gorm:"foreignKey:AssignedFromID" json:"assigned_from,omitempty"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id,omitempty"`

	Thread []LeadActivity `gorm:"foreignKey:LeadID" json:"thread,omitempty"`
}

// BeforeCreate hook to generate UUID and default status
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = LeadStatusFresh
	}
	return nil
}

// TableName specifies the table name for Lead model
func (Lead) TableName() string {
	return "leads"
}

// IsWon reports whether the lead converted
func (l *Lead) IsWon() bool {
	return l.Status == LeadStatusWon
}

// IsValidLeadStatus checks if the status is a known sales status
func IsValidLeadStatus(status string) bool {
	for _, s := range LeadStatuses {
		if s == status {
			return true
		}
	}
	return false
}
