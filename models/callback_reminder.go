package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallbackReminder is scheduled whenever a lead moves into Callback Later
type CallbackReminder struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LeadID string `gorm:"type:uuid;not null;index" json:"lead_id"`
	Lead   *Lead  `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	RemindAt    time.Time  `gorm:"not null;index" json:"remind_at"`
	SentAt      *time.Time `gorm:"index" json:"sent_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (r *CallbackReminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (CallbackReminder) TableName() string {
	return "callback_reminders"
}

// IsPending reports whether the reminder still has to be delivered
func (r *CallbackReminder) IsPending() bool {
	return r.SentAt == nil && r.CancelledAt == nil
}
