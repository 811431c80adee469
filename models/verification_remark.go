package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationRemark is an append-only note on a verification record
type VerificationRemark struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_remark_record_time" json:"timestamp"`

	RecordID string `gorm:"type:uuid;not null;index:idx_remark_record_time" json:"record_id"`
	Text     string `gorm:"type:text;not null" json:"text"`
	UserID   string `gorm:"type:uuid" json:"user_id"`
	UserName string `json:"user"`
	UserRole string `json:"user_role"`
}

// BeforeCreate hook to generate UUID
func (r *VerificationRemark) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate keeps remarks immutable
func (r *VerificationRemark) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableEntry
}

// BeforeDelete keeps remarks immutable
func (r *VerificationRemark) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableEntry
}

// TableName specifies the table name
func (VerificationRemark) TableName() string {
	return "verification_remarks"
}
