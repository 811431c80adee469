package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InsuredPerson is a person covered by a health policy. Documents reference the
// stable ID, so reordering persons never moves their files.
type InsuredPerson struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RecordID string            `gorm:"type:uuid;not null;index" json:"record_id"`
	Position int               `gorm:"not null" json:"position"`
	Name     string            `gorm:"not null" json:"name"`
	Details  datatypes.JSONMap `json:"details,omitempty"`
}

// BeforeCreate hook to generate UUID
func (p *InsuredPerson) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (InsuredPerson) TableName() string {
	return "insured_persons"
}
