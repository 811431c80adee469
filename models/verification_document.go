package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document owner scopes
const (
	ScopeProposer      = "proposer"
	ScopeLifeAssured   = "life_assured"
	ScopeInsuredPerson = "insured_person"
	ScopeVehicle       = "vehicle"
	ScopePayment       = "payment"
	ScopeVerification  = "verification"
)

// Document types used by the status-gated uploads
const (
	DocTypeBIDocument        = "BI Document"
	DocTypePaymentScreenshot = "Payment Screenshot"
	DocTypePLVCCall          = "PLVC Call"
	DocTypeWelcomeCall       = "Welcome Call"
	DocTypeSalesCall         = "Sales Call"
)

// VerificationDocument is one uploaded file. Files sharing scope, owner and
// document type form a document group.
type VerificationDocument struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RecordID     string `gorm:"type:uuid;not null;index:idx_verification_doc_group" json:"record_id"`
	OwnerScope   string `gorm:"type:varchar(32);not null;index:idx_verification_doc_group" json:"owner_scope"`
	OwnerRef     string `gorm:"type:varchar(36);not null;default:'';index:idx_verification_doc_group" json:"owner_ref,omitempty"`
	DocumentType string `gorm:"not null;index:idx_verification_doc_group" json:"document_type"`

	URL        string `gorm:"not null" json:"url"`
	FileName   string `gorm:"not null" json:"file_name"`
	StorageKey string `gorm:"not null" json:"-"`
	FileSize   int64  `json:"file_size"`
	MimeType   string `json:"mime_type,omitempty"`

	UploadedByID string `gorm:"type:uuid" json:"uploaded_by_id"`
}

// BeforeCreate hook to generate UUID
func (d *VerificationDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate keeps uploaded file references immutable
func (d *VerificationDocument) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableEntry
}

// TableName specifies the table name
func (VerificationDocument) TableName() string {
	return "verification_documents"
}
