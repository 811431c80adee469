package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerificationStatus is a step of the post-sale verification workflow
type VerificationStatus string

const (
	VerificationSubmitted        VerificationStatus = "submitted"
	VerificationProcessing       VerificationStatus = "processing"
	VerificationLinkCreated      VerificationStatus = "link_created"
	VerificationPaymentDone      VerificationStatus = "payment_done"
	VerificationPLVCVerification VerificationStatus = "PLVC_verification"
	VerificationPLVCDone         VerificationStatus = "PLVC_done"
)

// VerificationStatuses lists the workflow in order
var VerificationStatuses = []VerificationStatus{
	VerificationSubmitted,
	VerificationProcessing,
	VerificationLinkCreated,
	VerificationPaymentDone,
	VerificationPLVCVerification,
	VerificationPLVCDone,
}

// Rank returns the position of the status in the workflow, or -1 if unknown
func (s VerificationStatus) Rank() int {
	for i, st := range VerificationStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether the status belongs to the workflow
func (s VerificationStatus) IsValid() bool {
	return s.Rank() >= 0
}

// InsuranceType selects the product variant of a verification record
type InsuranceType string

const (
	InsuranceTerm   InsuranceType = "term"
	InsuranceHealth InsuranceType = "health"
	InsuranceLife   InsuranceType = "life"
	InsuranceCar    InsuranceType = "car"
)

// VerificationRecord tracks policy issuance for one lead and product type
type VerificationRecord struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	LeadID        string        `gorm:"type:uuid;not null;uniqueIndex:idx_verification_lead_type" json:"lead_id"`
	Lead          *Lead         `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	InsuranceType InsuranceType `gorm:"type:varchar(20);not null;uniqueIndex:idx_verification_lead_type" json:"insurance_type"`

	Status          VerificationStatus `gorm:"type:varchar(32);not null;default:submitted;index" json:"status"`
	StatusChangedAt *time.Time         `json:"status_changed_at,omitempty"`
	StatusChangedBy *string            `gorm:"type:uuid" json:"status_changed_by,omitempty"`

	ProductFields datatypes.JSONMap `json:"product_fields"`

	PolicyIssueDate *time.Time `json:"policy_issue_date,omitempty"`
	RenewalType     *string    `json:"renewal_type,omitempty"`

	CreatedByID string `gorm:"type:uuid" json:"created_by_id"`

	InsuredPersons []InsuredPerson        `gorm:"foreignKey:RecordID" json:"insured_persons,omitempty"`
	Documents      []VerificationDocument `gorm:"foreignKey:RecordID" json:"-"`
	Remarks        []VerificationRemark   `gorm:"foreignKey:RecordID" json:"-"`
}

// BeforeCreate hook to generate UUID and initial status
func (r *VerificationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = VerificationSubmitted
	}
	if r.ProductFields == nil {
		r.ProductFields = datatypes.JSONMap{}
	}
	return nil
}

// TableName specifies the table name
func (VerificationRecord) TableName() string {
	return "verification_records"
}

// IsDone reports whether the workflow reached its terminal status
func (r *VerificationRecord) IsDone() bool {
	return r.Status == VerificationPLVCDone
}
