package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lead_flow_app_go/logger"
	"lead_flow_app_go/models"

	"gorm.io/gorm"
)

// Renewal sort orders
const (
	RenewalSortRecent  = "recent"
	RenewalSortCreated = "created"
	RenewalSortName    = "name"
)

var renewalOrder = map[string]string{
	RenewalSortRecent:  "v.updated_at DESC, v.id ASC",
	RenewalSortCreated: "v.created_at DESC, v.id ASC",
	RenewalSortName:    "l.name ASC, v.id ASC",
}

// RenewalEntry is a completed verification record joined with its lead
type RenewalEntry struct {
	RecordID        string                    `json:"record_id"`
	LeadID          string                    `json:"lead_id"`
	InsuranceType   models.InsuranceType      `json:"insurance_type"`
	Status          models.VerificationStatus `json:"status"`
	PolicyIssueDate *time.Time                `json:"policy_issue_date,omitempty"`
	RenewalType     *string                   `json:"renewal_type,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	CustomerName    string                    `json:"customer_name"`
	Phone           string                    `json:"phone"`
	Email           string                    `json:"email"`
	LeadStatus      string                    `json:"lead_status"`
}

// RenewalQuery filters and orders the projection
type RenewalQuery struct {
	InsuranceType string
	Sort          string
}

// RenewalProjection lists every PLVC_done record with its lead's identity
func RenewalProjection(ctx context.Context, db *gorm.DB, q RenewalQuery) ([]RenewalEntry, error) {
	if q.Sort == "" {
		q.Sort = RenewalSortRecent
	}
	order, ok := renewalOrder[q.Sort]
	if !ok {
		return nil, NewValidationError(fmt.Sprintf("unknown sort %q", q.Sort), "sort")
	}
	var insuranceType models.InsuranceType
	if q.InsuranceType != "" {
		t, ok := ParseInsuranceType(q.InsuranceType)
		if !ok {
			return nil, NewValidationError(fmt.Sprintf("unknown insurance type %q", q.InsuranceType), "insurance_type")
		}
		insuranceType = t
	}

	cacheKey := fmt.Sprintf("%s:%s", insuranceType, q.Sort)
	if cached, ok := Projections.Get(ctx, cacheKey); ok {
		var entries []RenewalEntry
		if err := json.Unmarshal(cached, &entries); err == nil {
			return entries, nil
		}
	}

	query := db.WithContext(ctx).
		Table("verification_records AS v").
		Select(`v.id AS record_id, v.lead_id, v.insurance_type, v.status, v.policy_issue_date,
			v.renewal_type, v.created_at, v.updated_at,
			l.name AS customer_name, l.phone, l.email, l.status AS lead_status`).
		Joins("JOIN leads AS l ON l.id = v.lead_id AND l.deleted_at IS NULL").
		Where("v.status = ?", models.VerificationPLVCDone)
	if insuranceType != "" {
		query = query.Where("v.insurance_type = ?", insuranceType)
	}

	entries := []RenewalEntry{}
	if err := query.Order(order).Scan(&entries).Error; err != nil {
		return nil, &UpstreamError{Op: "renewal projection", Err: err}
	}

	if payload, err := json.Marshal(entries); err == nil {
		Projections.Set(ctx, cacheKey, payload)
	} else {
		logger.L.Warn("failed to encode renewal projection", "error", err)
	}
	return entries, nil
}

// MaskRenewalContacts masks phone and email of every entry in place
func MaskRenewalContacts(entries []RenewalEntry) {
	for i := range entries {
		entries[i].Phone = MaskPhone(entries[i].Phone)
		if entries[i].Email != "" {
			entries[i].Email = MaskEmail(entries[i].Email)
		}
	}
}
