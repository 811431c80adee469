package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"lead_flow_app_go/logger"
	"lead_flow_app_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrDuplicateVerification is returned with the existing record when a second
// record is requested for the same lead and insurance type
var ErrDuplicateVerification = fmt.Errorf("%w: verification already exists for this lead and insurance type", ErrConflict)

// InsuredPersonInput describes one insured person at creation time
type InsuredPersonInput struct {
	Name    string                 `json:"name"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// InitialFile is a file submitted with the creation form. PersonIndex selects
// the insured person for insured_person documents and is ignored otherwise.
type InitialFile struct {
	Scope        string
	DocumentType string
	PersonIndex  int
	File         *multipart.FileHeader
}

// CreateVerificationInput is the first submission of a verification record
type CreateVerificationInput struct {
	ProductFields   map[string]interface{}
	InsuredPersons  []InsuredPersonInput
	PolicyIssueDate *time.Time
	RenewalType     *string
	Files           []InitialFile
}

// VerificationPatch is a field-scoped update. Nil fields are left untouched;
// product field keys set to nil are removed.
type VerificationPatch struct {
	Status          *models.VerificationStatus
	ProductFields   map[string]interface{}
	PolicyIssueDate *time.Time
	RenewalType     *string
	Remark          *string
}

// VerificationFilters narrows verification listings
type VerificationFilters struct {
	Status        string
	InsuranceType string
	LeadID        string
}

// VerificationDetail is a record with its document groups, remarks and the
// actions open to the reader
type VerificationDetail struct {
	*models.VerificationRecord
	DocumentGroups []DocumentGroup             `json:"documents"`
	Remarks        []models.VerificationRemark `json:"remarks"`
	NextStatuses   []models.VerificationStatus `json:"next_statuses"`
	UploadSlots    []string                    `json:"upload_slots"`
	Variant        string                      `json:"variant"`
}

// CreateVerification opens the verification workflow for a won lead. Files in
// the submission are stored best-effort and reported per file.
func CreateVerification(ctx context.Context, db *gorm.DB, leadID string, insuranceType models.InsuranceType, input CreateVerificationInput, actor Actor) (*models.VerificationRecord, *BatchResult, error) {
	if !models.IsValidRole(actor.Role) {
		return nil, nil, &AuthorizationError{Role: actor.Role, Operation: "create verification"}
	}
	variant, ok := VariantFor(insuranceType)
	if !ok {
		return nil, nil, NewValidationError(fmt.Sprintf("unknown insurance type %q", insuranceType), "insurance_type")
	}

	lead, err := GetLead(db, leadID)
	if err != nil {
		return nil, nil, err
	}
	if !lead.IsWon() {
		return nil, nil, ErrLeadNotWon
	}

	if existing, err := findVerification(db, leadID, insuranceType); err == nil {
		return existing, nil, ErrDuplicateVerification
	} else if !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}

	if err := validateInsuredPersons(variant, input.InsuredPersons); err != nil {
		return nil, nil, err
	}
	fields, err := mergeProductFields(nil, input.ProductFields)
	if err != nil {
		return nil, nil, err
	}

	record := &models.VerificationRecord{
		LeadID:          leadID,
		InsuranceType:   insuranceType,
		Status:          models.VerificationSubmitted,
		ProductFields:   fields,
		PolicyIssueDate: input.PolicyIssueDate,
		RenewalType:     normalizeRenewalType(input.RenewalType),
		CreatedByID:     actor.ID,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		for i, p := range input.InsuredPersons {
			person := models.InsuredPerson{
				RecordID: record.ID,
				Position: i + 1,
				Name:     strings.TrimSpace(p.Name),
				Details:  datatypes.JSONMap(p.Details),
			}
			if err := tx.Create(&person).Error; err != nil {
				return err
			}
			record.InsuredPersons = append(record.InsuredPersons, person)
		}
		return nil
	})
	if err != nil {
		// a concurrent create won the unique index
		if existing, findErr := findVerification(db, leadID, insuranceType); findErr == nil {
			return existing, nil, ErrDuplicateVerification
		}
		return nil, nil, &UpstreamError{Op: "create verification", Err: err}
	}

	LogAuditEvent(db, AuditContextFor(actor), models.AuditActionCreate, "VerificationRecord", record.ID,
		variant.Label, fmt.Sprintf("%s verification opened for %s", variant.Label, lead.Name), nil, nil)

	result := storeInitialFiles(ctx, db, record, input.Files, actor)
	return record, result, nil
}

func storeInitialFiles(ctx context.Context, db *gorm.DB, record *models.VerificationRecord, files []InitialFile, actor Actor) *BatchResult {
	result := &BatchResult{Uploaded: []FileRef{}}
	for _, f := range files {
		if f.File == nil {
			continue
		}
		target := UploadTarget{Scope: f.Scope, DocumentType: f.DocumentType}
		if f.Scope == models.ScopeInsuredPerson {
			if f.PersonIndex < 0 || f.PersonIndex >= len(record.InsuredPersons) {
				result.Errors = append(result.Errors, FileError{FileName: f.File.Filename, Message: "unknown insured person"})
				continue
			}
			target.OwnerRef = record.InsuredPersons[f.PersonIndex].ID
		}

		kind, err := checkDocumentGate(actor, record, target.Scope, target.DocumentType)
		if err == nil {
			err = checkOwner(db, record, target)
		}
		var ref *FileRef
		if err == nil {
			ref, err = storeDocument(ctx, db, record, target, f.File, kind, actor)
		}
		if err != nil {
			result.Errors = append(result.Errors, FileError{FileName: f.File.Filename, Message: clientMessage(err)})
			continue
		}
		result.Uploaded = append(result.Uploaded, *ref)
	}
	return result
}

// GetVerification loads the record of a lead and insurance type
func GetVerification(db *gorm.DB, leadID string, insuranceType models.InsuranceType) (*models.VerificationRecord, error) {
	return findVerification(db, leadID, insuranceType)
}

// GetVerificationDetail loads a record with everything a reader needs
func GetVerificationDetail(db *gorm.DB, leadID string, insuranceType models.InsuranceType, actor Actor) (*VerificationDetail, error) {
	record, err := findVerification(db, leadID, insuranceType)
	if err != nil {
		return nil, err
	}
	groups, err := Groups(db, record.ID)
	if err != nil {
		return nil, err
	}
	remarks, err := ListRemarks(db, record.ID)
	if err != nil {
		return nil, err
	}

	detail := &VerificationDetail{
		VerificationRecord: record,
		DocumentGroups:     groups,
		Remarks:            remarks,
		NextStatuses:       []models.VerificationStatus{},
		UploadSlots:        []string{},
	}
	if v, ok := VariantFor(record.InsuranceType); ok {
		detail.Variant = v.Label
	}
	if CanMutateVerification(actor.Role) {
		detail.NextStatuses = append(detail.NextStatuses, NextStatuses(actor.Role, record.Status)...)
		detail.UploadSlots = append(detail.UploadSlots, UploadSlots(actor.Role, record)...)
	}
	return detail, nil
}

// UpdateVerification applies a field-scoped patch. Authorization is checked
// first, then the transition, then the Payment Coordinator's mandatory fields.
// Nothing is written when any check fails.
func UpdateVerification(ctx context.Context, db *gorm.DB, leadID string, insuranceType models.InsuranceType, patch VerificationPatch, actor Actor) (*models.VerificationRecord, error) {
	if err := requireVerificationMutator(actor, "update verification"); err != nil {
		return nil, err
	}

	record, err := findVerification(db, leadID, insuranceType)
	if err != nil {
		return nil, err
	}

	from := record.Status
	to := from
	if patch.Status != nil {
		if err := CheckTransition(actor, from, *patch.Status); err != nil {
			return nil, err
		}
		to = *patch.Status
	}

	if patch.RenewalType != nil {
		patch.RenewalType = normalizeRenewalTypeValue(*patch.RenewalType)
	}
	if actor.Role == models.RolePaymentCoordinator {
		if err := requireIssuanceFields(record, patch); err != nil {
			return nil, err
		}
	}

	var remark *models.VerificationRemark
	if patch.Remark != nil && strings.TrimSpace(*patch.Remark) != "" {
		remark, err = buildRemark(record.ID, *patch.Remark, actor)
		if err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{}
	if patch.ProductFields != nil {
		merged, err := mergeProductFields(record.ProductFields, patch.ProductFields)
		if err != nil {
			return nil, err
		}
		updates["product_fields"] = merged
	}
	if patch.PolicyIssueDate != nil {
		if patch.PolicyIssueDate.IsZero() {
			updates["policy_issue_date"] = nil
		} else {
			updates["policy_issue_date"] = *patch.PolicyIssueDate
		}
	}
	if patch.RenewalType != nil {
		if *patch.RenewalType == "" {
			updates["renewal_type"] = nil
		} else {
			updates["renewal_type"] = *patch.RenewalType
		}
	}
	statusChanged := to != from
	now := time.Now()
	if statusChanged {
		updates["status"] = to
		updates["status_changed_at"] = now
		updates["status_changed_by"] = actor.ID
	}

	if len(updates) == 0 && remark == nil {
		return record, nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			res := tx.Model(&models.VerificationRecord{}).
				Where("id = ? AND status = ?", record.ID, from).
				Updates(updates)
			if res.Error != nil {
				return &UpstreamError{Op: "update verification", Err: res.Error}
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("status changed concurrently: %w", ErrConflict)
			}
		}
		if remark != nil {
			if err := tx.Create(remark).Error; err != nil {
				return &UpstreamError{Op: "save remark", Err: err}
			}
			if len(updates) == 0 {
				return tx.Model(&models.VerificationRecord{}).Where("id = ?", record.ID).UpdateColumn("updated_at", now).Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit := AuditContextFor(actor)
	if statusChanged {
		LogAuditEvent(db, audit, models.AuditActionStatusChange, "VerificationRecord", record.ID, string(record.InsuranceType),
			fmt.Sprintf("Status changed from %s to %s", from, to),
			map[string]interface{}{"status": from}, map[string]interface{}{"status": to})

		event := StatusChangedEvent{
			RecordID:      record.ID,
			LeadID:        record.LeadID,
			InsuranceType: string(record.InsuranceType),
			From:          string(from),
			To:            string(to),
			ChangedBy:     actor.ID,
			ChangedByRole: actor.Role,
			ChangedAt:     now,
		}
		if err := Events.PublishStatusChanged(ctx, event); err != nil {
			logger.L.Warn("failed to publish status event", "record_id", record.ID, "error", err)
		}
	} else if len(updates) > 0 {
		LogAuditEvent(db, audit, models.AuditActionUpdate, "VerificationRecord", record.ID, string(record.InsuranceType),
			"Verification details updated", nil, updates)
	}

	if from == models.VerificationPLVCDone || to == models.VerificationPLVCDone {
		Projections.Invalidate(ctx)
	}

	return findVerification(db, leadID, insuranceType)
}

// ListVerifications returns a page of records with their leads, newest activity first
func ListVerifications(db *gorm.DB, filters VerificationFilters, page, pageSize int) ([]models.VerificationRecord, int64, error) {
	query := db.Model(&models.VerificationRecord{})

	if filters.Status != "" {
		if !models.VerificationStatus(filters.Status).IsValid() {
			return nil, 0, NewValidationError(fmt.Sprintf("unknown status %q", filters.Status), "status")
		}
		query = query.Where("status = ?", filters.Status)
	}
	if filters.InsuranceType != "" {
		t, ok := ParseInsuranceType(filters.InsuranceType)
		if !ok {
			return nil, 0, NewValidationError(fmt.Sprintf("unknown insurance type %q", filters.InsuranceType), "insurance_type")
		}
		query = query.Where("insurance_type = ?", t)
	}
	if filters.LeadID != "" {
		query = query.Where("lead_id = ?", filters.LeadID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, &UpstreamError{Op: "count verifications", Err: err}
	}

	page, pageSize = normalizePage(page, pageSize)
	records := []models.VerificationRecord{}
	err := query.Preload("Lead").
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, &UpstreamError{Op: "list verifications", Err: err}
	}
	return records, total, nil
}

func findVerification(db *gorm.DB, leadID string, insuranceType models.InsuranceType) (*models.VerificationRecord, error) {
	var record models.VerificationRecord
	err := db.Preload("InsuredPersons", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	}).Where("lead_id = ? AND insurance_type = ?", leadID, insuranceType).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &UpstreamError{Op: "load verification", Err: err}
	}
	return &record, nil
}

// requireIssuanceFields rejects a Payment Coordinator save that would leave
// policy issue date or renewal type unset
func requireIssuanceFields(record *models.VerificationRecord, patch VerificationPatch) error {
	var missing []string

	hasIssueDate := record.PolicyIssueDate != nil
	if patch.PolicyIssueDate != nil {
		hasIssueDate = !patch.PolicyIssueDate.IsZero()
	}
	if !hasIssueDate {
		missing = append(missing, "policy_issue_date")
	}

	hasRenewalType := record.RenewalType != nil && *record.RenewalType != ""
	if patch.RenewalType != nil {
		hasRenewalType = *patch.RenewalType != ""
	}
	if !hasRenewalType {
		missing = append(missing, "renewal_type")
	}

	if len(missing) > 0 {
		return NewValidationError("policy issue date and renewal type are required", missing...)
	}
	return nil
}

func validateInsuredPersons(variant ProductVariant, persons []InsuredPersonInput) error {
	if !variant.UsesInsuredPersons() {
		if len(persons) > 0 {
			return NewValidationError(fmt.Sprintf("%s does not cover insured persons", variant.Label), "insured_persons")
		}
		return nil
	}
	if len(persons) < variant.MinInsuredPersons || len(persons) > variant.MaxInsuredPersons {
		return NewValidationError(fmt.Sprintf("between %d and %d insured persons are required", variant.MinInsuredPersons, variant.MaxInsuredPersons), "insured_persons")
	}
	for i, p := range persons {
		if strings.TrimSpace(p.Name) == "" {
			return NewValidationError(fmt.Sprintf("insured person %d needs a name", i+1), "insured_persons")
		}
	}
	return nil
}

// mergeProductFields merges the patch into current key by key. A nil value
// removes the key.
func mergeProductFields(current datatypes.JSONMap, patch map[string]interface{}) (datatypes.JSONMap, error) {
	merged := datatypes.JSONMap{}
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		key := strings.TrimSpace(k)
		if key == "" {
			return nil, NewValidationError("product field names cannot be empty", "product_fields")
		}
		if v == nil {
			delete(merged, key)
			continue
		}
		merged[key] = v
	}
	return merged, nil
}

func normalizeRenewalType(v *string) *string {
	if v == nil {
		return nil
	}
	n := normalizeRenewalTypeValue(*v)
	if *n == "" {
		return nil
	}
	return n
}

func normalizeRenewalTypeValue(v string) *string {
	s := strings.TrimSpace(v)
	return &s
}
