package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"lead_flow_app_go/logger"
	"lead_flow_app_go/models"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

const maxRemarkLength = 2000

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText strips markup from user-authored text
func sanitizeText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(strings.TrimSpace(s)))
}

// AddRemark appends a remark to a verification record. Only roles that may
// mutate verification records can write remarks.
func AddRemark(ctx context.Context, db *gorm.DB, recordID string, text string, actor Actor) (*models.VerificationRemark, error) {
	if err := requireVerificationMutator(actor, "add remark"); err != nil {
		return nil, err
	}
	remark, err := buildRemark(recordID, text, actor)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&models.VerificationRecord{}).Where("id = ?", recordID).Count(&count).Error; err != nil {
		return nil, &UpstreamError{Op: "find verification", Err: err}
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	if err := db.Create(remark).Error; err != nil {
		return nil, &UpstreamError{Op: "save remark", Err: err}
	}
	touchRecord(ctx, db, recordID)
	return remark, nil
}

func buildRemark(recordID, text string, actor Actor) (*models.VerificationRemark, error) {
	clean := sanitizeText(text)
	if clean == "" {
		return nil, NewValidationError("remark text is required", "remark")
	}
	if len(clean) > maxRemarkLength {
		return nil, NewValidationError("remark is too long", "remark")
	}

	name := actor.Name
	if name == "" {
		name = actor.Role
	}
	return &models.VerificationRemark{
		RecordID: recordID,
		Text:     clean,
		UserID:   actor.ID,
		UserName: name,
		UserRole: actor.Role,
	}, nil
}

// ListRemarks returns the remark log oldest first
func ListRemarks(db *gorm.DB, recordID string) ([]models.VerificationRemark, error) {
	remarks := []models.VerificationRemark{}
	if err := db.Where("record_id = ?", recordID).Order("created_at ASC, id ASC").Find(&remarks).Error; err != nil {
		return nil, &UpstreamError{Op: "list remarks", Err: err}
	}
	return remarks, nil
}

// LatestRemark returns the newest remark of a record, or nil if there is none
func LatestRemark(db *gorm.DB, recordID string) (*models.VerificationRemark, error) {
	var remark models.VerificationRemark
	err := db.Where("record_id = ?", recordID).Order("created_at DESC, id DESC").First(&remark).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &UpstreamError{Op: "latest remark", Err: err}
	}
	return &remark, nil
}

// touchRecord bumps updated_at after an append to one of the record's logs
// and drops the cached renewal projection, which sorts on it
func touchRecord(ctx context.Context, db *gorm.DB, recordID string) {
	err := db.Model(&models.VerificationRecord{}).Where("id = ?", recordID).UpdateColumn("updated_at", time.Now()).Error
	if err != nil {
		logger.L.Warn("failed to touch verification record", "record_id", recordID, "error", err)
		return
	}
	Projections.Invalidate(ctx)
}
