package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lead_flow_app_go/models"

	"gorm.io/gorm"
)

// LeadInput holds the fields accepted when a lead is created
type LeadInput struct {
	Name         string
	Phone        string
	Email        string
	Source       string
	AssignedToID string
}

// LeadPatch holds contact fields to change; nil fields are left untouched
type LeadPatch struct {
	Name   *string
	Phone  *string
	Email  *string
	Source *string
}

// LeadFilters narrows lead listings
type LeadFilters struct {
	Status       string
	AssignedToID string
	Search       string
}

// CreateLead creates a Fresh lead and opens its thread
func CreateLead(db *gorm.DB, input LeadInput, actor Actor) (*models.Lead, error) {
	if err := requireLeadMutator(actor, "create lead"); err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	var missing []string
	if input.Name == "" {
		missing = append(missing, "name")
	}
	if input.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return nil, NewValidationError("missing required fields", missing...)
	}

	lead := &models.Lead{
		Name:   input.Name,
		Phone:  input.Phone,
		Email:  strings.TrimSpace(input.Email),
		Source: strings.TrimSpace(input.Source),
		Status: models.LeadStatusFresh,
	}
	if actor.ID != "" {
		lead.CreatedByID = &actor.ID
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if input.AssignedToID != "" {
			if err := requireActiveUser(tx, input.AssignedToID); err != nil {
				return err
			}
			lead.AssignedToID = &input.AssignedToID
		}
		if err := tx.Create(lead).Error; err != nil {
			return &UpstreamError{Op: "create lead", Err: err}
		}
		return appendActivity(tx, lead.ID, models.LeadActionCreated, "Lead created", actor)
	})
	if err != nil {
		return nil, err
	}

	LogAuditEvent(db, AuditContextFor(actor), models.AuditActionCreate, "Lead", lead.ID, lead.Name, "Lead created", nil, nil)
	return lead, nil
}

// GetLead loads a lead with its assignees
func GetLead(db *gorm.DB, id string) (*models.Lead, error) {
	var lead models.Lead
	err := db.Preload("AssignedTo").Preload("AssignedFrom").First(&lead, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &UpstreamError{Op: "load lead", Err: err}
	}
	return &lead, nil
}

// ListLeads returns a page of leads, most recently updated first
func ListLeads(db *gorm.DB, filters LeadFilters, page, pageSize int) ([]models.Lead, int64, error) {
	query := db.Model(&models.Lead{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.AssignedToID != "" {
		query = query.Where("assigned_to_id = ?", filters.AssignedToID)
	}
	if filters.Search != "" {
		pattern := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, &UpstreamError{Op: "count leads", Err: err}
	}

	page, pageSize = normalizePage(page, pageSize)
	leads := []models.Lead{}
	err := query.Preload("AssignedTo").
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&leads).Error
	if err != nil {
		return nil, 0, &UpstreamError{Op: "list leads", Err: err}
	}
	return leads, total, nil
}

// UpdateLead patches contact fields only. Status and assignment are untouched
// and no thread entry is written.
func UpdateLead(ctx context.Context, db *gorm.DB, id string, patch LeadPatch, actor Actor) (*models.Lead, error) {
	if err := requireLeadMutator(actor, "update lead"); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, NewValidationError("name cannot be empty", "name")
		}
		updates["name"] = name
	}
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		if phone == "" {
			return nil, NewValidationError("phone cannot be empty", "phone")
		}
		updates["phone"] = phone
	}
	if patch.Email != nil {
		updates["email"] = strings.TrimSpace(*patch.Email)
	}
	if patch.Source != nil {
		updates["source"] = strings.TrimSpace(*patch.Source)
	}

	lead, err := GetLead(db, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return lead, nil
	}
	if err := db.Model(&models.Lead{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, &UpstreamError{Op: "update lead", Err: err}
	}
	Projections.Invalidate(ctx)
	return GetLead(db, id)
}

// ChangeLeadStatus moves a lead to any sales status. Callback Later requires a
// callback time and schedules a reminder for the assignee.
func ChangeLeadStatus(ctx context.Context, db *gorm.DB, id string, status string, callbackTime *time.Time, actor Actor) (*models.Lead, error) {
	if err := requireLeadMutator(actor, "change lead status"); err != nil {
		return nil, err
	}
	if !models.IsValidLeadStatus(status) {
		return nil, NewValidationError(fmt.Sprintf("unknown status %q", status), "status")
	}
	if status == models.LeadStatusCallbackLater && (callbackTime == nil || callbackTime.IsZero()) {
		return nil, NewValidationError("callback time is required for Callback Later", "callback_time")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		lead, err := lockLead(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"status": status, "callback_time": nil}
		if status == models.LeadStatusCallbackLater {
			updates["callback_time"] = *callbackTime
		}
		if err := tx.Model(&models.Lead{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return &UpstreamError{Op: "update lead status", Err: err}
		}

		details := fmt.Sprintf("Status changed from %s to %s", lead.Status, status)
		if err := appendActivity(tx, id, models.LeadActionStatusUpdate, details, actor); err != nil {
			return err
		}

		if err := cancelPendingReminders(tx, id); err != nil {
			return err
		}
		if status == models.LeadStatusCallbackLater {
			owner := actor.ID
			if lead.AssignedToID != nil {
				owner = *lead.AssignedToID
			}
			reminder := models.CallbackReminder{LeadID: id, UserID: owner, RemindAt: *callbackTime}
			if err := tx.Create(&reminder).Error; err != nil {
				return &UpstreamError{Op: "schedule callback", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	Projections.Invalidate(ctx)

	return GetLead(db, id)
}

// AssignLead hands the lead to another user and keeps the previous owner
func AssignLead(db *gorm.DB, id string, userID string, actor Actor) (*models.Lead, error) {
	if err := requireLeadMutator(actor, "assign lead"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, NewValidationError("assignee is required", "assigned_to")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		lead, err := lockLead(tx, id)
		if err != nil {
			return err
		}
		if err := requireActiveUser(tx, userID); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"assigned_to_id":   userID,
			"assigned_from_id": lead.AssignedToID,
		}
		if err := tx.Model(&models.Lead{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return &UpstreamError{Op: "assign lead", Err: err}
		}

		// pending callbacks follow the lead
		if err := tx.Model(&models.CallbackReminder{}).
			Where("lead_id = ? AND sent_at IS NULL AND cancelled_at IS NULL", id).
			Update("user_id", userID).Error; err != nil {
			return &UpstreamError{Op: "reassign callbacks", Err: err}
		}

		return appendActivity(tx, id, models.LeadActionAssignmentUpdate, "Assigned to "+userID, actor)
	})
	if err != nil {
		return nil, err
	}

	return GetLead(db, id)
}

// AddLeadNote appends a free-text note to the thread
func AddLeadNote(db *gorm.DB, id string, text string, actor Actor) (*models.LeadActivity, error) {
	if err := requireLeadMutator(actor, "add note"); err != nil {
		return nil, err
	}
	note := sanitizeText(text)
	if note == "" {
		return nil, NewValidationError("note text is required", "note")
	}

	var entry *models.LeadActivity
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockLead(tx, id); err != nil {
			return err
		}
		entry = newActivity(id, models.LeadActionNoteAdded, note, actor)
		if err := tx.Create(entry).Error; err != nil {
			return &UpstreamError{Op: "append thread", Err: err}
		}
		return tx.Model(&models.Lead{}).Where("id = ?", id).UpdateColumn("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetThread returns the lead's thread oldest first
func GetThread(db *gorm.DB, id string) ([]models.LeadActivity, error) {
	if _, err := GetLead(db, id); err != nil {
		return nil, err
	}
	thread := []models.LeadActivity{}
	if err := db.Where("lead_id = ?", id).Order("created_at ASC, id ASC").Find(&thread).Error; err != nil {
		return nil, &UpstreamError{Op: "load thread", Err: err}
	}
	return thread, nil
}

// MaskLeadContact masks phone and email in place for restricted readers
func MaskLeadContact(lead *models.Lead) {
	lead.Phone = MaskPhone(lead.Phone)
	if lead.Email != "" {
		lead.Email = MaskEmail(lead.Email)
	}
}

func lockLead(tx *gorm.DB, id string) (*models.Lead, error) {
	var lead models.Lead
	err := tx.First(&lead, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &UpstreamError{Op: "load lead", Err: err}
	}
	return &lead, nil
}

func requireActiveUser(tx *gorm.DB, userID string) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ? AND is_active = ?", userID, true).Count(&count).Error; err != nil {
		return &UpstreamError{Op: "find user", Err: err}
	}
	if count == 0 {
		return NewValidationError("assignee is not an active user", "assigned_to")
	}
	return nil
}

func newActivity(leadID, action, details string, actor Actor) *models.LeadActivity {
	return &models.LeadActivity{
		LeadID:          leadID,
		Action:          action,
		Details:         details,
		PerformedByID:   actor.ID,
		PerformedByName: actor.Name,
	}
}

func appendActivity(tx *gorm.DB, leadID, action, details string, actor Actor) error {
	if err := tx.Create(newActivity(leadID, action, details, actor)).Error; err != nil {
		return &UpstreamError{Op: "append thread", Err: err}
	}
	return nil
}

func cancelPendingReminders(tx *gorm.DB, leadID string) error {
	err := tx.Model(&models.CallbackReminder{}).
		Where("lead_id = ? AND sent_at IS NULL AND cancelled_at IS NULL", leadID).
		Update("cancelled_at", time.Now()).Error
	if err != nil {
		return &UpstreamError{Op: "cancel callbacks", Err: err}
	}
	return nil
}
