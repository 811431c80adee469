package jobs

import (
	"time"

	"lead_flow_app_go/config"
	"lead_flow_app_go/logger"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"

	"gorm.io/gorm"
)

// SendCallbackReminders emails the owner of every due callback and marks it sent.
// Reminders whose lead left Callback Later are cancelled instead.
func SendCallbackReminders(database *gorm.DB, cfg *config.Config) int {
	now := time.Now()

	var reminders []models.CallbackReminder
	err := database.Preload("Lead").Preload("User").
		Where("remind_at <= ?", now).
		Where("sent_at IS NULL AND cancelled_at IS NULL").
		Order("remind_at ASC").
		Find(&reminders).Error
	if err != nil {
		logger.L.Error("failed to fetch due callbacks", "error", err)
		return 0
	}

	sent := 0
	for _, r := range reminders {
		if r.Lead == nil || r.Lead.Status != models.LeadStatusCallbackLater {
			database.Model(&models.CallbackReminder{}).Where("id = ?", r.ID).Update("cancelled_at", now)
			continue
		}
		if r.User == nil || r.User.Email == "" {
			logger.L.Warn("callback owner has no email", "reminder_id", r.ID, "user_id", r.UserID)
			continue
		}

		callbackTime := r.RemindAt
		if r.Lead.CallbackTime != nil {
			callbackTime = *r.Lead.CallbackTime
		}
		email := services.BuildCallbackReminderEmail(r.User.Email, services.CallbackReminderEmailData{
			UserName:     r.User.Name,
			LeadName:     r.Lead.Name,
			LeadPhone:    r.Lead.Phone,
			CallbackTime: callbackTime.Format("Monday, January 2, 2006 3:04 PM"),
			LeadURL:      cfg.AppURL + "/leads/" + r.Lead.ID,
		})

		if err := services.SendEmail(cfg, email); err != nil {
			logger.L.Error("failed to send callback reminder", "reminder_id", r.ID, "error", err)
			continue
		}

		// only the first worker to claim the row counts it
		res := database.Model(&models.CallbackReminder{}).
			Where("id = ? AND sent_at IS NULL", r.ID).
			Update("sent_at", time.Now())
		if res.Error == nil && res.RowsAffected == 1 {
			sent++
		}
	}

	if sent > 0 {
		logger.L.Info("callback reminders sent", "count", sent)
	}
	return sent
}
