package services

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"lead_flow_app_go/config"
	"lead_flow_app_go/logger"

	"github.com/resend/resend-go/v2"
)

// EmailTemplateDir is where email templates are read from
var EmailTemplateDir = "templates/emails"

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// loadTemplate renders templateName.html and templateName.txt with data
func loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	htmlPath := filepath.Join(EmailTemplateDir, templateName+".html")
	content, err := os.ReadFile(htmlPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s: %w", htmlPath, err)
	}
	htmlTmpl, err := template.New(filepath.Base(htmlPath)).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", htmlPath, err)
	}
	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", htmlPath, err)
	}

	textPath := filepath.Join(EmailTemplateDir, templateName+".txt")
	content, err = os.ReadFile(textPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s: %w", textPath, err)
	}
	textTmpl, err := texttemplate.New(filepath.Base(textPath)).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", textPath, err)
	}
	var textBuf bytes.Buffer
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", textPath, err)
	}

	return htmlBuf.String(), textBuf.String(), nil
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	fromAddress := fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom)

	params := &resend.SendEmailRequest{
		From:    fromAddress,
		To:      email.To,
		Subject: email.Subject,
	}
	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	logger.L.Info("email sent", "id", sent.Id, "to", email.To)
	return nil
}

// logEmailToConsole logs email details in test mode
func logEmailToConsole(email *Email) {
	logger.L.Info("email logged (test mode, not sent)",
		"to", email.To,
		"subject", email.Subject,
		"text", truncate(email.TextBody, 500),
	)
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// CallbackReminderEmailData contains data for the callback reminder email
type CallbackReminderEmailData struct {
	UserName     string
	LeadName     string
	LeadPhone    string
	CallbackTime string
	LeadURL      string
}

// BuildCallbackReminderEmail creates the reminder sent when a scheduled callback is due
func BuildCallbackReminderEmail(userEmail string, data CallbackReminderEmailData) *Email {
	email := &Email{
		To:      []string{userEmail},
		Subject: fmt.Sprintf("Callback due: %s", data.LeadName),
	}

	htmlBody, textBody, err := loadTemplate("callback_reminder", data)
	if err != nil {
		logger.L.Warn("callback reminder template unavailable, using plain text", "error", err)
		var b strings.Builder
		fmt.Fprintf(&b, "Hi %s,\n\n", data.UserName)
		fmt.Fprintf(&b, "You scheduled a callback with %s (%s) for %s.\n\n", data.LeadName, data.LeadPhone, data.CallbackTime)
		fmt.Fprintf(&b, "Open the lead: %s\n", data.LeadURL)
		email.TextBody = b.String()
		return email
	}

	email.HTMLBody = htmlBody
	email.TextBody = textBody
	return email
}
