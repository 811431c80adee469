package services

import (
	"fmt"
	"sync"
	"time"

	"lead_flow_app_go/config"
	"lead_flow_app_go/logger"
)

const (
	failedLoginWindow    = 10 * time.Minute
	failedLoginThreshold = 5
	alertCooldown        = time.Hour
	maxAlerts            = 100
)

// LoginMonitor counts failed logins per client IP and raises an alert once
// an IP crosses the threshold inside the window.
type LoginMonitor struct {
	mu           sync.Mutex
	failedLogins map[string][]time.Time
	alertedIPs   map[string]time.Time
	alerts       []SecurityAlert
	now          func() time.Time
}

// SecurityAlert is a raised alert, newest first in RecentAlerts
type SecurityAlert struct {
	Timestamp time.Time
	IP        string
	Email     string
	Reason    string
	Level     string
}

// Monitor is the process-wide login monitor
var Monitor = NewLoginMonitor()

func NewLoginMonitor() *LoginMonitor {
	return &LoginMonitor{
		failedLogins: make(map[string][]time.Time),
		alertedIPs:   make(map[string]time.Time),
		now:          time.Now,
	}
}

// TrackFailedLogin records a failed attempt and returns the alert it raised,
// if any. Alerts for the same IP are raised at most once per cooldown.
func (m *LoginMonitor) TrackFailedLogin(cfg *config.Config, ip, email string) *SecurityAlert {
	m.mu.Lock()
	now := m.now()
	windowStart := now.Add(-failedLoginWindow)
	attempts := []time.Time{now}
	for _, t := range m.failedLogins[ip] {
		if t.After(windowStart) {
			attempts = append(attempts, t)
		}
	}
	m.failedLogins[ip] = attempts

	if len(attempts) < failedLoginThreshold {
		m.mu.Unlock()
		return nil
	}
	if last, ok := m.alertedIPs[ip]; ok && now.Sub(last) < alertCooldown {
		m.mu.Unlock()
		return nil
	}
	m.alertedIPs[ip] = now

	alert := SecurityAlert{
		Timestamp: now,
		IP:        ip,
		Email:     email,
		Reason:    "Multiple failed logins detected",
		Level:     "CRITICAL",
	}
	m.alerts = append([]SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > maxAlerts {
		m.alerts = m.alerts[:maxAlerts]
	}
	m.mu.Unlock()

	logger.L.Warn("security alert", "reason", alert.Reason, "ip", ip, "email", email, "attempts", len(attempts))
	if cfg != nil && cfg.AdminEmail != "" {
		go func() {
			if err := SendEmail(cfg, buildSecurityAlertEmail(cfg.AdminEmail, alert)); err != nil {
				logger.L.Error("failed to send security alert", "error", err)
			}
		}()
	}
	return &alert
}

// ResetFailedLogins forgets the failures of an IP after a successful login
func (m *LoginMonitor) ResetFailedLogins(ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failedLogins, ip)
}

// RecentAlerts returns a copy of the alert history
func (m *LoginMonitor) RecentAlerts() []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SecurityAlert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Prune drops attempt windows and alert cooldowns that have lapsed
func (m *LoginMonitor) Prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for ip, attempts := range m.failedLogins {
		if len(attempts) == 0 || now.Sub(attempts[0]) > failedLoginWindow {
			delete(m.failedLogins, ip)
		}
	}
	for ip, last := range m.alertedIPs {
		if now.Sub(last) > alertCooldown {
			delete(m.alertedIPs, ip)
		}
	}
}

func buildSecurityAlertEmail(to string, alert SecurityAlert) *Email {
	return &Email{
		To:      []string{to},
		Subject: fmt.Sprintf("Security alert: %s", alert.Reason),
		TextBody: fmt.Sprintf("Type: %s\nIP address: %s\nLast email tried: %s\nTime: %s\n",
			alert.Reason, alert.IP, alert.Email, alert.Timestamp.Format(time.RFC1123)),
	}
}
