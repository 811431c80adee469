package handlers

import (
	"errors"
	"net/http"

	"lead_flow_app_go/config"
	"lead_flow_app_go/db"
	"lead_flow_app_go/logger"
	"lead_flow_app_go/middleware"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
}

// LoginHandler authenticates with email and password and opens a session.
// The token is set as a cookie and returned for bearer use.
func LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return failure(http.StatusBadRequest, "Email and password are required", "email", "password")
	}

	user, err := services.Authenticate(db.DB, req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		logger.L.Warn("failed login", "email", req.Email, "ip", c.RealIP())
		cfg, _ := c.Get("config").(*config.Config)
		services.Monitor.TrackFailedLogin(cfg, c.RealIP(), req.Email)
		return failure(http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return apiError(c, err)
	}

	session, err := services.CreateSession(db.DB, user.ID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return apiError(c, err)
	}
	middleware.SetSessionCookie(c, session)
	services.Monitor.ResetFailedLogins(c.RealIP())

	services.LogAuditEvent(db.DB, services.AuditContext{
		UserID:    user.ID,
		UserName:  user.Name,
		UserRole:  user.Role,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}, models.AuditActionLogin, "User", user.ID, user.Name, "User logged in", nil, nil)

	return respond(c, http.StatusOK, loginResponse{
		User:      user,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// LogoutHandler ends the current session
func LogoutHandler(c echo.Context) error {
	if session := middleware.GetCurrentSession(c); session != nil {
		if err := services.DeleteSession(db.DB, session.Token); err != nil {
			logger.L.Warn("failed to delete session", "error", err)
		}
		services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionLogout,
			"User", session.UserID, "", "User logged out", nil, nil)
	}
	middleware.ClearSessionCookie(c)
	return respond(c, http.StatusOK, map[string]string{"message": "Logged out"})
}

// GetCurrentUserHandler returns the authenticated user
func GetCurrentUserHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return failure(http.StatusUnauthorized, "Not authenticated")
	}
	return respond(c, http.StatusOK, user)
}
