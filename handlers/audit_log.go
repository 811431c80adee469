package handlers

import (
	"net/http"
	"time"

	"lead_flow_app_go/db"
	"lead_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// GetAuditLogsHandler returns filtered and paginated audit logs
func GetAuditLogsHandler(c echo.Context) error {
	page, pageSize := pageParams(c)

	filters := services.AuditLogFilters{
		UserID:       c.QueryParam("user_id"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
	}
	if dateFrom := c.QueryParam("date_from"); dateFrom != "" {
		if t, err := time.Parse("2006-01-02", dateFrom); err == nil {
			filters.DateFrom = t
		}
	}
	if dateTo := c.QueryParam("date_to"); dateTo != "" {
		if t, err := time.Parse("2006-01-02", dateTo); err == nil {
			filters.DateTo = t.Add(24*time.Hour - time.Second) // end of day
		}
	}

	logs, total, err := services.ListAuditLogs(db.DB, filters, page, pageSize)
	if err != nil {
		return failure(http.StatusInternalServerError, "Failed to fetch audit logs")
	}
	return respondPage(c, logs, page, pageSize, total)
}

// GetResourceHistoryHandler returns the audit history for a specific resource
func GetResourceHistoryHandler(c echo.Context) error {
	logs, err := services.GetResourceAuditHistory(db.DB, c.Param("type"), c.Param("id"))
	if err != nil {
		return failure(http.StatusInternalServerError, "Failed to fetch resource history")
	}
	return respond(c, http.StatusOK, logs)
}
