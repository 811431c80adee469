package handlers

import (
	"fmt"
	"net/http"
	"time"

	"lead_flow_app_go/db"
	"lead_flow_app_go/middleware"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportLeadsRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

// ExportLeadsHandler streams the selected leads as an xlsx workbook
func ExportLeadsHandler(c echo.Context) error {
	var req exportLeadsRequest
	if err := c.Bind(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}

	rows, err := services.BuildExportRows(db.DB, req.LeadIDs)
	if err != nil {
		return apiError(c, err)
	}
	actor := currentActor(c)
	buf, err := services.ExportLeadsWorkbook(rows, services.IsMaskedReader(actor.Role))
	if err != nil {
		return apiError(c, err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), models.AuditActionExport, "Lead", "",
		"", fmt.Sprintf("Exported %d leads", len(rows)), nil, map[string]interface{}{"lead_ids": req.LeadIDs})

	filename := fmt.Sprintf("leads_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
