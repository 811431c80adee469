package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"lead_flow_app_go/db"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"
	"lead_flow_app_go/templates/pages"

	"github.com/labstack/echo/v4"
)

// LeadPageHandler renders a lead with its thread
func LeadPageHandler(c echo.Context) error {
	lead, err := services.GetLead(db.DB, c.Param("id"))
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Lead not found")
	}
	if err != nil {
		return apiError(c, err)
	}
	thread, err := services.GetThread(db.DB, lead.ID)
	if err != nil {
		return apiError(c, err)
	}

	readableLead(c, lead)
	component := pages.LeadDetail(pages.LeadDetailView{
		Lead:             lead,
		Thread:           thread,
		CanSelectProduct: lead.IsWon(),
	})
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return component.Render(c.Request().Context(), c.Response().Writer)
}

// ProductSelectPageHandler renders the product selection page. Leads that are
// not Won are sent back to the lead page.
func ProductSelectPageHandler(c echo.Context) error {
	leadID := c.Param("id")
	lead, err := services.GetLead(db.DB, leadID)
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Lead not found")
	}
	if err != nil {
		return apiError(c, err)
	}
	if !lead.IsWon() {
		return c.Redirect(http.StatusSeeOther, "/leads/"+lead.ID)
	}

	var records []models.VerificationRecord
	if err := db.DB.Select("insurance_type", "status").Where("lead_id = ?", lead.ID).Find(&records).Error; err != nil {
		return apiError(c, &services.UpstreamError{Op: "load verifications", Err: err})
	}
	existing := make(map[models.InsuranceType]models.VerificationStatus, len(records))
	for _, r := range records {
		existing[r.InsuranceType] = r.Status
	}

	readableLead(c, lead)
	view := pages.ProductSelectView{LeadID: lead.ID, LeadName: lead.Name, LeadPhone: lead.Phone}
	for _, v := range services.ProductVariants() {
		view.Options = append(view.Options, pages.ProductOption{
			Type:   string(v.Type),
			Label:  v.Label,
			Href:   fmt.Sprintf("/api/leads/%s/verification/%s_insurance", lead.ID, v.Type),
			Status: string(existing[v.Type]),
		})
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return pages.ProductSelect(view).Render(c.Request().Context(), c.Response().Writer)
}
