package handlers

import (
	"net/http"

	"lead_flow_app_go/db"
	"lead_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// ListRenewalsHandler returns every completed verification with its customer
func ListRenewalsHandler(c echo.Context) error {
	entries, err := services.RenewalProjection(c.Request().Context(), db.DB, services.RenewalQuery{
		InsuranceType: c.QueryParam("insurance_type"),
		Sort:          c.QueryParam("sort"),
	})
	if err != nil {
		return apiError(c, err)
	}
	if services.IsMaskedReader(currentActor(c).Role) {
		services.MaskRenewalContacts(entries)
	}
	return respond(c, http.StatusOK, entries)
}
