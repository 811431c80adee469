package handlers

import (
	"net/http"

	"lead_flow_app_go/db"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

type createLeadRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Source       string `json:"source"`
	AssignedToID string `json:"assigned_to"`
}

type updateLeadRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Email  *string `json:"email"`
	Source *string `json:"source"`
}

type leadStatusRequest struct {
	Status       string  `json:"status"`
	CallbackTime *string `json:"callback_time"`
}

type assignLeadRequest struct {
	AssignedTo string `json:"assigned_to"`
}

type leadNoteRequest struct {
	Note string `json:"note"`
}

// readableLead applies the reader's masking policy
func readableLead(c echo.Context, lead *models.Lead) *models.Lead {
	if services.IsMaskedReader(currentActor(c).Role) {
		services.MaskLeadContact(lead)
	}
	return lead
}

// CreateLeadHandler creates a Fresh lead
func CreateLeadHandler(c echo.Context) error {
	var req createLeadRequest
	if err := c.Bind(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}

	lead, err := services.CreateLead(db.DB, services.LeadInput{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Source:       req.Source,
		AssignedToID: req.AssignedToID,
	}, currentActor(c))
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusCreated, readableLead(c, lead))
}

// ListLeadsHandler lists leads with optional status, assignee and search filters
func ListLeadsHandler(c echo.Context) error {
	page, pageSize := pageParams(c)
	filters := services.LeadFilters{
		Status:       c.QueryParam("status"),
		AssignedToID: c.QueryParam("assigned_to"),
		Search:       c.QueryParam("q"),
	}
	if filters.Status != "" && !models.IsValidLeadStatus(filters.Status) {
		return failure(http.StatusBadRequest, "Unknown status", "status")
	}

	leads, total, err := services.ListLeads(db.DB, filters, page, pageSize)
	if err != nil {
		return apiError(c, err)
	}
	for i := range leads {
		readableLead(c, &leads[i])
	}
	return respondPage(c, leads, page, pageSize, total)
}

// GetLeadHandler returns one lead
func GetLeadHandler(c echo.Context) error {
	lead, err := services.GetLead(db.DB, c.Param("id"))
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusOK, readableLead(c, lead))
}

// UpdateLeadHandler patches contact fields
func UpdateLeadHandler(c echo.Context) error {
	var req updateLeadRequest
	if err := c.Bind(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}

	lead, err := services.UpdateLead(c.Request().Context(), db.DB, c.Param("id"), services.LeadPatch{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Source: req.Source,
	}, currentActor(c))
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusOK, readableLead(c, lead))
}

// ChangeLeadStatusHandler moves a lead to another sales status
func ChangeLeadStatusHandler(c echo.Context) error {
	var req leadStatusRequest
	if err := c.Bind(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}

	lead, err := changeLeadStatus(c, req)
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusOK, readableLead(c, lead))
}

func changeLeadStatus(c echo.Context, req leadStatusRequest) (*models.Lead, error) {
	actor := currentActor(c)
	if req.CallbackTime == nil || *req.CallbackTime == "" {
		return services.ChangeLeadStatus(c.Request().Context(), db.DB, c.Param("id"), req.Status, nil, actor)
	}
	t, err := services.ParseDate(*req.CallbackTime, "callback_time")
	if err != nil {
		return nil, err
	}
	return services.ChangeLeadStatus(c.Request().Context(), db.DB, c.Param("id"), req.Status, t, actor)
}

// AssignLeadHandler hands a lead to another user
func AssignLeadHandler(c echo.Context) error {
	var req assignLeadRequest
	if err := c.Bind(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}

	lead, err := services.AssignLead(db.DB, c.Param("id"), req.AssignedTo, currentActor(c))
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusOK, readableLead(c, lead))
}

// AddLeadNoteHandler appends a note to the lead's thread
func AddLeadNoteHandler(c echo.Context) error {
	var req leadNoteRequest
	if err := c.Bind(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}

	entry, err := services.AddLeadNote(db.DB, c.Param("id"), req.Note, currentActor(c))
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusCreated, entry)
}

// GetLeadThreadHandler returns the lead's thread oldest first
func GetLeadThreadHandler(c echo.Context) error {
	thread, err := services.GetThread(db.DB, c.Param("id"))
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusOK, thread)
}
