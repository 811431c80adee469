package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"lead_flow_app_go/logger"
	"lead_flow_app_go/middleware"
	"lead_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// envelope is the JSON shape of every API response
type envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Fields     []string    `json:"fields,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func respondPage(c echo.Context, data interface{}, page, pageSize int, total int64) error {
	return c.JSON(http.StatusOK, envelope{
		Success:    true,
		Data:       data,
		Pagination: &pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

func failure(status int, message string, fields ...string) *echo.HTTPError {
	return echo.NewHTTPError(status, envelope{Success: false, Error: message, Fields: fields})
}

// apiError maps service errors to HTTP errors. Authorization errors never
// carry field names and upstream details are only logged.
func apiError(c echo.Context, err error) error {
	var ve *services.ValidationError
	var ae *services.AuthorizationError
	var ue *services.UpstreamError

	switch {
	case errors.As(err, &ae):
		return failure(http.StatusForbidden, "Insufficient permissions")
	case errors.As(err, &ve):
		return failure(http.StatusBadRequest, ve.Message, ve.Fields...)
	case errors.Is(err, services.ErrNotFound):
		return failure(http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrLeadNotWon):
		return failure(http.StatusConflict, "Lead has not been won")
	case errors.Is(err, services.ErrConflict):
		return failure(http.StatusConflict, "The record was changed by someone else, reload and try again")
	case errors.As(err, &ue):
		logger.L.Error("upstream failure", "op", ue.Op, "path", c.Path(), "error", ue.Err)
		if strings.Contains(ue.Op, "upload") {
			return failure(http.StatusBadGateway, "File storage is unavailable, please retry")
		}
		return failure(http.StatusInternalServerError, "Something went wrong, please retry")
	default:
		logger.L.Error("unhandled error", "path", c.Path(), "error", err)
		return failure(http.StatusInternalServerError, "Something went wrong, please retry")
	}
}

// currentActor returns the identity of the authenticated user
func currentActor(c echo.Context) services.Actor {
	return services.ActorFromUser(middleware.GetCurrentUser(c))
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
