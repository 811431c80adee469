package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"lead_flow_app_go/db"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// Form fields of the creation form that are not product fields
var reservedCreateFields = map[string]bool{
	"product_fields":    true,
	"insured_persons":   true,
	"policy_issue_date": true,
	"policyIssueDate":   true,
	"renewal_type":      true,
	"renewalType":       true,
}

var (
	documentFieldPattern = regexp.MustCompile(`^documents\[([a-z_]+)\]\[([^\]]+)\]$`)
	insuredFieldPattern  = regexp.MustCompile(`^insured\[(\d+)\]\[([^\]]+)\]$`)
)

type updateVerificationRequest struct {
	Status               *string                `json:"status"`
	ProductFields        map[string]interface{} `json:"product_fields"`
	PolicyIssueDate      *string                `json:"policy_issue_date"`
	PolicyIssueDateCamel *string                `json:"policyIssueDate"`
	RenewalType          *string                `json:"renewal_type"`
	RenewalTypeCamel     *string                `json:"renewalType"`
	Remark               *string                `json:"remark"`
}

type createVerificationResponse struct {
	Record *models.VerificationRecord `json:"record"`
	Files  *services.BatchResult      `json:"files"`
}

func insuranceTypeParam(c echo.Context) (models.InsuranceType, error) {
	t, ok := services.ParseInsuranceType(c.Param("type"))
	if !ok {
		return "", services.NewValidationError("unknown insurance type", "type")
	}
	return t, nil
}

// CreateVerificationHandler opens the verification record of a won lead from a
// multipart form. Files are named documents[<scope>][<document type>] or
// insured[<person index>][<document type>].
func CreateVerificationHandler(c echo.Context) error {
	insuranceType, err := insuranceTypeParam(c)
	if err != nil {
		return apiError(c, err)
	}

	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return failure(http.StatusBadRequest, "Invalid multipart form")
	}

	input, err := parseCreateForm(form)
	if err != nil {
		return apiError(c, err)
	}

	record, files, err := services.CreateVerification(c.Request().Context(), db.DB, c.Param("id"), insuranceType, input, currentActor(c))
	if errors.Is(err, services.ErrDuplicateVerification) {
		return c.JSON(http.StatusConflict, envelope{
			Success: false,
			Error:   "A verification already exists for this lead and insurance type",
			Data:    record,
		})
	}
	if err != nil {
		return apiError(c, err)
	}

	return respond(c, http.StatusCreated, createVerificationResponse{Record: record, Files: files})
}

func parseCreateForm(form *multipart.Form) (services.CreateVerificationInput, error) {
	input := services.CreateVerificationInput{ProductFields: map[string]interface{}{}}
	if form == nil {
		return input, nil
	}

	value := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := form.Value[k]; ok && len(v) > 0 {
				return v[0], true
			}
		}
		return "", false
	}

	if raw, ok := value("product_fields"); ok && strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &input.ProductFields); err != nil {
			return input, services.NewValidationError("product_fields must be a JSON object", "product_fields")
		}
	}
	for k, v := range form.Value {
		if reservedCreateFields[k] || len(v) == 0 {
			continue
		}
		input.ProductFields[k] = v[0]
	}

	if raw, ok := value("insured_persons"); ok && strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &input.InsuredPersons); err != nil {
			return input, services.NewValidationError("insured_persons must be a JSON array", "insured_persons")
		}
	}
	if raw, ok := value("policy_issue_date", "policyIssueDate"); ok && strings.TrimSpace(raw) != "" {
		t, err := services.ParseDate(raw, "policy_issue_date")
		if err != nil {
			return input, err
		}
		input.PolicyIssueDate = t
	}
	if raw, ok := value("renewal_type", "renewalType"); ok {
		input.RenewalType = &raw
	}

	for field, headers := range form.File {
		for _, fh := range headers {
			if m := documentFieldPattern.FindStringSubmatch(field); m != nil {
				input.Files = append(input.Files, services.InitialFile{Scope: m[1], DocumentType: m[2], PersonIndex: -1, File: fh})
				continue
			}
			if m := insuredFieldPattern.FindStringSubmatch(field); m != nil {
				idx, _ := strconv.Atoi(m[1])
				input.Files = append(input.Files, services.InitialFile{Scope: models.ScopeInsuredPerson, DocumentType: m[2], PersonIndex: idx, File: fh})
				continue
			}
			// unknown field names surface as per-file errors
			input.Files = append(input.Files, services.InitialFile{Scope: field, PersonIndex: -1, File: fh})
		}
	}
	return input, nil
}

// GetVerificationHandler returns the record with its documents and remarks
func GetVerificationHandler(c echo.Context) error {
	insuranceType, err := insuranceTypeParam(c)
	if err != nil {
		return apiError(c, err)
	}

	detail, err := services.GetVerificationDetail(db.DB, c.Param("id"), insuranceType, currentActor(c))
	if errors.Is(err, services.ErrNotFound) {
		return failure(http.StatusNotFound, "No verification exists for this lead and insurance type")
	}
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusOK, detail)
}

// UpdateVerificationHandler applies a JSON patch of status, product fields,
// policy issue date, renewal type and an optional remark
func UpdateVerificationHandler(c echo.Context) error {
	insuranceType, err := insuranceTypeParam(c)
	if err != nil {
		return apiError(c, err)
	}

	var req updateVerificationRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid JSON body")
	}

	patch, err := req.toPatch()
	if err != nil {
		return apiError(c, err)
	}

	record, err := services.UpdateVerification(c.Request().Context(), db.DB, c.Param("id"), insuranceType, patch, currentActor(c))
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusOK, record)
}

func (r updateVerificationRequest) toPatch() (services.VerificationPatch, error) {
	patch := services.VerificationPatch{
		ProductFields: r.ProductFields,
		Remark:        r.Remark,
		RenewalType:   r.RenewalType,
	}
	if patch.RenewalType == nil {
		patch.RenewalType = r.RenewalTypeCamel
	}
	if r.Status != nil {
		st := models.VerificationStatus(strings.TrimSpace(*r.Status))
		patch.Status = &st
	}

	issueDate := r.PolicyIssueDate
	if issueDate == nil {
		issueDate = r.PolicyIssueDateCamel
	}
	if issueDate != nil {
		t, err := services.ParseDate(*issueDate, "policy_issue_date")
		if err != nil {
			return patch, err
		}
		patch.PolicyIssueDate = t
	}
	return patch, nil
}

// ListVerificationsHandler lists records with optional status and type filters
func ListVerificationsHandler(c echo.Context) error {
	page, pageSize := pageParams(c)
	records, total, err := services.ListVerifications(db.DB, services.VerificationFilters{
		Status:        c.QueryParam("status"),
		InsuranceType: c.QueryParam("insurance_type"),
		LeadID:        c.QueryParam("lead_id"),
	}, page, pageSize)
	if err != nil {
		return apiError(c, err)
	}

	for i := range records {
		if records[i].Lead != nil {
			readableLead(c, records[i].Lead)
		}
	}
	return respondPage(c, records, page, pageSize, total)
}
