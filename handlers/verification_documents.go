package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"lead_flow_app_go/db"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// Recording categories as sent by the PLVC form
var recordingCategories = map[string]string{
	"plvc_call":         models.DocTypePLVCCall,
	"verification_call": models.DocTypePLVCCall,
	"welcome_call":      models.DocTypeWelcomeCall,
	"sales_call":        models.DocTypeSalesCall,
}

type documentUploadResponse struct {
	Uploaded []services.FileRef   `json:"uploaded"`
	Errors   []services.FileError `json:"errors,omitempty"`
	Files    []services.FileRef   `json:"files"`
}

type addRemarkRequest struct {
	Remark string `json:"remark" form:"remark"`
}

// loadRecord resolves the :id and :type parameters to a verification record
func loadRecord(c echo.Context) (*models.VerificationRecord, error) {
	insuranceType, err := insuranceTypeParam(c)
	if err != nil {
		return nil, err
	}
	return services.GetVerification(db.DB, c.Param("id"), insuranceType)
}

// uploadedFiles collects the files sent under "files" and "file"
func uploadedFiles(c echo.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, services.NewValidationError("expected a multipart form with files", "files")
	}
	var files []*multipart.FileHeader
	files = append(files, form.File["files"]...)
	files = append(files, form.File["file"]...)
	if len(files) == 0 {
		return nil, services.NewValidationError("no files were uploaded", "files")
	}
	return files, nil
}

func uploadToGroup(c echo.Context, target services.UploadTarget) error {
	record, err := loadRecord(c)
	if err != nil {
		return apiError(c, err)
	}
	files, err := uploadedFiles(c)
	if err != nil {
		return apiError(c, err)
	}

	result, err := services.AddFiles(c.Request().Context(), db.DB, record, target, files, currentActor(c))
	if err != nil {
		return apiError(c, err)
	}
	group, err := services.ListByType(db.DB, record.ID, target)
	if err != nil {
		return apiError(c, err)
	}

	resp := documentUploadResponse{Uploaded: result.Uploaded, Errors: result.Errors, Files: group}
	if len(result.Uploaded) == 0 {
		return c.JSON(http.StatusBadRequest, envelope{Success: false, Error: "No files were uploaded", Data: resp})
	}
	return respond(c, http.StatusOK, resp)
}

// UploadDocumentsHandler appends files to any document group of the record
func UploadDocumentsHandler(c echo.Context) error {
	scope := strings.TrimSpace(c.FormValue("scope"))
	docType := strings.TrimSpace(c.FormValue("document_type"))
	if scope == "" || docType == "" {
		return failure(http.StatusBadRequest, "scope and document_type are required", "scope", "document_type")
	}
	return uploadToGroup(c, services.UploadTarget{
		Scope:        scope,
		OwnerRef:     strings.TrimSpace(c.FormValue("insured_person_id")),
		DocumentType: docType,
	})
}

// UploadInsuredDocumentsHandler appends files to a document group of one insured person
func UploadInsuredDocumentsHandler(c echo.Context) error {
	docType := strings.TrimSpace(c.FormValue("document_type"))
	if docType == "" {
		return failure(http.StatusBadRequest, "document_type is required", "document_type")
	}
	return uploadToGroup(c, services.UploadTarget{
		Scope:        models.ScopeInsuredPerson,
		OwnerRef:     c.Param("personId"),
		DocumentType: docType,
	})
}

// UploadBIDocumentHandler stores the benefit illustration
func UploadBIDocumentHandler(c echo.Context) error {
	return uploadToGroup(c, services.UploadTarget{Scope: models.ScopePayment, DocumentType: models.DocTypeBIDocument})
}

// UploadPaymentScreenshotHandler stores proof of payment
func UploadPaymentScreenshotHandler(c echo.Context) error {
	return uploadToGroup(c, services.UploadTarget{Scope: models.ScopePayment, DocumentType: models.DocTypePaymentScreenshot})
}

// UploadRecordingHandler stores a call recording under its category
func UploadRecordingHandler(c echo.Context) error {
	docType, ok := recordingCategory(c.FormValue("category"))
	if !ok {
		return failure(http.StatusBadRequest, "category must be one of PLVC Call, Welcome Call or Sales Call", "category")
	}
	return uploadToGroup(c, services.UploadTarget{Scope: models.ScopeVerification, DocumentType: docType})
}

func recordingCategory(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case models.DocTypePLVCCall, models.DocTypeWelcomeCall, models.DocTypeSalesCall:
		return raw, true
	}
	slug := strings.ReplaceAll(strings.ToLower(raw), " ", "_")
	docType, ok := recordingCategories[slug]
	return docType, ok
}

// ListDocumentsHandler returns every document group of the record
func ListDocumentsHandler(c echo.Context) error {
	record, err := loadRecord(c)
	if err != nil {
		return apiError(c, err)
	}
	groups, err := services.Groups(db.DB, record.ID)
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusOK, groups)
}

// AddRemarkHandler appends a remark to the record's log
func AddRemarkHandler(c echo.Context) error {
	var req addRemarkRequest
	if err := c.Bind(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body")
	}
	record, err := loadRecord(c)
	if err != nil {
		return apiError(c, err)
	}

	remark, err := services.AddRemark(c.Request().Context(), db.DB, record.ID, req.Remark, currentActor(c))
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusCreated, remark)
}

// ListRemarksHandler returns the remark log, oldest first
func ListRemarksHandler(c echo.Context) error {
	record, err := loadRecord(c)
	if errors.Is(err, services.ErrNotFound) {
		return failure(http.StatusNotFound, "No verification exists for this lead and insurance type")
	}
	if err != nil {
		return apiError(c, err)
	}
	remarks, err := services.ListRemarks(db.DB, record.ID)
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, http.StatusOK, remarks)
}
