package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"lead_flow_app_go/config"
	"lead_flow_app_go/db"
	"lead_flow_app_go/middleware"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// apiResponse mirrors the response envelope with raw data
type apiResponse struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Fields     []string        `json:"fields"`
	Pagination *pagination     `json:"pagination"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)

	err = testDB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Lead{},
		&models.LeadActivity{},
		&models.CallbackReminder{},
		&models.VerificationRecord{},
		&models.InsuredPerson{},
		&models.VerificationDocument{},
		&models.VerificationRemark{},
		&models.AuditLog{},
	)
	require.NoError(t, err)

	// Set global DB and the services it depends on
	db.DB = testDB
	services.Storage = services.NewLocalStorage(t.TempDir())
	services.Projections = services.NewMemoryCache(time.Minute)
	services.Events = services.NoopPublisher{}

	return testDB
}

// newTestServer builds an Echo instance with the application routes
func newTestServer() *echo.Echo {
	e := echo.New()
	cfg := &config.Config{Environment: "test"}
	e.Use(middleware.CSPNonce())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})
	RegisterRoutes(e)
	return e
}

func createUser(t *testing.T, role string) *models.User {
	t.Helper()
	user, err := services.CreateUser(db.DB, role+" user", uuid.New().String()+"@example.com", "secret123", role)
	require.NoError(t, err)
	return user
}

// sessionFor opens a session and returns its bearer token
func sessionFor(t *testing.T, user *models.User) string {
	t.Helper()
	session, err := services.CreateSession(db.DB, user.ID, "127.0.0.1", "test")
	require.NoError(t, err)
	return session.Token
}

func createLead(t *testing.T, status string) *models.Lead {
	t.Helper()
	lead := &models.Lead{Name: "Ravi Kumar", Phone: "9876543210", Email: "ravi@example.com", Status: status}
	require.NoError(t, db.DB.Create(lead).Error)
	return lead
}

func doRequest(e *echo.Echo, method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return doRequest(e, method, path, token, echo.MIMEApplicationJSON, body)
}

// formFile is one file part of a multipart request
type formFile struct {
	Field       string
	Name        string
	ContentType string
	Content     []byte
}

func doMultipart(t *testing.T, e *echo.Echo, path, token string, values map[string]string, files []formFile) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.Field, f.Name))
		h.Set("Content-Type", f.ContentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return doRequest(e, http.MethodPost, path, token, w.FormDataContentType(), body)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func pdfPart(field, name string) formFile {
	return formFile{Field: field, Name: name, ContentType: "application/pdf", Content: []byte("%PDF-1.4 test")}
}

func jpegPart(field, name string) formFile {
	return formFile{Field: field, Name: name, ContentType: "image/jpeg", Content: []byte("\xff\xd8\xff fake jpeg")}
}
