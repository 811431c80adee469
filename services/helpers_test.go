package services

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"lead_flow_app_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordingPublisher captures published status events
type recordingPublisher struct {
	mu     sync.Mutex
	events []StatusChangedEvent
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, e StatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []StatusChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StatusChangedEvent(nil), p.events...)
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique shared memory database so async audit writes see the same tables
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

	Storage = NewLocalStorage(t.TempDir())
	Projections = NewMemoryCache(time.Minute)
	Events = NoopPublisher{}

	return testDB
}

func createTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     role + " user",
		Email:    uuid.New().String() + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func actorOf(u *models.User) Actor {
	return ActorFromUser(u)
}

func createTestLead(t *testing.T, db *gorm.DB, status string) *models.Lead {
	t.Helper()
	lead := &models.Lead{Name: "Ravi Kumar", Phone: "9876543210", Email: "ravi@example.com", Status: status}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

// createTestRecord opens a verification record for a fresh won lead
func createTestRecord(t *testing.T, db *gorm.DB, insuranceType models.InsuranceType, input CreateVerificationInput) (*models.Lead, *models.VerificationRecord) {
	t.Helper()
	lead := createTestLead(t, db, models.LeadStatusWon)
	creator := createTestUser(t, db, models.RoleSalesExecutive)
	record, _, err := CreateVerification(context.Background(), db, lead.ID, insuranceType, input, actorOf(creator))
	require.NoError(t, err)
	return lead, record
}

// setRecordStatus moves a record directly, bypassing the workflow
func setRecordStatus(t *testing.T, db *gorm.DB, record *models.VerificationRecord, status models.VerificationStatus) {
	t.Helper()
	require.NoError(t, db.Model(&models.VerificationRecord{}).Where("id = ?", record.ID).Update("status", status).Error)
	record.Status = status
}

// newFileHeader builds a multipart file header the way a parsed form does
func newFileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func pdfFile(t *testing.T, name string) *multipart.FileHeader {
	return newFileHeader(t, name, "application/pdf", []byte("%PDF-1.4 test"))
}

func jpegFile(t *testing.T, name string) *multipart.FileHeader {
	return newFileHeader(t, name, "image/jpeg", []byte("\xff\xd8\xff fake jpeg"))
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.VerificationStatus) *models.VerificationStatus { return &s }

func assertAuditLogged(t *testing.T, db *gorm.DB, action models.AuditAction, resourceID string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&models.AuditLog{}).Where("action = ? AND resource_id = ?", action, resourceID).Count(&count)
		return count > 0
	}, 2*time.Second, 20*time.Millisecond)
}
