package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lead_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a won lead", func(t *testing.T) {
		db := setupServiceTestDB(t)
		lead := createTestLead(t, db, models.LeadStatusInterested)
		exec := createTestUser(t, db, models.RoleSalesExecutive)

		_, _, err := CreateVerification(ctx, db, lead.ID, models.InsuranceCar, CreateVerificationInput{}, actorOf(exec))
		assert.ErrorIs(t, err, ErrLeadNotWon)

		var count int64
		db.Model(&models.VerificationRecord{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("unknown lead", func(t *testing.T) {
		db := setupServiceTestDB(t)
		exec := createTestUser(t, db, models.RoleSalesExecutive)

		_, _, err := CreateVerification(ctx, db, "missing", models.InsuranceCar, CreateVerificationInput{}, actorOf(exec))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("starts submitted with product fields", func(t *testing.T) {
		db := setupServiceTestDB(t)
		_, record := createTestRecord(t, db, models.InsuranceCar, CreateVerificationInput{
			ProductFields: map[string]interface{}{"registration_number": "KA01AB1234", "make": "Maruti"},
			RenewalType:   strPtr("  Renewal "),
		})

		assert.Equal(t, models.VerificationSubmitted, record.Status)
		assert.Equal(t, "KA01AB1234", record.ProductFields["registration_number"])
		require.NotNil(t, record.RenewalType)
		assert.Equal(t, "Renewal", *record.RenewalType)
		assertAuditLogged(t, db, models.AuditActionCreate, record.ID)
	})

	t.Run("duplicate returns the existing record", func(t *testing.T) {
		db := setupServiceTestDB(t)
		lead, record := createTestRecord(t, db, models.InsuranceTerm, CreateVerificationInput{})
		exec := createTestUser(t, db, models.RoleSalesExecutive)

		existing, _, err := CreateVerification(ctx, db, lead.ID, models.InsuranceTerm, CreateVerificationInput{}, actorOf(exec))
		assert.ErrorIs(t, err, ErrDuplicateVerification)
		assert.ErrorIs(t, err, ErrConflict)
		require.NotNil(t, existing)
		assert.Equal(t, record.ID, existing.ID)

		// a different product for the same lead is a separate record
		other, _, err := CreateVerification(ctx, db, lead.ID, models.InsuranceLife, CreateVerificationInput{}, actorOf(exec))
		assert.NoError(t, err)
		assert.NotEqual(t, record.ID, other.ID)
	})

	t.Run("health requires one to four named insured persons", func(t *testing.T) {
		db := setupServiceTestDB(t)
		exec := createTestUser(t, db, models.RoleSalesExecutive)

		for _, persons := range [][]InsuredPersonInput{
			nil,
			{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}, {Name: "E"}},
			{{Name: "  "}},
		} {
			lead := createTestLead(t, db, models.LeadStatusWon)
			_, _, err := CreateVerification(ctx, db, lead.ID, models.InsuranceHealth,
				CreateVerificationInput{InsuredPersons: persons}, actorOf(exec))
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, "insured_persons")
		}

		_, record := createTestRecord(t, db, models.InsuranceHealth, CreateVerificationInput{
			InsuredPersons: []InsuredPersonInput{{Name: "Asha"}, {Name: "Vikram", Details: map[string]interface{}{"age": 41}}},
		})
		require.Len(t, record.InsuredPersons, 2)
		assert.Equal(t, 1, record.InsuredPersons[0].Position)
		assert.Equal(t, "Vikram", record.InsuredPersons[1].Name)
	})

	t.Run("other products reject insured persons", func(t *testing.T) {
		db := setupServiceTestDB(t)
		lead := createTestLead(t, db, models.LeadStatusWon)
		exec := createTestUser(t, db, models.RoleSalesExecutive)

		_, _, err := CreateVerification(ctx, db, lead.ID, models.InsuranceCar,
			CreateVerificationInput{InsuredPersons: []InsuredPersonInput{{Name: "Asha"}}}, actorOf(exec))
		assert.True(t, IsValidationError(err))
	})

	t.Run("initial files are stored best effort", func(t *testing.T) {
		db := setupServiceTestDB(t)
		lead := createTestLead(t, db, models.LeadStatusWon)
		exec := createTestUser(t, db, models.RoleSalesExecutive)

		record, result, err := CreateVerification(ctx, db, lead.ID, models.InsuranceHealth, CreateVerificationInput{
			InsuredPersons: []InsuredPersonInput{{Name: "Asha"}},
			Files: []InitialFile{
				{Scope: models.ScopeProposer, DocumentType: "PAN Card", PersonIndex: -1, File: pdfFile(t, "pan.pdf")},
				{Scope: models.ScopeInsuredPerson, DocumentType: "Photo", PersonIndex: 0, File: jpegFile(t, "asha.jpg")},
				{Scope: models.ScopeInsuredPerson, DocumentType: "Photo", PersonIndex: 3, File: jpegFile(t, "ghost.jpg")},
				{Scope: models.ScopePayment, DocumentType: models.DocTypeBIDocument, PersonIndex: -1, File: pdfFile(t, "bi.pdf")},
			},
		}, actorOf(exec))
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Len(t, result.Uploaded, 2)
		require.Len(t, result.Errors, 2)
		assert.Equal(t, "ghost.jpg", result.Errors[0].FileName)
		assert.Equal(t, "bi.pdf", result.Errors[1].FileName)

		groups, err := Groups(db, record.ID)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, record.InsuredPersons[0].ID, groups[1].OwnerRef)
	})
}

func TestUpdateVerificationTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("payment coordinator must supply issuance fields", func(t *testing.T) {
		db := setupServiceTestDB(t)
		lead, record := createTestRecord(t, db, models.InsuranceCar, CreateVerificationInput{})
		pc := createTestUser(t, db, models.RolePaymentCoordinator)

		_, err := UpdateVerification(ctx, db, lead.ID, models.InsuranceCar,
			VerificationPatch{Status: statusPtr(models.VerificationProcessing)}, actorOf(pc))
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.ElementsMatch(t, []string{"policy_issue_date", "renewal_type"}, ve.Fields)

		reloaded, _ := GetVerification(db, lead.ID, models.InsuranceCar)
		assert.Equal(t, models.VerificationSubmitted, reloaded.Status)

		issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		updated, err := UpdateVerification(ctx, db, lead.ID, models.InsuranceCar, VerificationPatch{
			Status:          statusPtr(models.VerificationProcessing),
			PolicyIssueDate: &issued,
			RenewalType:     strPtr("New"),
		}, actorOf(pc))
		require.NoError(t, err)
		assert.Equal(t, models.VerificationProcessing, updated.Status)
		require.NotNil(t, updated.StatusChangedBy)
		assert.Equal(t, pc.ID, *updated.StatusChangedBy)
		assertAuditLogged(t, db, models.AuditActionStatusChange, record.ID)

		// clearing a mandatory field is rejected even without a status change
		_, err = UpdateVerification(ctx, db, lead.ID, models.InsuranceCar,
			VerificationPatch{RenewalType: strPtr(" ")}, actorOf(pc))
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"renewal_type"}, ve.Fields)
	})

	t.Run("authorization is checked before mandatory fields", func(t *testing.T) {
		db := setupServiceTestDB(t)
		lead, _ := createTestRecord(t, db, models.InsuranceCar, CreateVerificationInput{})
		pc := createTestUser(t, db, models.RolePaymentCoordinator)

		_, err := UpdateVerification(ctx, db, lead.ID, models.InsuranceCar,
			VerificationPatch{Status: statusPtr(models.VerificationPLVCDone)}, actorOf(pc))
		assert.True(t, IsAuthorizationError(err))
	})

	t.Run("read only roles cannot update", func(t *testing.T) {
		db := setupServiceTestDB(t)
		lead, _ := createTestRecord(t, db, models.InsuranceTerm, CreateVerificationInput{})

		for _, role := range []string{models.RoleSalesManager, models.RoleSalesExecutive, "", "guest"} {
			_, err := UpdateVerification(ctx, db, lead.ID, models.InsuranceTerm,
				VerificationPatch{Remark: strPtr("hello")}, Actor{ID: "x", Role: role})
			assert.True(t, IsAuthorizationError(err), role)
		}
		var remarks int64
		db.Model(&models.VerificationRemark{}).Count(&remarks)
		assert.Zero(t, remarks)
	})

	t.Run("verificator completes and event is published", func(t *testing.T) {
		db := setupServiceTestDB(t)
		publisher := &recordingPublisher{}
		Events = publisher
		lead, record := createTestRecord(t, db, models.InsuranceLife, CreateVerificationInput{})
		setRecordStatus(t, db, record, models.VerificationPaymentDone)
		plvc := createTestUser(t, db, models.RolePLVCVerificator)

		updated, err := UpdateVerification(ctx, db, lead.ID, models.InsuranceLife, VerificationPatch{
			Status: statusPtr(models.VerificationPLVCDone),
			Remark: strPtr("Customer confirmed all details"),
		}, actorOf(plvc))
		require.NoError(t, err)
		assert.Equal(t, models.VerificationPLVCDone, updated.Status)

		events := publisher.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "payment_done", events[0].From)
		assert.Equal(t, "PLVC_done", events[0].To)
		assert.Equal(t, models.RolePLVCVerificator, events[0].ChangedByRole)

		remark, err := LatestRemark(db, record.ID)
		require.NoError(t, err)
		require.NotNil(t, remark)
		assert.Equal(t, "Customer confirmed all details", remark.Text)
		assert.Equal(t, models.RolePLVCVerificator, remark.UserRole)
	})

	t.Run("backward moves are reserved for admins", func(t *testing.T) {
		db := setupServiceTestDB(t)
		lead, record := createTestRecord(t, db, models.InsuranceTerm, CreateVerificationInput{})
		setRecordStatus(t, db, record, models.VerificationPLVCVerification)
		plvc := createTestUser(t, db, models.RolePLVCVerificator)
		admin := createTestUser(t, db, models.RoleAdmin)

		_, err := UpdateVerification(ctx, db, lead.ID, models.InsuranceTerm,
			VerificationPatch{Status: statusPtr(models.VerificationPLVCVerification)}, actorOf(plvc))
		assert.NoError(t, err, "setting the current status is a no-op")

		updated, err := UpdateVerification(ctx, db, lead.ID, models.InsuranceTerm,
			VerificationPatch{Status: statusPtr(models.VerificationProcessing)}, actorOf(admin))
		require.NoError(t, err)
		assert.Equal(t, models.VerificationProcessing, updated.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		db := setupServiceTestDB(t)
		lead, _ := createTestRecord(t, db, models.InsuranceTerm, CreateVerificationInput{})
		admin := createTestUser(t, db, models.RoleAdmin)

		_, err := UpdateVerification(ctx, db, lead.ID, models.InsuranceTerm,
			VerificationPatch{Status: statusPtr("archived")}, actorOf(admin))
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"status"}, ve.Fields)
	})

	t.Run("missing record", func(t *testing.T) {
		db := setupServiceTestDB(t)
		admin := createTestUser(t, db, models.RoleAdmin)
		_, err := UpdateVerification(ctx, db, "nope", models.InsuranceCar, VerificationPatch{}, actorOf(admin))
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestUpdateVerificationProductFields(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	lead, _ := createTestRecord(t, db, models.InsuranceCar, CreateVerificationInput{
		ProductFields: map[string]interface{}{"make": "Maruti", "model": "Swift", "idv": "450000"},
	})
	admin := createTestUser(t, db, models.RoleAdmin)

	updated, err := UpdateVerification(ctx, db, lead.ID, models.InsuranceCar, VerificationPatch{
		ProductFields: map[string]interface{}{"model": "Dzire", "idv": nil, "fuel_type": "Petrol"},
	}, actorOf(admin))
	require.NoError(t, err)

	assert.Equal(t, "Maruti", updated.ProductFields["make"])
	assert.Equal(t, "Dzire", updated.ProductFields["model"])
	assert.Equal(t, "Petrol", updated.ProductFields["fuel_type"])
	assert.NotContains(t, updated.ProductFields, "idv")
	assert.Equal(t, models.VerificationSubmitted, updated.Status)

	_, err = UpdateVerification(ctx, db, lead.ID, models.InsuranceCar, VerificationPatch{
		ProductFields: map[string]interface{}{" ": "x"},
	}, actorOf(admin))
	assert.True(t, IsValidationError(err))
}

func TestGetVerificationDetail(t *testing.T) {
	db := setupServiceTestDB(t)
	lead, record := createTestRecord(t, db, models.InsuranceCar, CreateVerificationInput{})
	setRecordStatus(t, db, record, models.VerificationLinkCreated)
	pc := createTestUser(t, db, models.RolePaymentCoordinator)
	manager := createTestUser(t, db, models.RoleSalesManager)

	detail, err := GetVerificationDetail(db, lead.ID, models.InsuranceCar, actorOf(pc))
	require.NoError(t, err)
	assert.Equal(t, "Car Insurance", detail.Variant)
	assert.Equal(t, []string{models.DocTypeBIDocument}, detail.UploadSlots)
	assert.Contains(t, detail.NextStatuses, models.VerificationPaymentDone)
	assert.NotContains(t, detail.NextStatuses, models.VerificationPLVCDone)
	assert.Empty(t, detail.DocumentGroups)

	readOnly, err := GetVerificationDetail(db, lead.ID, models.InsuranceCar, actorOf(manager))
	require.NoError(t, err)
	assert.Empty(t, readOnly.NextStatuses)
	assert.Empty(t, readOnly.UploadSlots)

	_, err = GetVerificationDetail(db, lead.ID, models.InsuranceHealth, actorOf(pc))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListVerifications(t *testing.T) {
	db := setupServiceTestDB(t)
	createTestRecord(t, db, models.InsuranceCar, CreateVerificationInput{})
	_, term := createTestRecord(t, db, models.InsuranceTerm, CreateVerificationInput{})
	setRecordStatus(t, db, term, models.VerificationPaymentDone)

	all, total, err := ListVerifications(db, VerificationFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, all, 2)
	assert.NotNil(t, all[0].Lead)

	paid, total, err := ListVerifications(db, VerificationFilters{Status: "payment_done"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, term.ID, paid[0].ID)

	_, _, err = ListVerifications(db, VerificationFilters{InsuranceType: "boat"}, 1, 20)
	assert.True(t, IsValidationError(err))
}
