package services

import (
	"testing"

	"lead_flow_app_go/models"

	"github.com/stretchr/testify/assert"
)

func TestCheckTransition(t *testing.T) {
	admin := Actor{ID: "a", Role: models.RoleAdmin}
	pc := Actor{ID: "p", Role: models.RolePaymentCoordinator}
	plvc := Actor{ID: "v", Role: models.RolePLVCVerificator}
	manager := Actor{ID: "m", Role: models.RoleSalesManager}

	tests := []struct {
		name    string
		actor   Actor
		from    models.VerificationStatus
		to      models.VerificationStatus
		wantErr func(error) bool
	}{
		{"pc starts processing", pc, models.VerificationSubmitted, models.VerificationProcessing, nil},
		{"pc skips to payment", pc, models.VerificationSubmitted, models.VerificationPaymentDone, nil},
		{"pc cannot verify", pc, models.VerificationPaymentDone, models.VerificationPLVCVerification, IsAuthorizationError},
		{"pc cannot go back", pc, models.VerificationPaymentDone, models.VerificationProcessing, IsValidationError},
		{"plvc verifies", plvc, models.VerificationPaymentDone, models.VerificationPLVCVerification, nil},
		{"plvc completes", plvc, models.VerificationPLVCVerification, models.VerificationPLVCDone, nil},
		{"plvc cannot create links", plvc, models.VerificationProcessing, models.VerificationLinkCreated, IsAuthorizationError},
		{"done is terminal", plvc, models.VerificationPLVCDone, models.VerificationPLVCVerification, IsValidationError},
		{"admin reopens", admin, models.VerificationPLVCDone, models.VerificationSubmitted, nil},
		{"same status", pc, models.VerificationLinkCreated, models.VerificationLinkCreated, nil},
		{"read only role", manager, models.VerificationSubmitted, models.VerificationProcessing, IsAuthorizationError},
		{"unknown target", admin, models.VerificationSubmitted, "closed", IsValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.actor, tt.from, tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, tt.wantErr(err), "unexpected error %v", err)
		})
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t, []models.VerificationStatus{
		models.VerificationLinkCreated,
		models.VerificationPaymentDone,
	}, NextStatuses(models.RolePaymentCoordinator, models.VerificationProcessing))

	assert.Equal(t, []models.VerificationStatus{
		models.VerificationPLVCVerification,
		models.VerificationPLVCDone,
	}, NextStatuses(models.RolePLVCVerificator, models.VerificationPaymentDone))

	assert.Len(t, NextStatuses(models.RoleAdmin, models.VerificationPLVCDone), 5)
	assert.Empty(t, NextStatuses(models.RoleSalesExecutive, models.VerificationSubmitted))
}

func TestProductVariants(t *testing.T) {
	for _, in := range []string{"car", "car_insurance", " CAR_INSURANCE "} {
		got, ok := ParseInsuranceType(in)
		assert.True(t, ok, in)
		assert.Equal(t, models.InsuranceCar, got)
	}
	_, ok := ParseInsuranceType("bike_insurance")
	assert.False(t, ok)

	variants := ProductVariants()
	assert.Len(t, variants, 4)
	for _, v := range variants {
		assert.True(t, v.HasScope(models.ScopePayment), v.Label)
		assert.True(t, v.AllowsDocument(models.ScopeVerification, models.DocTypePLVCCall), v.Label)
		assert.True(t, v.AllowsDocument(models.ScopeProposer, "PAN Card"), v.Label)
		assert.Equal(t, v.Type == models.InsuranceHealth, v.UsesInsuredPersons(), v.Label)
	}

	car, _ := VariantFor(models.InsuranceCar)
	assert.True(t, car.AllowsDocument(models.ScopeVehicle, "RC Book"))
	assert.False(t, car.HasScope(models.ScopeInsuredPerson))

	term, _ := VariantFor(models.InsuranceTerm)
	assert.True(t, term.HasScope(models.ScopeLifeAssured))
	assert.False(t, term.AllowsDocument(models.ScopeVehicle, "RC Book"))
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "98******10", MaskPhone("9876543210"))
	assert.Equal(t, "****", MaskPhone("1234"))
	assert.Equal(t, "", MaskPhone(""))
	assert.Equal(t, "jo******@x.com", MaskEmail("john.doe@x.com"))
	assert.Equal(t, "**@x.com", MaskEmail("jd@x.com"))

	lead := &models.Lead{Phone: "9876543210", Email: "ravi@example.com"}
	MaskLeadContact(lead)
	assert.Equal(t, "98******10", lead.Phone)
	assert.Equal(t, "ra**@example.com", lead.Email)

	assert.True(t, IsMaskedReader(models.RoleSalesManager))
	assert.False(t, IsMaskedReader(models.RoleSalesExecutive))
	assert.False(t, IsMaskedReader(models.RoleAdmin))
}
