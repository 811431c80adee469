package services

import (
	"sort"
	"strings"

	"lead_flow_app_go/models"
)

// ProductVariant describes what differs between insurance products. The status
// machine, document collection and remark log are shared by every variant.
type ProductVariant struct {
	Type  models.InsuranceType
	Label string
	// Scopes maps each owner scope the product collects to its document vocabulary
	Scopes map[string][]string
	// MinInsuredPersons and MaxInsuredPersons bound the insured persons list (health only)
	MinInsuredPersons int
	MaxInsuredPersons int
	// ExportFields are the product field keys exported as spreadsheet columns
	ExportFields []string
}

var (
	proposerDocuments    = []string{"PAN Card", "Aadhaar Card", "Photo", "Address Proof", "Income Proof", "Bank Statement", "Other"}
	lifeAssuredDocuments = []string{"PAN Card", "Aadhaar Card", "Photo", "Medical Report", "Other"}
	insuredDocuments     = []string{"Aadhaar Card", "Photo", "Medical Report", "Previous Policy", "Other"}
	vehicleDocuments     = []string{"RC Book", "Previous Policy", "Driving License", "Vehicle Photo", "Other"}
	paymentDocuments     = []string{models.DocTypeBIDocument, models.DocTypePaymentScreenshot}
	recordingDocuments   = []string{models.DocTypePLVCCall, models.DocTypeWelcomeCall, models.DocTypeSalesCall}
)

var productVariants = map[models.InsuranceType]ProductVariant{
	models.InsuranceTerm: {
		Type:  models.InsuranceTerm,
		Label: "Term Insurance",
		Scopes: withWorkflowScopes(map[string][]string{
			models.ScopeProposer:    proposerDocuments,
			models.ScopeLifeAssured: lifeAssuredDocuments,
		}),
		ExportFields: []string{"insurer", "plan_name", "sum_assured", "policy_term", "premium_payment_term", "premium_amount", "payment_frequency", "nominee_name"},
	},
	models.InsuranceLife: {
		Type:  models.InsuranceLife,
		Label: "Life Insurance",
		Scopes: withWorkflowScopes(map[string][]string{
			models.ScopeProposer:    proposerDocuments,
			models.ScopeLifeAssured: lifeAssuredDocuments,
		}),
		ExportFields: []string{"insurer", "plan_name", "plan_type", "sum_assured", "policy_term", "premium_payment_term", "premium_amount", "payment_frequency", "nominee_name"},
	},
	models.InsuranceHealth: {
		Type:  models.InsuranceHealth,
		Label: "Health Insurance",
		Scopes: withWorkflowScopes(map[string][]string{
			models.ScopeProposer:      proposerDocuments,
			models.ScopeInsuredPerson: insuredDocuments,
		}),
		MinInsuredPersons: 1,
		MaxInsuredPersons: 4,
		ExportFields:      []string{"insurer", "plan_name", "policy_type", "sum_insured", "policy_tenure", "premium_amount"},
	},
	models.InsuranceCar: {
		Type:  models.InsuranceCar,
		Label: "Car Insurance",
		Scopes: withWorkflowScopes(map[string][]string{
			models.ScopeProposer: proposerDocuments,
			models.ScopeVehicle:  vehicleDocuments,
		}),
		ExportFields: []string{"insurer", "registration_number", "make", "model", "variant", "manufacturing_year", "fuel_type", "idv", "previous_insurer", "ncb_percentage", "premium_amount"},
	},
}

func withWorkflowScopes(scopes map[string][]string) map[string][]string {
	scopes[models.ScopePayment] = paymentDocuments
	scopes[models.ScopeVerification] = recordingDocuments
	return scopes
}

// ParseInsuranceType accepts "car" as well as the route form "car_insurance"
func ParseInsuranceType(s string) (models.InsuranceType, bool) {
	t := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_insurance")
	if _, ok := productVariants[models.InsuranceType(t)]; !ok {
		return "", false
	}
	return models.InsuranceType(t), true
}

// VariantFor returns the variant of a known insurance type
func VariantFor(t models.InsuranceType) (ProductVariant, bool) {
	v, ok := productVariants[t]
	return v, ok
}

// ProductVariants returns every variant sorted by type
func ProductVariants() []ProductVariant {
	out := make([]ProductVariant, 0, len(productVariants))
	for _, v := range productVariants {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// AllowsDocument reports whether the scope and document type belong to the variant
func (v ProductVariant) AllowsDocument(scope, documentType string) bool {
	for _, dt := range v.Scopes[scope] {
		if dt == documentType {
			return true
		}
	}
	return false
}

// HasScope reports whether the variant collects documents for the owner scope
func (v ProductVariant) HasScope(scope string) bool {
	_, ok := v.Scopes[scope]
	return ok
}

// UsesInsuredPersons reports whether the variant keeps an insured persons list
func (v ProductVariant) UsesInsuredPersons() bool {
	return v.MaxInsuredPersons > 0
}
