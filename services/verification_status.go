package services

import (
	"fmt"

	"lead_flow_app_go/models"
)

// verificationTransitions lists the legal forward moves from each status.
// Skipping intermediate steps is allowed; moving backward is reserved for admins.
var verificationTransitions = map[models.VerificationStatus][]models.VerificationStatus{
	models.VerificationSubmitted: {
		models.VerificationProcessing,
		models.VerificationLinkCreated,
		models.VerificationPaymentDone,
		models.VerificationPLVCVerification,
		models.VerificationPLVCDone,
	},
	models.VerificationProcessing: {
		models.VerificationLinkCreated,
		models.VerificationPaymentDone,
		models.VerificationPLVCVerification,
		models.VerificationPLVCDone,
	},
	models.VerificationLinkCreated: {
		models.VerificationPaymentDone,
		models.VerificationPLVCVerification,
		models.VerificationPLVCDone,
	},
	models.VerificationPaymentDone: {
		models.VerificationPLVCVerification,
		models.VerificationPLVCDone,
	},
	models.VerificationPLVCVerification: {
		models.VerificationPLVCDone,
	},
	models.VerificationPLVCDone: {},
}

// statusActors lists the roles that may move a record into each status
var statusActors = map[models.VerificationStatus]map[string]bool{
	models.VerificationSubmitted:        {models.RoleAdmin: true},
	models.VerificationProcessing:       {models.RoleAdmin: true, models.RolePaymentCoordinator: true},
	models.VerificationLinkCreated:      {models.RoleAdmin: true, models.RolePaymentCoordinator: true},
	models.VerificationPaymentDone:      {models.RoleAdmin: true, models.RolePaymentCoordinator: true},
	models.VerificationPLVCVerification: {models.RoleAdmin: true, models.RolePLVCVerificator: true},
	models.VerificationPLVCDone:         {models.RoleAdmin: true, models.RolePLVCVerificator: true},
}

// NextStatuses returns the statuses the role may move a record to from current
func NextStatuses(role string, current models.VerificationStatus) []models.VerificationStatus {
	var out []models.VerificationStatus
	for _, st := range models.VerificationStatuses {
		if st != current && CheckTransition(Actor{Role: role}, current, st) == nil {
			out = append(out, st)
		}
	}
	return out
}

// CheckTransition validates a status change for the actor. Setting the current
// status again is a no-op and always allowed for mutating roles.
func CheckTransition(actor Actor, from, to models.VerificationStatus) error {
	if err := requireVerificationMutator(actor, "change status"); err != nil {
		return err
	}
	if !to.IsValid() {
		return NewValidationError(fmt.Sprintf("unknown status %q", to), "status")
	}
	if from == to {
		return nil
	}
	if !statusActors[to][actor.Role] {
		return &AuthorizationError{Role: actor.Role, Operation: "set status " + string(to)}
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	for _, next := range verificationTransitions[from] {
		if next == to {
			return nil
		}
	}
	return NewValidationError(fmt.Sprintf("cannot move from %s to %s", from, to), "status")
}

// uploadGate holds the conditions under which a document type may be uploaded
type uploadGate struct {
	Kind     FileKind
	Statuses []models.VerificationStatus // empty means any status
	Roles    map[string]bool             // nil means any mutating role
}

var workflowUploadGates = map[string]uploadGate{
	models.DocTypeBIDocument: {
		Kind:     KindImageOrPDF,
		Statuses: []models.VerificationStatus{models.VerificationLinkCreated, models.VerificationPaymentDone},
	},
	models.DocTypePaymentScreenshot: {
		Kind:     KindImage,
		Statuses: []models.VerificationStatus{models.VerificationPaymentDone},
	},
	models.DocTypePLVCCall:    recordingGate,
	models.DocTypeWelcomeCall: recordingGate,
	models.DocTypeSalesCall:   recordingGate,
}

var recordingGate = uploadGate{
	Kind:     KindMedia,
	Statuses: []models.VerificationStatus{models.VerificationPLVCDone},
	Roles:    map[string]bool{models.RolePLVCVerificator: true},
}

func gateFor(scope, documentType string) uploadGate {
	if scope == models.ScopePayment || scope == models.ScopeVerification {
		if g, ok := workflowUploadGates[documentType]; ok {
			return g
		}
	}
	return uploadGate{Kind: KindImageOrPDF}
}

// CheckUpload validates that the actor may upload the document type to the
// record in its current status, and returns the accepted file kind.
func CheckUpload(actor Actor, record *models.VerificationRecord, scope, documentType string) (FileKind, error) {
	if err := requireVerificationMutator(actor, "upload document"); err != nil {
		return 0, err
	}
	return checkDocumentGate(actor, record, scope, documentType)
}

// checkDocumentGate applies the vocabulary, role and status conditions of a
// document slot without the mutating-role check
func checkDocumentGate(actor Actor, record *models.VerificationRecord, scope, documentType string) (FileKind, error) {
	variant, ok := VariantFor(record.InsuranceType)
	if !ok || !variant.AllowsDocument(scope, documentType) {
		return 0, NewValidationError(fmt.Sprintf("document type %q is not collected for %s", documentType, scope), "document_type")
	}

	gate := gateFor(scope, documentType)
	if gate.Roles != nil && !gate.Roles[actor.Role] {
		return 0, &AuthorizationError{Role: actor.Role, Operation: "upload " + documentType}
	}
	if len(gate.Statuses) > 0 {
		allowed := false
		for _, st := range gate.Statuses {
			if record.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return 0, NewValidationError(fmt.Sprintf("%s cannot be uploaded while status is %s", documentType, record.Status), "status")
		}
	}
	return gate.Kind, nil
}

// UploadSlots returns the workflow document types open to the role at the
// record's current status
func UploadSlots(role string, record *models.VerificationRecord) []string {
	var slots []string
	for _, dt := range paymentDocuments {
		if _, err := CheckUpload(Actor{Role: role}, record, models.ScopePayment, dt); err == nil {
			slots = append(slots, dt)
		}
	}
	for _, dt := range recordingDocuments {
		if _, err := CheckUpload(Actor{Role: role}, record, models.ScopeVerification, dt); err == nil {
			slots = append(slots, dt)
		}
	}
	return slots
}
