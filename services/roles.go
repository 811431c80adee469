package services

import "lead_flow_app_go/models"

// Actor is the identity supplied by the session layer for every call
type Actor struct {
	ID   string
	Name string
	Role string
}

// ActorFromUser builds an Actor from an authenticated user
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Name: u.Name, Role: u.Role}
}

var verificationMutators = map[string]bool{
	models.RoleAdmin:              true,
	models.RolePaymentCoordinator: true,
	models.RolePLVCVerificator:    true,
}

var leadMutators = map[string]bool{
	models.RoleAdmin:          true,
	models.RoleSalesManager:   true,
	models.RoleSalesExecutive: true,
}

// CanMutateVerification reports whether the role may change status, product
// fields or documents of a verification record
func CanMutateVerification(role string) bool {
	return verificationMutators[role]
}

// CanMutateLead reports whether the role may work leads through the pipeline
func CanMutateLead(role string) bool {
	return leadMutators[role]
}

// IsMaskedReader reports whether contact details must be masked for the role
func IsMaskedReader(role string) bool {
	return role == models.RoleSalesManager
}

func requireVerificationMutator(actor Actor, op string) error {
	if !CanMutateVerification(actor.Role) {
		return &AuthorizationError{Role: actor.Role, Operation: op}
	}
	return nil
}

func requireLeadMutator(actor Actor, op string) error {
	if !CanMutateLead(actor.Role) {
		return &AuthorizationError{Role: actor.Role, Operation: op}
	}
	return nil
}
