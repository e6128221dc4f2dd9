// Package access holds the role permission table for claim operations.
package access

import (
	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
)

// Operation names a gated action
type Operation string

const (
	SubmitClaim     Operation = "submit claim"
	ReviewClaim     Operation = "review claim"
	ListOwnClaims   Operation = "list patient claims"
	ListAllClaims   Operation = "list all claims"
	ViewClaim       Operation = "view claim"
	ViewStats       Operation = "view claim statistics"
	UploadDocuments Operation = "upload documents"
)

// permissions lists the roles allowed to run each operation. Ownership
// checks for patients happen in the services.
var permissions = map[Operation][]models.UserRole{
	SubmitClaim:     {models.RolePatient},
	ReviewClaim:     {models.RoleInsurer},
	ListOwnClaims:   {models.RolePatient, models.RoleInsurer},
	ListAllClaims:   {models.RoleInsurer},
	ViewClaim:       {models.RolePatient, models.RoleInsurer},
	ViewStats:       {models.RoleInsurer},
	UploadDocuments: {models.RolePatient},
}

// Roles returns the roles allowed to run op
func Roles(op Operation) []models.UserRole {
	return append([]models.UserRole(nil), permissions[op]...)
}

// Allowed reports whether role may run op
func Allowed(role models.UserRole, op Operation) bool {
	for _, r := range permissions[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns an AuthenticationError without a session and an
// AuthorizationError when the session's role may not run op.
func Authorize(session *models.Session, op Operation) error {
	if session == nil || session.UserID == "" {
		return apperrors.Unauthenticated("authentication required")
	}
	if !Allowed(session.Role, op) {
		return apperrors.Forbidden("role %q may not %s", session.Role, op)
	}
	return nil
}

// AuthorizeOwner additionally requires a patient to own the resource
func AuthorizeOwner(session *models.Session, op Operation, ownerID string) error {
	if err := Authorize(session, op); err != nil {
		return err
	}
	if session.IsPatient() && session.UserID != ownerID {
		return apperrors.Forbidden("patients may only %s for their own account", op)
	}
	return nil
}
