// Package auth issues and verifies bearer tokens and holds the role checks
// applied to an authenticated Identity.
package auth

import (
	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
)

// Identity is the caller derived from a verified token.
type Identity struct {
	UserID  uuid.UUID
	IsAdmin bool
}

func AuthorizeAdmin(id Identity) error {
	if !id.IsAdmin {
		return apperr.Forbidden("only admin has access")
	}
	return nil
}

func AuthorizeOwnerOrAdmin(id Identity, ownerID uuid.UUID) error {
	if id.IsAdmin || id.UserID == ownerID {
		return nil
	}
	return apperr.Forbidden("you do not have permission")
}
