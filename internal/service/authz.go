package service

import (
	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/google/uuid"
)

// RequireOwnerOrAdmin is the single authorization rule of the service: the
// acting principal must own the resource or hold the admin role. Every place
// where ownership matters applies this same predicate.
func RequireOwnerOrAdmin(resourceOwnerID uuid.UUID, p models.Principal) error {
	if p.IsAdmin() || p.UserID == resourceOwnerID {
		return nil
	}
	return ErrAccessDenied
}

// RequireAdmin guards operations reserved for the privileged role.
func RequireAdmin(p models.Principal) error {
	if p.IsAdmin() {
		return nil
	}
	return ErrAccessDenied
}
