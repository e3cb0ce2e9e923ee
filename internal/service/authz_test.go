package service

import (
	"testing"

	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequireOwnerOrAdmin(t *testing.T) {
	ownerID := uuid.New()

	owner := models.Principal{UserID: ownerID, Role: models.RoleUser}
	assert.NoError(t, RequireOwnerOrAdmin(ownerID, owner))

	admin := models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}
	assert.NoError(t, RequireOwnerOrAdmin(ownerID, admin))

	stranger := models.Principal{UserID: uuid.New(), Role: models.RoleUser}
	assert.ErrorIs(t, RequireOwnerOrAdmin(ownerID, stranger), ErrAccessDenied)
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}))
	assert.ErrorIs(t, RequireAdmin(models.Principal{UserID: uuid.New(), Role: models.RoleUser}), ErrAccessDenied)
}
