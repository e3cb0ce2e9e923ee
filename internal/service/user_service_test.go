package service

import (
	"context"
	"testing"

	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/AlionaVr/Bank-cards-REST/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetUser(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, testLogger())
	user := store.addUser(models.RoleUser)
	stranger := store.addUser(models.RoleUser)
	ctx := context.Background()

	got, err := svc.GetUser(ctx, models.Principal{UserID: user.ID, Role: models.RoleUser}, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.GetUser(ctx, models.Principal{UserID: stranger.ID, Role: models.RoleUser}, user.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetUser(ctx, models.Principal{UserID: stranger.ID, Role: models.RoleAdmin}, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_UpdateUser(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, testLogger())
	user := store.addUser(models.RoleUser)
	self := models.Principal{UserID: user.ID, Role: models.RoleUser}
	admin := models.Principal{UserID: store.addUser(models.RoleAdmin).ID, Role: models.RoleAdmin}
	ctx := context.Background()

	got, err := svc.UpdateUser(ctx, self, user.ID, "new@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, models.RoleUser, got.Role)

	// Blank fields keep the stored values.
	got, err = svc.UpdateUser(ctx, self, user.ID, "  ", "")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)

	_, err = svc.UpdateUser(ctx, self, user.ID, "", models.RoleAdmin)
	assert.ErrorIs(t, err, ErrAccessDenied, "role change requires admin")
	assert.Equal(t, models.RoleUser, store.users[user.ID].Role)

	got, err = svc.UpdateUser(ctx, admin, user.ID, "", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)

	stranger := models.Principal{UserID: store.addUser(models.RoleUser).ID, Role: models.RoleUser}
	_, err = svc.UpdateUser(ctx, stranger, user.ID, "x@example.com", "")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.UpdateUser(ctx, admin, uuid.New(), "x@example.com", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_DeleteUser(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, testLogger())
	admin := models.Principal{UserID: store.addUser(models.RoleAdmin).ID, Role: models.RoleAdmin}
	ctx := context.Background()

	funded := store.addUser(models.RoleUser)
	store.addCard(funded.ID, models.CardStatusActive, decimal.NewFromInt(10))
	assert.ErrorIs(t, svc.DeleteUser(ctx, admin, funded.ID), ErrUserHasFunds)
	assert.Contains(t, store.users, funded.ID)

	empty := store.addUser(models.RoleUser)
	card := store.addCard(empty.ID, models.CardStatusActive, decimal.Zero)
	require.NoError(t, svc.DeleteUser(ctx, admin, empty.ID))
	assert.NotContains(t, store.users, empty.ID)
	assert.NotContains(t, store.cards, card.ID, "user's cards are removed with the user")

	nonAdmin := models.Principal{UserID: uuid.New(), Role: models.RoleUser}
	assert.ErrorIs(t, svc.DeleteUser(ctx, nonAdmin, funded.ID), ErrAccessDenied)

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin, uuid.New()), ErrUserNotFound)
}

func TestUserService_GetAllUsers(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, testLogger())
	store.addUser(models.RoleUser)
	store.addUser(models.RoleUser)
	ctx := context.Background()

	_, err := svc.GetAllUsers(ctx, models.Principal{UserID: uuid.New(), Role: models.RoleUser}, repository.Page{})
	assert.ErrorIs(t, err, ErrAccessDenied)

	users, err := svc.GetAllUsers(ctx, models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
