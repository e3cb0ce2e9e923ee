package service

import (
	"context"
	"errors"
	"strings"

	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/AlionaVr/Bank-cards-REST/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserService exposes user lookups, profile updates, and the admin-only user
// listing and deletion.
type UserService struct {
	store repository.Store
	log   *logrus.Logger
}

// NewUserService initializes a new user service
func NewUserService(store repository.Store, log *logrus.Logger) *UserService {
	return &UserService{store: store, log: log}
}

// GetUser returns a user by id to themselves or an admin.
func (s *UserService) GetUser(ctx context.Context, principal models.Principal, userID uuid.UUID) (*models.User, error) {
	if err := RequireOwnerOrAdmin(userID, principal); err != nil {
		return nil, err
	}

	user, err := s.store.Users().ByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// GetAllUsers lists users, newest first. Admin only.
func (s *UserService) GetAllUsers(ctx context.Context, principal models.Principal, page repository.Page) ([]*models.User, error) {
	if err := RequireAdmin(principal); err != nil {
		return nil, err
	}
	return s.store.Users().Page(ctx, page)
}

// UpdateUser changes a user's profile fields for themselves or an admin.
// Blank fields keep their current values; changing the role is admin only.
func (s *UserService) UpdateUser(ctx context.Context, principal models.Principal, userID uuid.UUID, email string, role models.Role) (*models.User, error) {
	if err := RequireOwnerOrAdmin(userID, principal); err != nil {
		return nil, err
	}
	if role != "" && !principal.IsAdmin() {
		return nil, ErrAccessDenied
	}

	user, err := s.store.Users().ByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if email = strings.TrimSpace(email); email != "" {
		user.Email = email
	}
	if role != "" {
		user.Role = role
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User %s updated", userID)
	return user, nil
}

// DeleteUser removes a user and their cards. Admin only; refused while any
// of the user's cards still holds funds.
func (s *UserService) DeleteUser(ctx context.Context, principal models.Principal, userID uuid.UUID) error {
	if err := RequireAdmin(principal); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		cards, err := tx.Cards().ByOwner(ctx, userID)
		if err != nil {
			return err
		}
		for _, card := range cards {
			if !card.Balance.IsZero() {
				return ErrUserHasFunds
			}
		}
		if err := tx.Cards().DeleteByOwner(ctx, userID); err != nil {
			return err
		}
		if err := tx.Users().Delete(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Infof("User %s deleted", userID)
	return nil
}
