package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/AlionaVr/Bank-cards-REST/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const tokenValidity = 24 * time.Hour

// AuthService handles registration and login. Everything past the token
// boundary works with an explicit Principal; this is the only place
// credentials are touched.
type AuthService struct {
	store     repository.Store
	jwtSecret []byte
	log       *logrus.Logger
}

// NewAuthService initializes a new auth service
func NewAuthService(store repository.Store, jwtSecret string, log *logrus.Logger) *AuthService {
	return &AuthService{store: store, jwtSecret: []byte(jwtSecret), log: log}
}

// Register creates a new user with hashed password
func (s *AuthService) Register(ctx context.Context, login, email, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Login:        login,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Login)
	return user, nil
}

// Login authenticates a user and returns a signed JWT carrying the user id
// and role.
func (s *AuthService) Login(ctx context.Context, login, password string) (string, error) {
	user, err := s.store.Users().ByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrBadCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrBadCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"exp":  jwt.NewNumericDate(time.Now().Add(tokenValidity)),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Login)
	return tokenString, nil
}
