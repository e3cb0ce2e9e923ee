// Package repository defines the persistence boundary of the service. The
// interfaces here are implemented by the Postgres store and by in-memory
// fakes in service tests.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert conflicts with a unique constraint
// (card number fingerprint, user login).
var ErrDuplicate = errors.New("record already exists")

// Page is a limit/offset window over a listing, newest first.
type Page struct {
	Number int
	Size   int
}

// Limit returns the row limit for the page, defaulting to 10.
func (p Page) Limit() int {
	if p.Size <= 0 {
		return 10
	}
	return p.Size
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number <= 0 {
		return 0
	}
	return p.Number * p.Limit()
}

// CardFilter narrows card listings.
type CardFilter struct {
	Status *models.CardStatus
	// Last4 filters by the clear-text last four digits.
	Last4 string
}

// Cards persists card rows.
type Cards interface {
	Create(ctx context.Context, card *models.Card) error
	ByID(ctx context.Context, id uuid.UUID) (*models.Card, error)
	// ByIDForUpdate reads a card taking a row lock; only meaningful inside
	// a transaction started with Store.InTx.
	ByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Card, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CardStatus, blockRequested bool) error
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ByOwner returns every card of a user, unpaged; used for the
	// user-deletion precondition.
	ByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Card, error)
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error
	PageByOwner(ctx context.Context, ownerID uuid.UUID, filter CardFilter, page Page) ([]*models.Card, error)
	All(ctx context.Context, page Page) ([]*models.Card, error)
	// MarkExpired persists EXPIRED for cards past their expiry date and
	// returns the number of rows touched. Reads derive expiry regardless;
	// this only keeps stored rows and indexes honest.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

// Transfers persists the append-only transfer ledger.
type Transfers interface {
	Create(ctx context.Context, transfer *models.Transfer) error
	PageByCard(ctx context.Context, cardID uuid.UUID, page Page) ([]*models.Transfer, error)
	PageByUser(ctx context.Context, userID uuid.UUID, page Page) ([]*models.Transfer, error)
	PageAll(ctx context.Context, page Page) ([]*models.Transfer, error)
}

// Users persists user rows.
type Users interface {
	Create(ctx context.Context, user *models.User) error
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ByLogin(ctx context.Context, login string) (*models.User, error)
	// Update persists the mutable profile fields (email, role).
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	Page(ctx context.Context, page Page) ([]*models.User, error)
}

// Store bundles the repositories with a transaction runner. InTx runs fn
// against a Store bound to a single database transaction: every repository
// call inside fn commits or rolls back as one unit.
type Store interface {
	Cards() Cards
	Transfers() Transfers
	Users() Users
	InTx(ctx context.Context, fn func(Store) error) error
}
