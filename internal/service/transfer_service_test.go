package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/AlionaVr/Bank-cards-REST/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferService_Transfer(t *testing.T) {
	store := newFakeStore()
	svc := NewTransferService(store, testLogger())
	owner := store.addUser(models.RoleUser)
	principal := models.Principal{UserID: owner.ID, Role: models.RoleUser}

	from := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromInt(500))
	to := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromInt(200))

	transfer, err := svc.Transfer(context.Background(), principal, from.ID, to.ID, decimal.NewFromInt(100), "lunch money")
	require.NoError(t, err)

	assert.Equal(t, from.ID, transfer.FromCardID)
	assert.Equal(t, to.ID, transfer.ToCardID)
	assert.True(t, transfer.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "lunch money", transfer.Description)
	assert.False(t, transfer.TransferDate.IsZero())

	assert.True(t, store.cards[from.ID].Balance.Equal(decimal.NewFromInt(400)))
	assert.True(t, store.cards[to.ID].Balance.Equal(decimal.NewFromInt(300)))

	// Exactly one ledger row with the exact amount.
	require.Len(t, store.transfers, 1)
	assert.True(t, store.transfers[0].Amount.Equal(decimal.NewFromInt(100)))
}

func TestTransferService_Transfer_Conservation(t *testing.T) {
	store := newFakeStore()
	svc := NewTransferService(store, testLogger())
	owner := store.addUser(models.RoleUser)
	principal := models.Principal{UserID: owner.ID, Role: models.RoleUser}

	from := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromFloat(123.45))
	to := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromFloat(67.89))
	total := from.Balance.Add(to.Balance)

	_, err := svc.Transfer(context.Background(), principal, from.ID, to.ID, decimal.NewFromFloat(23.45), "")
	require.NoError(t, err)

	sum := store.cards[from.ID].Balance.Add(store.cards[to.ID].Balance)
	assert.True(t, sum.Equal(total), "transfer must conserve total funds: %s != %s", sum, total)
}

func TestTransferService_Transfer_Validation(t *testing.T) {
	store := newFakeStore()
	svc := NewTransferService(store, testLogger())
	owner := store.addUser(models.RoleUser)
	other := store.addUser(models.RoleUser)
	principal := models.Principal{UserID: owner.ID, Role: models.RoleUser}
	ctx := context.Background()
	amount := decimal.NewFromInt(50)

	from := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromInt(500))
	to := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromInt(200))

	t.Run("missing card", func(t *testing.T) {
		_, err := svc.Transfer(ctx, principal, uuid.New(), to.ID, amount, "")
		assert.ErrorIs(t, err, ErrCardNotFound)
		_, err = svc.Transfer(ctx, principal, from.ID, uuid.New(), amount, "")
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("same card", func(t *testing.T) {
		_, err := svc.Transfer(ctx, principal, from.ID, from.ID, amount, "")
		assert.ErrorIs(t, err, ErrSameCardTransfer)
	})

	t.Run("foreign card", func(t *testing.T) {
		foreign := store.addCard(other.ID, models.CardStatusActive, decimal.NewFromInt(100))
		_, err := svc.Transfer(ctx, principal, from.ID, foreign.ID, amount, "")
		assert.ErrorIs(t, err, ErrAccessDenied)

		// Admin role gives no bypass for transfers.
		adminPrincipal := models.Principal{UserID: other.ID, Role: models.RoleAdmin}
		_, err = svc.Transfer(ctx, adminPrincipal, from.ID, to.ID, amount, "")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("blocked card", func(t *testing.T) {
		blocked := store.addCard(owner.ID, models.CardStatusBlocked, decimal.NewFromInt(100))
		_, err := svc.Transfer(ctx, principal, blocked.ID, to.ID, amount, "")
		assert.ErrorIs(t, err, ErrCardNotActive)
	})

	t.Run("expired card", func(t *testing.T) {
		expired := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromInt(100))
		expired.ExpiryDate = time.Now().Add(-time.Hour)
		_, err := svc.Transfer(ctx, principal, from.ID, expired.ID, amount, "")
		assert.ErrorIs(t, err, ErrCardNotActive)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := svc.Transfer(ctx, principal, from.ID, to.ID, decimal.Zero, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = svc.Transfer(ctx, principal, from.ID, to.ID, decimal.NewFromInt(-10), "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		_, err := svc.Transfer(ctx, principal, from.ID, to.ID, decimal.NewFromInt(100000), "")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	// No partial effects from any failed attempt.
	assert.True(t, store.cards[from.ID].Balance.Equal(decimal.NewFromInt(500)))
	assert.True(t, store.cards[to.ID].Balance.Equal(decimal.NewFromInt(200)))
	assert.Empty(t, store.transfers)
}

func TestTransferService_Transfer_SameCardWithFunds(t *testing.T) {
	store := newFakeStore()
	svc := NewTransferService(store, testLogger())
	owner := store.addUser(models.RoleUser)
	principal := models.Principal{UserID: owner.ID, Role: models.RoleUser}

	card := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromInt(500))

	// Same-card transfers fail regardless of balance.
	_, err := svc.Transfer(context.Background(), principal, card.ID, card.ID, decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, ErrSameCardTransfer)
	assert.True(t, store.cards[card.ID].Balance.Equal(decimal.NewFromInt(500)))
}

func TestTransferService_Transfer_Concurrent(t *testing.T) {
	store := newFakeStore()
	svc := NewTransferService(store, testLogger())
	owner := store.addUser(models.RoleUser)
	principal := models.Principal{UserID: owner.ID, Role: models.RoleUser}

	const workers = 5
	amount := decimal.NewFromInt(100)
	from := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromInt(300))
	to := store.addCard(owner.ID, models.CardStatusActive, decimal.Zero)

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transfer(context.Background(), principal, from.ID, to.ID, amount, "")
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrInsufficientFunds):
			insufficient++
		}
	}

	// Exactly enough transfers succeed to exhaust the funds; the source
	// never goes negative.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 2, insufficient)
	assert.True(t, store.cards[from.ID].Balance.IsZero(), "final source balance %s", store.cards[from.ID].Balance)
	assert.True(t, store.cards[to.ID].Balance.Equal(decimal.NewFromInt(300)))
	assert.Len(t, store.transfers, 3)
}

func TestTransferService_GetHistory(t *testing.T) {
	store := newFakeStore()
	svc := NewTransferService(store, testLogger())
	owner := store.addUser(models.RoleUser)
	other := store.addUser(models.RoleUser)
	ctx := context.Background()

	ownerPrincipal := models.Principal{UserID: owner.ID, Role: models.RoleUser}
	otherPrincipal := models.Principal{UserID: other.ID, Role: models.RoleUser}
	admin := models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}

	a := store.addCard(owner.ID, models.CardStatusActive, decimal.NewFromInt(500))
	b := store.addCard(owner.ID, models.CardStatusActive, decimal.Zero)
	c := store.addCard(other.ID, models.CardStatusActive, decimal.NewFromInt(500))
	d := store.addCard(other.ID, models.CardStatusActive, decimal.Zero)

	_, err := svc.Transfer(ctx, ownerPrincipal, a.ID, b.ID, decimal.NewFromInt(10), "")
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, otherPrincipal, c.ID, d.ID, decimal.NewFromInt(20), "")
	require.NoError(t, err)

	t.Run("by card requires ownership", func(t *testing.T) {
		transfers, err := svc.GetHistory(ctx, ownerPrincipal, &a.ID, repository.Page{})
		require.NoError(t, err)
		assert.Len(t, transfers, 1)

		_, err = svc.GetHistory(ctx, otherPrincipal, &a.ID, repository.Page{})
		assert.ErrorIs(t, err, ErrAccessDenied)

		// Admin may inspect any card's history.
		transfers, err = svc.GetHistory(ctx, admin, &a.ID, repository.Page{})
		require.NoError(t, err)
		assert.Len(t, transfers, 1)
	})

	t.Run("unknown card", func(t *testing.T) {
		missing := uuid.New()
		_, err := svc.GetHistory(ctx, ownerPrincipal, &missing, repository.Page{})
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("user sees only own transfers", func(t *testing.T) {
		transfers, err := svc.GetHistory(ctx, ownerPrincipal, nil, repository.Page{})
		require.NoError(t, err)
		require.Len(t, transfers, 1)
		assert.Equal(t, a.ID, transfers[0].FromCardID)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		transfers, err := svc.GetHistory(ctx, admin, nil, repository.Page{})
		require.NoError(t, err)
		assert.Len(t, transfers, 2)
	})
}
