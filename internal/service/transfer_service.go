package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/AlionaVr/Bank-cards-REST/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TransferService moves funds between two cards of one user and keeps the
// append-only transfer ledger.
type TransferService struct {
	store repository.Store
	log   *logrus.Logger
}

// NewTransferService initializes a new transfer service
func NewTransferService(store repository.Store, log *logrus.Logger) *TransferService {
	return &TransferService{store: store, log: log}
}

// Transfer atomically debits the source card, credits the destination card
// and appends a ledger row. Both cards must belong to the acting user; there
// is no admin bypass. All validation happens before any mutation, and the
// three writes commit as one transaction.
func (s *TransferService) Transfer(ctx context.Context, principal models.Principal, fromCardID, toCardID uuid.UUID, amount decimal.Decimal, description string) (*models.Transfer, error) {
	var transfer *models.Transfer

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		fromCard, toCard, err := s.lockPair(ctx, tx, fromCardID, toCardID)
		if err != nil {
			return err
		}

		if fromCardID == toCardID {
			return ErrSameCardTransfer
		}
		if fromCard.OwnerID != principal.UserID || toCard.OwnerID != principal.UserID {
			return ErrAccessDenied
		}
		now := time.Now()
		if !fromCard.IsActive(now) || !toCard.IsActive(now) {
			return ErrCardNotActive
		}
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}
		if fromCard.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		if err := tx.Cards().UpdateBalance(ctx, fromCard.ID, fromCard.Balance.Sub(amount)); err != nil {
			return err
		}
		if err := tx.Cards().UpdateBalance(ctx, toCard.ID, toCard.Balance.Add(amount)); err != nil {
			return err
		}

		transfer = &models.Transfer{
			ID:           uuid.New(),
			FromCardID:   fromCard.ID,
			ToCardID:     toCard.ID,
			Amount:       amount,
			Description:  description,
			TransferDate: now,
		}
		return tx.Transfers().Create(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Transfer %s: %s from card %s to card %s", transfer.ID, amount, fromCardID, toCardID)
	return transfer, nil
}

// lockPair reads both cards under row locks, always locking in id order so
// two concurrent transfers over the same pair cannot deadlock. When both ids
// are equal a single lock is taken; the same-card check fires afterwards.
func (s *TransferService) lockPair(ctx context.Context, tx repository.Store, fromID, toID uuid.UUID) (*models.Card, *models.Card, error) {
	if fromID == toID {
		card, err := s.lock(ctx, tx, fromID)
		if err != nil {
			return nil, nil, err
		}
		return card, card, nil
	}

	first, second := fromID, toID
	if bytes.Compare(toID[:], fromID[:]) < 0 {
		first, second = toID, fromID
	}

	firstCard, err := s.lock(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	secondCard, err := s.lock(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == fromID {
		return firstCard, secondCard, nil
	}
	return secondCard, firstCard, nil
}

func (s *TransferService) lock(ctx context.Context, tx repository.Store, id uuid.UUID) (*models.Card, error) {
	card, err := tx.Cards().ByIDForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCardNotFound
	}
	return card, err
}

// GetHistory returns a time-descending page of transfers. With a card id,
// the caller must own that card unless they are an admin. Without one, a
// regular user sees transfers touching their own cards and an admin sees the
// whole ledger.
func (s *TransferService) GetHistory(ctx context.Context, principal models.Principal, cardID *uuid.UUID, page repository.Page) ([]*models.Transfer, error) {
	if cardID != nil {
		card, err := s.store.Cards().ByID(ctx, *cardID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		if err != nil {
			return nil, err
		}
		if err := RequireOwnerOrAdmin(card.OwnerID, principal); err != nil {
			return nil, err
		}
		return s.store.Transfers().PageByCard(ctx, *cardID, page)
	}

	if principal.IsAdmin() {
		return s.store.Transfers().PageAll(ctx, page)
	}
	return s.store.Transfers().PageByUser(ctx, principal.UserID, page)
}
