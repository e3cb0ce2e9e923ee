package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/AlionaVr/Bank-cards-REST/internal/repository"
	"github.com/AlionaVr/Bank-cards-REST/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// cardNumberAttempts bounds the retry loop on a card number fingerprint
// collision. Collisions are overwhelmingly improbable with a random PAN, so
// hitting the bound indicates something is broken rather than bad luck.
const cardNumberAttempts = 3

// Notifier sends out-of-band notices about card lifecycle events. A nil
// Notifier disables notifications.
type Notifier interface {
	CardBlockRequested(user *models.User, last4 string)
	CardBlocked(user *models.User, last4 string)
	CardActivated(user *models.User, last4 string)
}

// CardView is the public representation of a card. The full number never
// appears here, only the masked rendering.
type CardView struct {
	ID             uuid.UUID         `json:"id"`
	MaskedNumber   string            `json:"masked_number"`
	HolderName     string            `json:"holder_name"`
	OwnerID        uuid.UUID         `json:"owner_id"`
	Balance        decimal.Decimal   `json:"balance"`
	CreatedDate    time.Time         `json:"created_date"`
	ExpiryDate     time.Time         `json:"expiry_date"`
	Status         models.CardStatus `json:"status"`
	BlockRequested bool              `json:"block_requested"`
}

// CardService handles the card lifecycle: creation, state transitions,
// deletion and balance reads.
type CardService struct {
	store      repository.Store
	cipher     *utils.PANCipher
	hmacSecret string
	notifier   Notifier
	log        *logrus.Logger
}

// NewCardService initializes a new card service
func NewCardService(store repository.Store, cipher *utils.PANCipher, hmacSecret string, notifier Notifier, log *logrus.Logger) *CardService {
	return &CardService{
		store:      store,
		cipher:     cipher,
		hmacSecret: hmacSecret,
		notifier:   notifier,
		log:        log,
	}
}

// Create issues a new card for the given owner. Admin only. The generated
// number is encrypted before it is stored; only the masked view is returned.
func (s *CardService) Create(ctx context.Context, principal models.Principal, ownerID uuid.UUID, holderName string, initialBalance decimal.Decimal) (*CardView, error) {
	if err := RequireAdmin(principal); err != nil {
		return nil, err
	}
	if holderName == "" {
		return nil, ErrHolderNameRequired
	}
	if initialBalance.IsNegative() {
		return nil, ErrNegativeBalance
	}

	owner, err := s.store.Users().ByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := time.Now()
	card := &models.Card{
		ID:          uuid.New(),
		HolderName:  holderName,
		Balance:     initialBalance,
		OwnerID:     owner.ID,
		CreatedDate: now,
		ExpiryDate:  now.AddDate(4, 0, 0),
		Status:      models.CardStatusActive,
	}

	// The number fingerprint carries a unique index, so a collision shows
	// up as a duplicate-key insert; regenerate and retry a bounded number
	// of times.
	for attempt := 1; ; attempt++ {
		number, err := utils.GenerateCardNumber()
		if err != nil {
			return nil, fmt.Errorf("failed to generate card number: %w", err)
		}
		card.NumberEncrypted, err = s.cipher.Encrypt(number)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt card number: %w", err)
		}
		card.NumberHash = utils.FingerprintCardNumber(number, s.hmacSecret)
		card.Last4 = utils.Last4(number)

		err = s.store.Cards().Create(ctx, card)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt >= cardNumberAttempts {
			return nil, err
		}
		s.log.Warnf("Card number collision on attempt %d, regenerating", attempt)
	}

	s.log.Infof("Card created for user %s", owner.ID)
	return s.view(card, now), nil
}

// Activate moves a blocked card back to active. Admin only.
func (s *CardService) Activate(ctx context.Context, principal models.Principal, cardID uuid.UUID) error {
	if err := RequireAdmin(principal); err != nil {
		return err
	}

	var owner uuid.UUID
	var last4 string
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		card, err := s.lockCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card.IsExpired(time.Now()) || card.Status != models.CardStatusBlocked {
			return ErrInvalidStateTransition
		}
		owner, last4 = card.OwnerID, card.Last4
		return tx.Cards().UpdateStatus(ctx, cardID, models.CardStatusActive, false)
	})
	if err != nil {
		return err
	}

	s.log.Infof("Card %s activated", cardID)
	s.notify(ctx, owner, last4, Notifier.CardActivated)
	return nil
}

// Block moves an active card to blocked and clears any pending block
// request. Admin only.
func (s *CardService) Block(ctx context.Context, principal models.Principal, cardID uuid.UUID) error {
	if err := RequireAdmin(principal); err != nil {
		return err
	}

	var owner uuid.UUID
	var last4 string
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		card, err := s.lockCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card.IsExpired(time.Now()) || card.Status != models.CardStatusActive {
			return ErrInvalidStateTransition
		}
		owner, last4 = card.OwnerID, card.Last4
		return tx.Cards().UpdateStatus(ctx, cardID, models.CardStatusBlocked, false)
	})
	if err != nil {
		return err
	}

	s.log.Infof("Card %s blocked", cardID)
	s.notify(ctx, owner, last4, Notifier.CardBlocked)
	return nil
}

// RequestBlock flags an active card for blocking by an administrator. Only
// the owning user may request it; there is no admin override.
func (s *CardService) RequestBlock(ctx context.Context, principal models.Principal, cardID uuid.UUID) error {
	var owner uuid.UUID
	var last4 string
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		card, err := s.lockCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card.OwnerID != principal.UserID {
			return ErrAccessDenied
		}
		if card.IsExpired(time.Now()) || card.Status != models.CardStatusActive {
			return ErrInvalidStateTransition
		}
		if card.BlockRequested {
			return ErrDuplicateRequest
		}
		owner, last4 = card.OwnerID, card.Last4
		return tx.Cards().UpdateStatus(ctx, cardID, models.CardStatusActive, true)
	})
	if err != nil {
		return err
	}

	s.log.Infof("Block requested for card %s", cardID)
	s.notify(ctx, owner, last4, Notifier.CardBlockRequested)
	return nil
}

// Delete permanently removes a card. Admin only; the balance must be zero.
func (s *CardService) Delete(ctx context.Context, principal models.Principal, cardID uuid.UUID) error {
	if err := RequireAdmin(principal); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		card, err := s.lockCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if !card.Balance.IsZero() {
			return ErrNonZeroBalance
		}
		return tx.Cards().Delete(ctx, cardID)
	})
	if err != nil {
		return err
	}

	s.log.Infof("Card %s deleted", cardID)
	return nil
}

// GetDetails returns the masked card details to the owner or an admin. The
// stored blob is decrypted and re-masked so a corrupted or tampered row
// surfaces as an integrity failure here instead of silently rendering stale
// last4 data.
func (s *CardService) GetDetails(ctx context.Context, principal models.Principal, cardID uuid.UUID) (*CardView, error) {
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnerOrAdmin(card.OwnerID, principal); err != nil {
		return nil, err
	}

	number, err := s.cipher.Decrypt(card.NumberEncrypted)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", cardID, err)
	}

	view := s.view(card, time.Now())
	view.MaskedNumber = utils.MaskCardNumber(utils.Last4(number))
	return view, nil
}

// GetBalance returns the card balance to its owner or an admin.
func (s *CardService) GetBalance(ctx context.Context, principal models.Principal, cardID uuid.UUID) (decimal.Decimal, error) {
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := RequireOwnerOrAdmin(card.OwnerID, principal); err != nil {
		return decimal.Zero, err
	}
	return card.Balance, nil
}

// GetUserCards lists a user's cards, newest first, with optional status and
// last4 filters. Owner or admin.
func (s *CardService) GetUserCards(ctx context.Context, principal models.Principal, ownerID uuid.UUID, filter repository.CardFilter, page repository.Page) ([]*CardView, error) {
	if err := RequireOwnerOrAdmin(ownerID, principal); err != nil {
		return nil, err
	}

	cards, err := s.store.Cards().PageByOwner(ctx, ownerID, filter, page)
	if err != nil {
		return nil, err
	}
	return s.views(cards), nil
}

// GetAllCards lists every card in the system. Admin only.
func (s *CardService) GetAllCards(ctx context.Context, principal models.Principal, page repository.Page) ([]*CardView, error) {
	if err := RequireAdmin(principal); err != nil {
		return nil, err
	}

	cards, err := s.store.Cards().All(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.views(cards), nil
}

// MarkExpiredCards persists EXPIRED for cards past their expiry date. Run on
// a schedule; reads never depend on it because expiry is derived on load.
func (s *CardService) MarkExpiredCards(ctx context.Context) error {
	n, err := s.store.Cards().MarkExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Infof("Marked %d cards as expired", n)
	}
	return nil
}

func (s *CardService) getCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	card, err := s.store.Cards().ByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCardNotFound
	}
	return card, err
}

func (s *CardService) lockCard(ctx context.Context, tx repository.Store, id uuid.UUID) (*models.Card, error) {
	card, err := tx.Cards().ByIDForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCardNotFound
	}
	return card, err
}

func (s *CardService) view(card *models.Card, now time.Time) *CardView {
	return &CardView{
		ID:             card.ID,
		MaskedNumber:   utils.MaskCardNumber(card.Last4),
		HolderName:     card.HolderName,
		OwnerID:        card.OwnerID,
		Balance:        card.Balance,
		CreatedDate:    card.CreatedDate,
		ExpiryDate:     card.ExpiryDate,
		Status:         card.EffectiveStatus(now),
		BlockRequested: card.BlockRequested,
	}
}

func (s *CardService) views(cards []*models.Card) []*CardView {
	now := time.Now()
	views := make([]*CardView, 0, len(cards))
	for _, card := range cards {
		views = append(views, s.view(card, now))
	}
	return views
}

// notify resolves the owner and fires a notification without failing the
// operation: notifications are best-effort.
func (s *CardService) notify(ctx context.Context, ownerID uuid.UUID, last4 string, send func(Notifier, *models.User, string)) {
	if s.notifier == nil {
		return
	}
	owner, err := s.store.Users().ByID(ctx, ownerID)
	if err != nil {
		s.log.Errorf("Failed to load card owner %s for notification: %v", ownerID, err)
		return
	}
	send(s.notifier, owner, last4)
}
