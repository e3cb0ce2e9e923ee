package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardStatus is the stored lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Card represents a bank card. The full card number is stored encrypted and
// never leaves the service; only Last4 is kept in clear for display.
type Card struct {
	ID uuid.UUID `json:"id"`
	// NumberEncrypted is base64(nonce || ciphertext || tag). Never logged,
	// never serialized.
	NumberEncrypted string `json:"-"`
	// NumberHash is a deterministic HMAC fingerprint of the card number,
	// carrying the storage-level uniqueness constraint the randomized
	// ciphertext cannot.
	NumberHash     string          `json:"-"`
	Last4          string          `json:"last4"`
	HolderName     string          `json:"holder_name"`
	Balance        decimal.Decimal `json:"balance"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	CreatedDate    time.Time       `json:"created_date"`
	ExpiryDate     time.Time       `json:"expiry_date"`
	Status         CardStatus      `json:"status"`
	BlockRequested bool            `json:"block_requested"`
}

// IsExpired reports whether the card is past its expiry date, regardless of
// the stored status.
func (c *Card) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiryDate)
}

// EffectiveStatus derives the status visible to callers. Expiry wins over
// whatever status is stored, so a long-lived read can never present a stale
// ACTIVE card past its expiry date.
func (c *Card) EffectiveStatus(now time.Time) CardStatus {
	if c.IsExpired(now) {
		return CardStatusExpired
	}
	return c.Status
}

// IsActive reports whether the card is usable for transfers right now.
func (c *Card) IsActive(now time.Time) bool {
	return c.EffectiveStatus(now) == CardStatusActive
}
