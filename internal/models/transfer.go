package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer is an append-only ledger entry recording a completed movement of
// funds between two cards. A row is written exactly once, alongside the two
// balance mutations it represents, and is never updated or deleted.
type Transfer struct {
	ID           uuid.UUID       `json:"id"`
	FromCardID   uuid.UUID       `json:"from_card_id"`
	ToCardID     uuid.UUID       `json:"to_card_id"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
	TransferDate time.Time       `json:"transfer_date"`
}
