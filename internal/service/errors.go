package service

import "errors"

// Business-rule violations returned to the caller. The HTTP layer maps each
// of these to a stable status code; none are swallowed or retried here.
var (
	ErrCardNotFound = errors.New("card not found")
	ErrUserNotFound = errors.New("user not found")

	ErrInvalidStateTransition = errors.New("invalid card state transition")
	ErrDuplicateRequest       = errors.New("card block already requested")
	ErrNonZeroBalance         = errors.New("cannot delete card with non-zero balance")

	ErrSameCardTransfer  = errors.New("cannot transfer to the same card")
	ErrInsufficientFunds = errors.New("insufficient funds on source card")
	ErrInvalidAmount     = errors.New("transfer amount must be positive")
	ErrCardNotActive     = errors.New("card is not active")

	ErrAccessDenied = errors.New("access denied")

	ErrHolderNameRequired = errors.New("card holder name is required")
	ErrNegativeBalance    = errors.New("initial balance cannot be negative")

	ErrUserExists     = errors.New("user already exists")
	ErrBadCredentials = errors.New("bad credentials")
	ErrUserHasFunds   = errors.New("cannot delete user with cards that have non-zero balance")
)
