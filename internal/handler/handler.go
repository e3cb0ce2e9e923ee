package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/AlionaVr/Bank-cards-REST/internal/middleware"
	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/AlionaVr/Bank-cards-REST/internal/repository"
	"github.com/AlionaVr/Bank-cards-REST/internal/service"
	"github.com/AlionaVr/Bank-cards-REST/internal/utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Handler maps HTTP requests onto service operations. It only decodes and
// encodes JSON, resolves the principal and translates errors; all business
// rules live in the services.
type Handler struct {
	auth      *service.AuthService
	cards     *service.CardService
	transfers *service.TransferService
	users     *service.UserService
	log       *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(auth *service.AuthService, cards *service.CardService, transfers *service.TransferService, users *service.UserService, log *logrus.Logger) *Handler {
	return &Handler{auth: auth, cards: cards, transfers: transfers, users: users, log: log}
}

type registerRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, "Login and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Login, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type cardCreationRequest struct {
	OwnerID        uuid.UUID       `json:"owner_id"`
	HolderName     string          `json:"holder_name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// CreateCard handles card issuance (admin only)
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req cardCreationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	card, err := h.cards.Create(r.Context(), principal, req.OwnerID, req.HolderName, req.InitialBalance)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, card)
}

// DeleteCard handles card deletion (admin only, zero balance)
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	h.cardAction(w, r, h.cards.Delete)
}

// ActivateCard handles unblocking a card (admin only)
func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	h.cardAction(w, r, h.cards.Activate)
}

// BlockCard handles blocking a card (admin only)
func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	h.cardAction(w, r, h.cards.Block)
}

// RequestBlock handles a self-service block request by the card owner
func (h *Handler) RequestBlock(w http.ResponseWriter, r *http.Request) {
	h.cardAction(w, r, h.cards.RequestBlock)
}

// GetCardDetails returns the masked card view to its owner or an admin
func (h *Handler) GetCardDetails(w http.ResponseWriter, r *http.Request) {
	principal, cardID, ok := h.principalAndCardID(w, r)
	if !ok {
		return
	}

	card, err := h.cards.GetDetails(r.Context(), principal, cardID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, card)
}

// GetBalance returns the card balance to its owner or an admin
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	principal, cardID, ok := h.principalAndCardID(w, r)
	if !ok {
		return
	}

	balance, err := h.cards.GetBalance(r.Context(), principal, cardID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

// GetUserCards lists a user's cards with optional status and last4 filters
func (h *Handler) GetUserCards(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ownerID, err := uuid.Parse(mux.Vars(r)["userId"])
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	filter := repository.CardFilter{Last4: r.URL.Query().Get("last4")}
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := models.CardStatus(statusParam)
		filter.Status = &status
	}

	cards, err := h.cards.GetUserCards(r.Context(), principal, ownerID, filter, pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cards)
}

// GetAllCards lists every card (admin only)
func (h *Handler) GetAllCards(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cards, err := h.cards.GetAllCards(r.Context(), principal, pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cards)
}

type transferRequest struct {
	FromCardID  uuid.UUID       `json:"from_card_id"`
	ToCardID    uuid.UUID       `json:"to_card_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Transfer handles a funds transfer between two cards of the acting user
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	transfer, err := h.transfers.Transfer(r.Context(), principal, req.FromCardID, req.ToCardID, req.Amount, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transfer)
}

// GetTransferHistory returns a time-descending page of transfers
func (h *Handler) GetTransferHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var cardID *uuid.UUID
	if param := r.URL.Query().Get("card_id"); param != "" {
		id, err := uuid.Parse(param)
		if err != nil {
			http.Error(w, "Invalid card id", http.StatusBadRequest)
			return
		}
		cardID = &id
	}

	transfers, err := h.transfers.GetHistory(r.Context(), principal, cardID, pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transfers)
}

// GetUser returns a user to themselves or an admin
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	principal, userID, ok := h.principalAndUserID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), principal, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// GetAllUsers lists users (admin only)
func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	users, err := h.users.GetAllUsers(r.Context(), principal, pageFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

type userUpdateRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// UpdateUser changes a user's profile fields (self or admin)
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, userID, ok := h.principalAndUserID(w, r)
	if !ok {
		return
	}

	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Role != "" && req.Role != models.RoleUser && req.Role != models.RoleAdmin {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	user, err := h.users.UpdateUser(r.Context(), principal, userID, req.Email, req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// DeleteUser removes a user (admin only)
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, userID, ok := h.principalAndUserID(w, r)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), principal, userID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cardAction factors the shared shape of the card state transition
// endpoints: resolve principal and card id, invoke, report.
func (h *Handler) cardAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, p models.Principal, id uuid.UUID) error) {
	principal, cardID, ok := h.principalAndCardID(w, r)
	if !ok {
		return
	}

	if err := action(r.Context(), principal, cardID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pageFrom(r *http.Request) repository.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return repository.Page{Number: page, Size: size}
}

func (h *Handler) principalAndCardID(w http.ResponseWriter, r *http.Request) (models.Principal, uuid.UUID, bool) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return models.Principal{}, uuid.Nil, false
	}
	cardID, err := uuid.Parse(mux.Vars(r)["cardId"])
	if err != nil {
		http.Error(w, "Invalid card id", http.StatusBadRequest)
		return models.Principal{}, uuid.Nil, false
	}
	return principal, cardID, true
}

func (h *Handler) principalAndUserID(w http.ResponseWriter, r *http.Request) (models.Principal, uuid.UUID, bool) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return models.Principal{}, uuid.Nil, false
	}
	userID, err := uuid.Parse(mux.Vars(r)["userId"])
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return models.Principal{}, uuid.Nil, false
	}
	return principal, userID, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError translates the service error taxonomy into HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCardNotFound), errors.Is(err, service.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrAccessDenied):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrBadCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrNonZeroBalance),
		errors.Is(err, service.ErrUserHasFunds),
		errors.Is(err, service.ErrUserExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrSameCardTransfer),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrCardNotActive),
		errors.Is(err, service.ErrHolderNameRequired),
		errors.Is(err, service.ErrNegativeBalance):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, utils.ErrIntegrity):
		// Data corruption or tampering, not a client mistake. Surfaced
		// loudly for operational alerting.
		h.log.Errorf("Card data integrity failure: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		h.log.Errorf("Unhandled error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
