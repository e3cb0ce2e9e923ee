package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same repository
// code runs inside and outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Postgres implements Store over database/sql.
type Postgres struct {
	db *sql.DB
	q  querier
}

// NewPostgres initializes a Postgres-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

func (p *Postgres) Cards() Cards         { return &pgCards{q: p.q} }
func (p *Postgres) Transfers() Transfers { return &pgTransfers{q: p.q} }
func (p *Postgres) Users() Users         { return &pgUsers{q: p.q} }

// InTx runs fn against a store bound to one transaction. A nested call reuses
// the surrounding transaction.
func (p *Postgres) InTx(ctx context.Context, fn func(Store) error) error {
	if _, inTx := p.q.(*sql.Tx); inTx {
		return fn(p)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Postgres{db: p.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// wrapPQ maps driver errors onto the repository sentinels.
func wrapPQ(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

type pgCards struct {
	q querier
}

const cardColumns = `id, number_encrypted, number_hash, last4, holder_name, balance, owner_id, created_date, expiry_date, status, block_requested`

func (r *pgCards) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.ExecContext(ctx, query,
		card.ID, card.NumberEncrypted, card.NumberHash, card.Last4, card.HolderName,
		card.Balance, card.OwnerID, card.CreatedDate, card.ExpiryDate, card.Status, card.BlockRequested)
	if err != nil {
		return wrapPQ(err, "create card")
	}
	return nil
}

func (r *pgCards) ByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	return r.scanCard(r.q.QueryRowContext(ctx, query, id))
}

func (r *pgCards) ByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 FOR UPDATE`
	return r.scanCard(r.q.QueryRowContext(ctx, query, id))
}

func (r *pgCards) scanCard(row *sql.Row) (*models.Card, error) {
	card := &models.Card{}
	err := row.Scan(&card.ID, &card.NumberEncrypted, &card.NumberHash, &card.Last4,
		&card.HolderName, &card.Balance, &card.OwnerID, &card.CreatedDate,
		&card.ExpiryDate, &card.Status, &card.BlockRequested)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	return card, nil
}

func (r *pgCards) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CardStatus, blockRequested bool) error {
	query := `UPDATE cards SET status = $2, block_requested = $3 WHERE id = $1`
	res, err := r.q.ExecContext(ctx, query, id, status, blockRequested)
	if err != nil {
		return fmt.Errorf("failed to update card status: %w", err)
	}
	return requireRow(res)
}

func (r *pgCards) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE cards SET balance = $2 WHERE id = $1`
	res, err := r.q.ExecContext(ctx, query, id, balance)
	if err != nil {
		return fmt.Errorf("failed to update card balance: %w", err)
	}
	return requireRow(res)
}

func (r *pgCards) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return requireRow(res)
}

func (r *pgCards) ByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1`
	return r.queryCards(ctx, query, ownerID)
}

func (r *pgCards) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM cards WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("failed to delete cards by owner: %w", err)
	}
	return nil
}

func (r *pgCards) PageByOwner(ctx context.Context, ownerID uuid.UUID, filter CardFilter, page Page) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1`
	args := []any{ownerID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Last4 != "" {
		args = append(args, filter.Last4)
		query += fmt.Sprintf(" AND last4 = $%d", len(args))
	}
	args = append(args, page.Limit(), page.Offset())
	query += fmt.Sprintf(" ORDER BY created_date DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return r.queryCards(ctx, query, args...)
}

func (r *pgCards) All(ctx context.Context, page Page) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards ORDER BY created_date DESC LIMIT $1 OFFSET $2`
	return r.queryCards(ctx, query, page.Limit(), page.Offset())
}

func (r *pgCards) queryCards(ctx context.Context, query string, args ...any) ([]*models.Card, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card := &models.Card{}
		if err := rows.Scan(&card.ID, &card.NumberEncrypted, &card.NumberHash, &card.Last4,
			&card.HolderName, &card.Balance, &card.OwnerID, &card.CreatedDate,
			&card.ExpiryDate, &card.Status, &card.BlockRequested); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (r *pgCards) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE cards SET status = $1, block_requested = FALSE WHERE expiry_date <= $2 AND status <> $1`
	res, err := r.q.ExecContext(ctx, query, models.CardStatusExpired, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired cards: %w", err)
	}
	return res.RowsAffected()
}

type pgTransfers struct {
	q querier
}

const transferColumns = `id, from_card_id, to_card_id, amount, description, transfer_date`

func (r *pgTransfers) Create(ctx context.Context, transfer *models.Transfer) error {
	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.ExecContext(ctx, query,
		transfer.ID, transfer.FromCardID, transfer.ToCardID,
		transfer.Amount, transfer.Description, transfer.TransferDate)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

func (r *pgTransfers) PageByCard(ctx context.Context, cardID uuid.UUID, page Page) ([]*models.Transfer, error) {
	query := `
		SELECT ` + transferColumns + ` FROM transfers
		WHERE from_card_id = $1 OR to_card_id = $1
		ORDER BY transfer_date DESC LIMIT $2 OFFSET $3`
	return r.queryTransfers(ctx, query, cardID, page.Limit(), page.Offset())
}

func (r *pgTransfers) PageByUser(ctx context.Context, userID uuid.UUID, page Page) ([]*models.Transfer, error) {
	query := `
		SELECT t.id, t.from_card_id, t.to_card_id, t.amount, t.description, t.transfer_date
		FROM transfers t
		JOIN cards c ON c.id = t.from_card_id OR c.id = t.to_card_id
		WHERE c.owner_id = $1
		GROUP BY t.id, t.from_card_id, t.to_card_id, t.amount, t.description, t.transfer_date
		ORDER BY t.transfer_date DESC LIMIT $2 OFFSET $3`
	return r.queryTransfers(ctx, query, userID, page.Limit(), page.Offset())
}

func (r *pgTransfers) PageAll(ctx context.Context, page Page) ([]*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers ORDER BY transfer_date DESC LIMIT $1 OFFSET $2`
	return r.queryTransfers(ctx, query, page.Limit(), page.Offset())
}

func (r *pgTransfers) queryTransfers(ctx context.Context, query string, args ...any) ([]*models.Transfer, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		t := &models.Transfer{}
		var description sql.NullString
		if err := rows.Scan(&t.ID, &t.FromCardID, &t.ToCardID, &t.Amount, &description, &t.TransferDate); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		t.Description = description.String
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

type pgUsers struct {
	q querier
}

const userColumns = `id, login, email, password_hash, role, created_at`

func (r *pgUsers) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.ExecContext(ctx, query,
		user.ID, user.Login, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		return wrapPQ(err, "create user")
	}
	return nil
}

func (r *pgUsers) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.q.QueryRowContext(ctx, query, id))
}

func (r *pgUsers) ByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login = $1`
	return r.scanUser(r.q.QueryRowContext(ctx, query, login))
}

func (r *pgUsers) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Login, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

func (r *pgUsers) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET email = $2, role = $3 WHERE id = $1`
	res, err := r.q.ExecContext(ctx, query, user.ID, user.Email, user.Role)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(res)
}

func (r *pgUsers) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(res)
}

func (r *pgUsers) Page(ctx context.Context, page Page) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.q.QueryContext(ctx, query, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Login, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
