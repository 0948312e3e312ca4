// Package repository provides the durable record store for users, linked
// items and synced financial records. Only canonical (validated and
// sanitized) records reach this layer.
package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/finwell/finance-gateway/internal/models"
	"github.com/lib/pq"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO users (user_id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING created_at`
	err := r.db.QueryRow(query, user.UserID, user.Email, user.Name, user.PasswordHash).
		Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT user_id, email, name, password_hash, created_at
		FROM users
		WHERE email = $1`
	err := r.db.QueryRow(query, email).
		Scan(&user.UserID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// UpsertItem stores or refreshes a linked aggregation item.
func (r *Repository) UpsertItem(item *models.Item) error {
	query := `
		INSERT INTO items (item_id, user_id, access_token, institution_id, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (item_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    institution_id = EXCLUDED.institution_id,
		    status = EXCLUDED.status,
		    updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.Exec(query, item.ItemID, item.UserID, item.AccessToken, item.InstitutionID, item.Status); err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

// FindItem retrieves a linked item owned by the given user.
func (r *Repository) FindItem(itemID, userID string) (*models.Item, error) {
	item := &models.Item{}
	query := `
		SELECT item_id, user_id, access_token, institution_id, status
		FROM items
		WHERE item_id = $1 AND user_id = $2`
	err := r.db.QueryRow(query, itemID, userID).
		Scan(&item.ItemID, &item.UserID, &item.AccessToken, &item.InstitutionID, &item.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return item, nil
}

// DeleteItem removes a linked item owned by the given user.
func (r *Repository) DeleteItem(itemID, userID string) error {
	if _, err := r.db.Exec(`DELETE FROM items WHERE item_id = $1 AND user_id = $2`, itemID, userID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// CreateAccount creates a new account in the database
func (r *Repository) CreateAccount(account *models.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, name, type, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	if _, err := r.db.Exec(query, account.ID, account.UserID, account.Name, account.Type, account.Balance); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// CreateTransaction creates a new transaction in the database
func (r *Repository) CreateTransaction(tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, description, category, date, note, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	if _, err := r.db.Exec(query, tx.ID, tx.UserID, tx.Amount, tx.Description, tx.Category, tx.Date, tx.Note, pq.Array(tx.Tags)); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// UpsertTransaction stores or refreshes a transaction keyed by its id,
// used when re-syncing provider data.
func (r *Repository) UpsertTransaction(tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, description, category, date, note, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE
		SET amount = EXCLUDED.amount,
		    description = EXCLUDED.description,
		    category = EXCLUDED.category,
		    date = EXCLUDED.date,
		    note = EXCLUDED.note,
		    tags = EXCLUDED.tags,
		    updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.Exec(query, tx.ID, tx.UserID, tx.Amount, tx.Description, tx.Category, tx.Date, tx.Note, pq.Array(tx.Tags)); err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return nil
}

// TransactionsByMonth retrieves a user's transactions for one calendar
// month, newest first.
func (r *Repository) TransactionsByMonth(userID string, year int, month time.Month) ([]models.Transaction, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	query := `
		SELECT id, user_id, amount, description, category, date, note, tags
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date DESC`
	rows, err := r.db.Query(query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Description, &tx.Category, &tx.Date, &tx.Note, pq.Array(&tx.Tags)); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
