package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bluetrack/tracking-backend-go/internal/models"
)

// AccountRepository handles database operations for owning accounts
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID retrieves an account by id, nil if absent
func (r *AccountRepository) GetByID(id string) (*models.Account, error) {
	query := `SELECT id, username, display_name, provisional, created_at FROM accounts WHERE id = ?`

	var a models.Account
	var createdAt int64
	err := r.db.QueryRow(query, id).Scan(&a.ID, &a.Username, &a.DisplayName, &a.Provisional, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.CreatedAt = time.UnixMilli(createdAt)

	return &a, nil
}

// GetOrCreateProvisional returns the account with the given id,
// creating a provisional placeholder owner when absent. Safe under
// concurrent callers: the unique id makes the insert idempotent.
func (r *AccountRepository) GetOrCreateProvisional(id, username string, now time.Time) (*models.Account, error) {
	query := `INSERT OR IGNORE INTO accounts (id, username, display_name, provisional, created_at)
		VALUES (?, ?, '', 1, ?)`

	if _, err := r.db.Exec(query, id, username, now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to create provisional account: %w", err)
	}

	account, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("provisional account %s vanished after insert", id)
	}

	return account, nil
}

// LabelFor resolves the display label for an account id, falling back
// to the id itself when the account or its names are missing.
func (r *AccountRepository) LabelFor(id string) string {
	account, err := r.GetByID(id)
	if err != nil || account == nil {
		return id
	}
	return account.Label()
}
