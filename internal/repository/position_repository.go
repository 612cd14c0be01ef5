package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bluetrack/tracking-backend-go/internal/models"
)

// PositionRepository is the append-only store of GPS fixes
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

const fixColumns = `id, account_id, latitude, longitude, speed, heading, altitude, accuracy, timestamp, created_at`

func scanFix(row interface{ Scan(...interface{}) error }) (models.Fix, error) {
	var f models.Fix
	var ts, createdAt int64

	err := row.Scan(
		&f.ID, &f.AccountID, &f.Latitude, &f.Longitude, &f.Speed, &f.Heading,
		&f.Altitude, &f.Accuracy, &ts, &createdAt,
	)
	if err != nil {
		return models.Fix{}, err
	}

	f.Timestamp = time.UnixMilli(ts)
	f.CreatedAt = time.UnixMilli(createdAt)

	return f, nil
}

// Append stores a fix and stamps its ingestion time. Fixes are never
// updated afterwards.
func (r *PositionRepository) Append(fix *models.Fix, now time.Time) (int64, error) {
	query := `INSERT INTO fixes (account_id, latitude, longitude, speed, heading, altitude, accuracy, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Exec(query,
		fix.AccountID, fix.Latitude, fix.Longitude, fix.Speed, fix.Heading,
		fix.Altitude, fix.Accuracy, fix.Timestamp.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append fix: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read fix id: %w", err)
	}

	fix.ID = id
	fix.CreatedAt = time.UnixMilli(now.UnixMilli())

	return id, nil
}

// RecentByAccount retrieves an account's fixes inside the window,
// most recent first
func (r *PositionRepository) RecentByAccount(accountID string, window time.Duration, limit int, now time.Time) ([]models.Fix, error) {
	if limit < 1 {
		limit = 1000
	}
	cutoff := now.Add(-window).UnixMilli()

	query := `SELECT ` + fixColumns + ` FROM fixes
		WHERE account_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC, created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.Query(query, accountID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fixes: %w", err)
	}
	defer rows.Close()

	var fixes []models.Fix
	for rows.Next() {
		f, err := scanFix(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fix: %w", err)
		}
		fixes = append(fixes, f)
	}

	return fixes, rows.Err()
}

// LatestByAccount retrieves an account's single most recent fix, nil
// if the account has never reported
func (r *PositionRepository) LatestByAccount(accountID string) (*models.Fix, error) {
	query := `SELECT ` + fixColumns + ` FROM fixes
		WHERE account_id = ?
		ORDER BY timestamp DESC, created_at DESC, id DESC LIMIT 1`

	f, err := scanFix(r.db.QueryRow(query, accountID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest fix: %w", err)
	}

	return &f, nil
}

// LatestPerAccount returns each account's most recent fix inside the
// window. Ties on timestamp fall to the greatest created_at, then the
// greatest row id, so the most recently ingested fix wins under clock
// skew.
func (r *PositionRepository) LatestPerAccount(window time.Duration, now time.Time) (map[string]models.Fix, error) {
	cutoff := now.Add(-window).UnixMilli()

	query := `SELECT ` + fixColumns + ` FROM fixes
		WHERE timestamp >= ?
		ORDER BY timestamp DESC, created_at DESC, id DESC`

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest fixes: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]models.Fix)
	for rows.Next() {
		f, err := scanFix(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fix: %w", err)
		}
		if _, seen := latest[f.AccountID]; !seen {
			latest[f.AccountID] = f
		}
	}

	return latest, rows.Err()
}

// CountByAccount reports how many fixes an account has inside the window
func (r *PositionRepository) CountByAccount(accountID string, window time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-window).UnixMilli()

	var total int64
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM fixes WHERE account_id = ? AND timestamp >= ?`,
		accountID, cutoff,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count fixes: %w", err)
	}

	return total, nil
}
