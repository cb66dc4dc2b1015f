package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sglgb/internal/assessment/models"
	"sglgb/internal/platform/postgres"
	"sglgb/pkg/platform/sentinel"
	"sglgb/pkg/platform/tx"
)

// PostgresStore persists assessments as a JSONB document next to the
// columns the scheduler and the uniqueness rule query on.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed assessment store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Assessment) error {
	if a == nil {
		return fmt.Errorf("assessment is required")
	}
	a.Version = 1
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	query := `
		INSERT INTO assessments (id, unit_id, year, status, version, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Execer(ctx, s.db).ExecContext(ctx, query,
		a.ID, a.UnitID, a.Year, string(a.Status), a.Version, doc, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("assessment for unit %s year %d: %w", a.UnitID, a.Year, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// FindByID loads an assessment. Inside a transaction the row is locked
// until commit, so writers on other replicas queue behind it.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	query := `SELECT document, version FROM assessments WHERE id = $1`
	if _, inTx := tx.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	var (
		doc     []byte
		version int
	)
	err := tx.Execer(ctx, s.db).QueryRowContext(ctx, query, id).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assessment %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find assessment: %w", err)
	}
	var a models.Assessment
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, fmt.Errorf("decode assessment %s: %w", id, err)
	}
	a.Version = version
	return &a, nil
}

// Update writes a when the stored version still equals a.Version and bumps
// a.Version on success.
func (s *PostgresStore) Update(ctx context.Context, a *models.Assessment) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	query := `
		UPDATE assessments
		SET status = $2, version = version + 1, document = $3, updated_at = $4
		WHERE id = $1 AND version = $5
	`
	exec := tx.Execer(ctx, s.db)
	res, err := exec.ExecContext(ctx, query, a.ID, string(a.Status), doc, a.UpdatedAt, a.Version)
	if err != nil {
		if postgres.IsSerializationFailure(err) {
			return fmt.Errorf("update assessment %s: %w", a.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("update assessment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM assessments WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check assessment: %w", err)
		}
		if !exists {
			return fmt.Errorf("assessment %s: %w", a.ID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("assessment %s version %d: %w", a.ID, a.Version, sentinel.ErrConflict)
	}
	a.Version++
	return nil
}

func (s *PostgresStore) ListIDsByStatus(ctx context.Context, status models.Status, year int) ([]string, error) {
	query := `
		SELECT id FROM assessments
		WHERE status = $1 AND ($2 = 0 OR year = $2)
		ORDER BY id
	`
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx, query, string(status), year)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assessment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return ids, nil
}
