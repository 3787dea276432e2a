package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/roastmail/internal/domain"
)

type AttemptStore struct {
	db *sql.DB
}

func NewAttemptStore(db *sql.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

const attemptColumns = `id, session_id, backend, model, status, error, duration_ms, started_at`

func (s *AttemptStore) Create(ctx context.Context, a *domain.Attempt) (*domain.Attempt, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (session_id, backend, model, status, error, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.SessionID, a.Backend, a.Model, string(a.Status), a.Error, a.DurationMS, a.StartedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *AttemptStore) GetByID(ctx context.Context, id int64) (*domain.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `
		SELECT `+attemptColumns+` FROM attempts WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return a, nil
}

// ListRecent returns up to limit attempts, newest first.
func (s *AttemptStore) ListRecent(ctx context.Context, limit int) ([]*domain.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attemptColumns+` FROM attempts ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	attempts := make([]*domain.Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}
	return attempts, nil
}

// CountByStatus returns the number of attempts per status.
func (s *AttemptStore) CountByStatus(ctx context.Context) (map[domain.AttemptStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM attempts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.AttemptStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[domain.AttemptStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (*domain.Attempt, error) {
	a := &domain.Attempt{}
	var status string
	if err := row.Scan(&a.ID, &a.SessionID, &a.Backend, &a.Model, &status, &a.Error, &a.DurationMS, &a.StartedAt); err != nil {
		return nil, err
	}
	a.Status = domain.AttemptStatus(status)
	return a, nil
}
