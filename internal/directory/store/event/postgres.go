package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"clubhub/internal/directory/models"
	"clubhub/pkg/platform/sentinel"
)

// PostgresStore persists events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *models.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, description, location, start_at, end_at, max_capacity, club_id, organizer_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, e.ID, e.Title, e.Description, e.Location, e.StartAt, e.EndAt, nullableInt(e.MaxCapacity), e.ClubID, e.OrganizerID, e.Active, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, location, start_at, end_at, max_capacity, club_id, organizer_id, active, created_at, updated_at
		FROM events
		WHERE id = $1
	`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE events SET active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("set event active: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set event active rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByClub(ctx context.Context, clubID uuid.UUID) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, location, start_at, end_at, max_capacity, club_id, organizer_id, active, created_at, updated_at
		FROM events
		WHERE club_id = $1
		ORDER BY start_at DESC
	`, clubID)
	if err != nil {
		return nil, fmt.Errorf("list events by club: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

type eventRow interface {
	Scan(dest ...any) error
}

func scanEvent(row eventRow) (*models.Event, error) {
	var e models.Event
	var maxCapacity sql.NullInt64
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartAt, &e.EndAt, &maxCapacity, &e.ClubID, &e.OrganizerID, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if maxCapacity.Valid {
		capacity := int(maxCapacity.Int64)
		e.MaxCapacity = &capacity
	}
	return &e, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
