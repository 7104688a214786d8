package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"clubhub/internal/registration/models"
	"clubhub/pkg/platform/sentinel"
)

// PostgresStore persists registrations. The unique (user_id, event_id) index
// is the concurrency safety net for duplicates; the capacity check locks the
// event row so the count and the insert are one atomic step.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, reg *models.Registration, maxCapacity *int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create registration: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if maxCapacity != nil {
		// Serialize capacity checks per event; without the lock two
		// concurrent transactions could both count below the limit.
		if _, err := tx.ExecContext(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, reg.EventID); err != nil {
			return fmt.Errorf("lock event row: %w", err)
		}
		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2
		`, reg.EventID, models.StatusRegistered).Scan(&count); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		if count >= *maxCapacity {
			return sentinel.ErrCapacityFull
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registrations (id, user_id, event_id, participant_type, status, notes, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, reg.ID, reg.UserID, reg.EventID, reg.ParticipantType, reg.Status, reg.Notes, reg.RegisteredAt, reg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, event_id, participant_type, status, notes, registered_at, updated_at
		FROM registrations
		WHERE user_id = $1 AND event_id = $2
	`, userID, eventID)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) DeleteRegistered(ctx context.Context, userID, eventID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM registrations
		WHERE user_id = $1 AND event_id = $2 AND status = $3
	`, userID, eventID, models.StatusRegistered)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM registrations WHERE user_id = $1 AND event_id = $2)
		`, userID, eventID).Scan(&exists); err != nil {
			return fmt.Errorf("check registration exists: %w", err)
		}
		if exists {
			return sentinel.ErrInvalidState
		}
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, userID, eventID uuid.UUID, status models.Status) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE registrations SET status = $3, updated_at = NOW()
		WHERE user_id = $1 AND event_id = $2
	`, userID, eventID, status)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration status rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID, status *models.Status, offset, limit int) ([]*models.Registration, int, error) {
	return s.list(ctx, `user_id`, userID, status, offset, limit)
}

func (s *PostgresStore) ListByEvent(ctx context.Context, eventID uuid.UUID, status *models.Status, offset, limit int) ([]*models.Registration, int, error) {
	return s.list(ctx, `event_id`, eventID, status, offset, limit)
}

func (s *PostgresStore) list(ctx context.Context, column string, id uuid.UUID, status *models.Status, offset, limit int) ([]*models.Registration, int, error) {
	where := fmt.Sprintf(`%s = $1 AND ($2::text IS NULL OR status = $2)`, column)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE `+where, id, nullableStatus(status),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, event_id, participant_type, status, notes, registered_at, updated_at
		FROM registrations
		WHERE `+where+`
		ORDER BY registered_at DESC
		OFFSET $3 LIMIT $4
	`, id, nullableStatus(status), offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations by event: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations by user: %w", err)
	}
	return count, nil
}

type registrationRow interface {
	Scan(dest ...any) error
}

func scanRegistration(row registrationRow) (*models.Registration, error) {
	var reg models.Registration
	var notes sql.NullString
	if err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.ParticipantType, &reg.Status, &notes, &reg.RegisteredAt, &reg.UpdatedAt); err != nil {
		return nil, err
	}
	reg.Notes = notes.String
	return &reg, nil
}

func nullableStatus(status *models.Status) any {
	if status == nil {
		return nil
	}
	return string(*status)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
