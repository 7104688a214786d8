package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"clubhub/internal/attendance/models"
	"clubhub/pkg/platform/sentinel"
)

// PostgresStore persists attendance records. The unique (user_id, event_id)
// index backs both the create-only QR path and the upserting faculty path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateOnly(ctx context.Context, a *models.Attendance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (id, user_id, event_id, status, marked_by_id, marked_at, updated_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.UserID, a.EventID, a.Status, a.MarkedByID, a.MarkedAt, a.UpdatedAt, a.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, a *models.Attendance) (*models.Attendance, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, user_id, event_id, status, marked_by_id, marked_at, updated_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, event_id) DO UPDATE
		SET status = EXCLUDED.status,
		    marked_by_id = EXCLUDED.marked_by_id,
		    updated_at = EXCLUDED.updated_at,
		    notes = EXCLUDED.notes
		RETURNING id, user_id, event_id, status, marked_by_id, marked_at, updated_at, notes
	`, a.ID, a.UserID, a.EventID, a.Status, a.MarkedByID, a.MarkedAt, a.UpdatedAt, a.Notes)
	result, err := scanAttendance(row)
	if err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) Update(ctx context.Context, userID, eventID uuid.UUID, status models.Status, notes string, markedByID uuid.UUID, now time.Time) (*models.Attendance, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE attendance
		SET status = $3, notes = $4, marked_by_id = $5, updated_at = $6
		WHERE user_id = $1 AND event_id = $2
		RETURNING id, user_id, event_id, status, marked_by_id, marked_at, updated_at, notes
	`, userID, eventID, status, notes, markedByID, now)
	result, err := scanAttendance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("update attendance: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) Find(ctx context.Context, userID, eventID uuid.UUID) (*models.Attendance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, event_id, status, marked_by_id, marked_at, updated_at, notes
		FROM attendance
		WHERE user_id = $1 AND event_id = $2
	`, userID, eventID)
	a, err := scanAttendance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return a, nil
}

const filterClause = `
	($1::uuid IS NULL OR event_id = $1)
	AND ($2::uuid IS NULL OR user_id = $2)
	AND ($3::text IS NULL OR status = $3)
	AND ($4::timestamptz IS NULL OR marked_at >= $4)
	AND ($5::timestamptz IS NULL OR marked_at <= $5)`

func (s *PostgresStore) List(ctx context.Context, filter Filter, offset, limit int) ([]*models.Attendance, int, error) {
	args := filterArgs(filter)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE `+filterClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, event_id, status, marked_by_id, marked_at, updated_at, notes
		FROM attendance
		WHERE `+filterClause+`
		ORDER BY marked_at DESC
		OFFSET $6 LIMIT $7
	`, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []*models.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, filter Filter) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM attendance
		WHERE `+filterClause+`
		GROUP BY status
	`, filterArgs(filter)...)
	if err != nil {
		return nil, fmt.Errorf("count attendance by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status models.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan attendance count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance counts: %w", err)
	}
	return counts, nil
}

func filterArgs(filter Filter) []any {
	return []any{
		nullableUUID(filter.EventID),
		nullableUUID(filter.UserID),
		nullableStatus(filter.Status),
		nullableTime(filter.From),
		nullableTime(filter.To),
	}
}

type attendanceRow interface {
	Scan(dest ...any) error
}

func scanAttendance(row attendanceRow) (*models.Attendance, error) {
	var a models.Attendance
	var notes sql.NullString
	if err := row.Scan(&a.ID, &a.UserID, &a.EventID, &a.Status, &a.MarkedByID, &a.MarkedAt, &a.UpdatedAt, &notes); err != nil {
		return nil, err
	}
	a.Notes = notes.String
	return &a, nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableStatus(status *models.Status) any {
	if status == nil {
		return nil
	}
	return string(*status)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
