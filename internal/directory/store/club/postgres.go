package club

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"clubhub/internal/directory/models"
	"clubhub/pkg/platform/sentinel"
)

// PostgresStore persists clubs and their member sets. Membership lives in a
// club_members join table so adds and removes are single-row writes, never
// read-modify-write of the whole club document.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, c *models.Club) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create club: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO clubs (id, name, description, coordinator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.Name, c.Description, c.CoordinatorID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert club: %w", err)
	}

	for _, memberID := range c.MemberIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO club_members (club_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, c.ID, memberID); err != nil {
			return fmt.Errorf("insert club member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create club: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Club, error) {
	var c models.Club
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, coordinator_id, created_at, updated_at
		FROM clubs
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.CoordinatorID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find club: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM club_members WHERE club_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("list club members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var memberID uuid.UUID
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("scan club member: %w", err)
		}
		c.MemberIDs = append(c.MemberIDs, memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate club members: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) AddMember(ctx context.Context, clubID, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO club_members (club_id, user_id)
		SELECT $1, $2
		WHERE EXISTS (SELECT 1 FROM clubs WHERE id = $1)
		ON CONFLICT DO NOTHING
	`, clubID, userID)
	if err != nil {
		return fmt.Errorf("add club member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add club member rows affected: %w", err)
	}
	if rows == 0 {
		// Either the club is missing or the membership already exists;
		// distinguish so callers get not_found for missing clubs.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM clubs WHERE id = $1)`, clubID).Scan(&exists); err != nil {
			return fmt.Errorf("check club exists: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
	}
	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, clubID, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM club_members WHERE club_id = $1 AND user_id = $2
	`, clubID, userID)
	if err != nil {
		return fmt.Errorf("remove club member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove club member rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
