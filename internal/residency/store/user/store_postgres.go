package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"domio/internal/residency/models"
	"domio/internal/residency/store"
	id "domio/pkg/domain"
	"domio/pkg/platform/sentinel"
)

// PostgresUserStore persists users in PostgreSQL.
//
// The underlying schema drifted over time: older deployments carry the
// column "photoUrl" where newer ones carry "photo_url". Reads try the
// primary name first and fall back on undefined_column, so call sites never
// see the drift.
type PostgresUserStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed user store. Every call is
// bounded by queryTimeout; zero disables the bound.
func NewPostgres(db *sql.DB, queryTimeout time.Duration) *PostgresUserStore {
	return &PostgresUserStore{db: db, timeout: queryTimeout}
}

const userColumns = `id, residential_id, first_name, last_name, email, %s, active`

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	row, err := s.scanOne(ctx, query, "photo_url", uuid.UUID(userID))
	if store.IsUndefinedColumn(err) {
		row, err = s.scanOne(ctx, query, `"photoUrl"`, uuid.UUID(userID))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row, nil
}

func (s *PostgresUserStore) scanOne(ctx context.Context, query, photoColumn string, args ...any) (*models.User, error) {
	var (
		user        models.User
		userID      uuid.UUID
		residential uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(query, photoColumn), args...).
		Scan(&userID, &residential, &user.FirstName, &user.LastName, &user.Email, &user.PhotoURL, &user.Active)
	if err != nil {
		return nil, err
	}
	user.ID = id.UserID(userID)
	user.ResidentialID = id.ResidentialID(residential)
	return &user, nil
}

func (s *PostgresUserStore) ListByResidential(ctx context.Context, residentialID id.ResidentialID) ([]*models.User, error) {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE residential_id = $1`
	users, err := s.list(ctx, query, "photo_url", uuid.UUID(residentialID))
	if store.IsUndefinedColumn(err) {
		users, err = s.list(ctx, query, `"photoUrl"`, uuid.UUID(residentialID))
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *PostgresUserStore) list(ctx context.Context, query, photoColumn string, args ...any) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(query, photoColumn), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var (
			user        models.User
			userID      uuid.UUID
			residential uuid.UUID
		)
		if err := rows.Scan(&userID, &residential, &user.FirstName, &user.LastName, &user.Email, &user.PhotoURL, &user.Active); err != nil {
			return nil, err
		}
		user.ID = id.UserID(userID)
		user.ResidentialID = id.ResidentialID(residential)
		users = append(users, &user)
	}
	return users, rows.Err()
}

func (s *PostgresUserStore) Insert(ctx context.Context, user *models.User) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO users (id, residential_id, first_name, last_name, email, photo_url, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(user.ID), uuid.UUID(user.ResidentialID),
		user.FirstName, user.LastName, user.Email, user.PhotoURL, user.Active,
	)
	if store.IsUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) Update(ctx context.Context, user *models.User) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, photo_url = $5, active = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(user.ID),
		user.FirstName, user.LastName, user.Email, user.PhotoURL, user.Active,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res, user.ID.String())
}

func (s *PostgresUserStore) SetActive(ctx context.Context, userID id.UserID, active bool) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE users SET active = $2 WHERE id = $1`, uuid.UUID(userID), active)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return requireRow(res, userID.String())
}

func requireRow(res sql.Result, key string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", key, sentinel.ErrNotFound)
	}
	return nil
}
