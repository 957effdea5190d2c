package role

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

// PostgresRoleStore persists role assignments in PostgreSQL. The
// one-row-per-(user, residential) rule is backed by a unique constraint on
// (user_id, residential_id); Save upserts against it.
type PostgresRoleStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed role store. Every call is
// bounded by queryTimeout; zero disables the bound.
func NewPostgres(db *sql.DB, queryTimeout time.Duration) *PostgresRoleStore {
	return &PostgresRoleStore{db: db, timeout: queryTimeout}
}

func (s *PostgresRoleStore) FindByUser(ctx context.Context, userID id.UserID, residentialID id.ResidentialID) (*models.ResidentialRole, error) {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, user_id, residential_id, role, residence_id
		FROM user_residential_roles
		WHERE user_id = $1 AND residential_id = $2
	`
	var (
		role        models.ResidentialRole
		roleID      uuid.UUID
		uID         uuid.UUID
		residential uuid.UUID
		roleName    string
		residenceID uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(userID), uuid.UUID(residentialID)).
		Scan(&roleID, &uID, &residential, &roleName, &residenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role for user %s: %w", userID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	role.ID = id.RoleID(roleID)
	role.UserID = id.UserID(uID)
	role.ResidentialID = id.ResidentialID(residential)
	role.Role = id.RoleName(roleName)
	if residenceID.Valid {
		rid := id.ResidenceID(residenceID.UUID)
		role.ResidenceID = &rid
	}
	return &role, nil
}

func (s *PostgresRoleStore) Save(ctx context.Context, role *models.ResidentialRole) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO user_residential_roles (id, user_id, residential_id, role, residence_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, residential_id) DO UPDATE SET
			role = EXCLUDED.role,
			residence_id = EXCLUDED.residence_id
	`
	var residenceID any
	if role.ResidenceID != nil {
		residenceID = uuid.UUID(*role.ResidenceID)
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(role.ID), uuid.UUID(role.UserID), uuid.UUID(role.ResidentialID),
		string(role.Role), residenceID,
	)
	if err != nil {
		return fmt.Errorf("save role: %w", err)
	}
	return nil
}

func (s *PostgresRoleStore) SetResidence(ctx context.Context, roleID id.RoleID, residenceID *id.ResidenceID) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	var value any
	if residenceID != nil {
		value = uuid.UUID(*residenceID)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_residential_roles SET residence_id = $2 WHERE id = $1`,
		uuid.UUID(roleID), value,
	)
	if err != nil {
		return fmt.Errorf("set role residence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("role %s: %w", roleID, sentinel.ErrNotFound)
	}
	return nil
}
