package residence

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

// PostgresResidenceStore persists residences in PostgreSQL.
//
// Older deployments carry the column "nombre" where newer ones carry "name";
// reads try the primary name first and fall back on undefined_column.
type PostgresResidenceStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed residence store. Every call is
// bounded by queryTimeout; zero disables the bound.
func NewPostgres(db *sql.DB, queryTimeout time.Duration) *PostgresResidenceStore {
	return &PostgresResidenceStore{db: db, timeout: queryTimeout}
}

const residenceColumns = `id, residential_id, type, %s, description, available, resident_id`

func (s *PostgresResidenceStore) FindByID(ctx context.Context, residenceID id.ResidenceID) (*models.Residence, error) {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + residenceColumns + ` FROM residences WHERE id = $1`
	residence, err := s.scanOne(ctx, query, "name", uuid.UUID(residenceID))
	if store.IsUndefinedColumn(err) {
		residence, err = s.scanOne(ctx, query, "nombre", uuid.UUID(residenceID))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("residence %s: %w", residenceID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find residence: %w", err)
	}
	return residence, nil
}

func (s *PostgresResidenceStore) scanOne(ctx context.Context, query, nameColumn string, args ...any) (*models.Residence, error) {
	var (
		residence   models.Residence
		residenceID uuid.UUID
		residential uuid.UUID
		rtype       string
		residentID  uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(query, nameColumn), args...).
		Scan(&residenceID, &residential, &rtype, &residence.Name, &residence.Description, &residence.Available, &residentID)
	if err != nil {
		return nil, err
	}
	residence.ID = id.ResidenceID(residenceID)
	residence.ResidentialID = id.ResidentialID(residential)
	residence.Type = models.ResidenceType(rtype)
	if residentID.Valid {
		uid := id.UserID(residentID.UUID)
		residence.ResidentID = &uid
	}
	return &residence, nil
}

func (s *PostgresResidenceStore) ListByResidential(ctx context.Context, residentialID id.ResidentialID) ([]*models.Residence, error) {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + residenceColumns + ` FROM residences WHERE residential_id = $1 ORDER BY %s`
	residences, err := s.list(ctx, fmt.Sprintf(query, "name", "name"), uuid.UUID(residentialID))
	if store.IsUndefinedColumn(err) {
		residences, err = s.list(ctx, fmt.Sprintf(query, "nombre", "nombre"), uuid.UUID(residentialID))
	}
	if err != nil {
		return nil, fmt.Errorf("list residences: %w", err)
	}
	return residences, nil
}

func (s *PostgresResidenceStore) list(ctx context.Context, query string, args ...any) ([]*models.Residence, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var residences []*models.Residence
	for rows.Next() {
		var (
			residence   models.Residence
			residenceID uuid.UUID
			residential uuid.UUID
			rtype       string
			residentID  uuid.NullUUID
		)
		if err := rows.Scan(&residenceID, &residential, &rtype, &residence.Name, &residence.Description, &residence.Available, &residentID); err != nil {
			return nil, err
		}
		residence.ID = id.ResidenceID(residenceID)
		residence.ResidentialID = id.ResidentialID(residential)
		residence.Type = models.ResidenceType(rtype)
		if residentID.Valid {
			uid := id.UserID(residentID.UUID)
			residence.ResidentID = &uid
		}
		residences = append(residences, &residence)
	}
	return residences, rows.Err()
}

func (s *PostgresResidenceStore) Insert(ctx context.Context, residence *models.Residence) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO residences (id, residential_id, type, name, description, available, resident_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(residence.ID), uuid.UUID(residence.ResidentialID),
		string(residence.Type), residence.Name, residence.Description,
		residence.Available, residentIDValue(residence),
	)
	if store.IsUniqueViolation(err) {
		return fmt.Errorf("residence %s: %w", residence.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert residence: %w", err)
	}
	return nil
}

func (s *PostgresResidenceStore) Update(ctx context.Context, residence *models.Residence) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		UPDATE residences
		SET type = $2, name = $3, description = $4, available = $5, resident_id = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(residence.ID),
		string(residence.Type), residence.Name, residence.Description,
		residence.Available, residentIDValue(residence),
	)
	if err != nil {
		return fmt.Errorf("update residence: %w", err)
	}
	return requireRow(res, residence.ID.String())
}

func (s *PostgresResidenceStore) Delete(ctx context.Context, residenceID id.ResidenceID) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM residences WHERE id = $1`, uuid.UUID(residenceID))
	if err != nil {
		return fmt.Errorf("delete residence: %w", err)
	}
	return requireRow(res, residenceID.String())
}

// ClaimIfAvailable relies on the WHERE clause for serialization: the row is
// claimed only if still available, so of two racing claims exactly one
// affects a row.
func (s *PostgresResidenceStore) ClaimIfAvailable(ctx context.Context, residenceID id.ResidenceID, userID id.UserID) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		UPDATE residences
		SET resident_id = $2, available = FALSE
		WHERE id = $1 AND available = TRUE AND resident_id IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(residenceID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("claim residence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish occupied from missing for the caller's error taxonomy.
		if _, err := s.FindByID(ctx, residenceID); err != nil {
			return err
		}
		return fmt.Errorf("residence %s: %w", residenceID, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresResidenceStore) Release(ctx context.Context, residenceID id.ResidenceID) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		UPDATE residences
		SET resident_id = NULL, available = TRUE
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(residenceID))
	if err != nil {
		return fmt.Errorf("release residence: %w", err)
	}
	return requireRow(res, residenceID.String())
}

func residentIDValue(residence *models.Residence) any {
	if residence.ResidentID == nil {
		return nil
	}
	return uuid.UUID(*residence.ResidentID)
}

func requireRow(res sql.Result, key string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("residence %s: %w", key, sentinel.ErrNotFound)
	}
	return nil
}
