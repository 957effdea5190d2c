package contract

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

// PostgresContractStore persists contracts in PostgreSQL.
//
// The one-active-contract rule is backed by a partial unique index:
//
//	CREATE UNIQUE INDEX contracts_one_active
//	ON contracts (resident_id) WHERE active;
type PostgresContractStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed contract store. Every call is
// bounded by queryTimeout; zero disables the bound.
func NewPostgres(db *sql.DB, queryTimeout time.Duration) *PostgresContractStore {
	return &PostgresContractStore{db: db, timeout: queryTimeout}
}

const contractColumns = `id, resident_id, residence_id, residential_id, start_date, end_date, active`

func (s *PostgresContractStore) FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	contract, err := s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(contractID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contract %s: %w", contractID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find contract: %w", err)
	}
	return contract, nil
}

func (s *PostgresContractStore) FindActiveByResident(ctx context.Context, residentID id.UserID) (*models.Contract, error) {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + contractColumns + ` FROM contracts WHERE resident_id = $1 AND active`
	contract, err := s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(residentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active contract for resident %s: %w", residentID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find active contract: %w", err)
	}
	return contract, nil
}

func (s *PostgresContractStore) ListByResident(ctx context.Context, residentID id.UserID) ([]*models.Contract, error) {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + contractColumns + ` FROM contracts WHERE resident_id = $1 ORDER BY start_date`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(residentID))
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*models.Contract
	for rows.Next() {
		contract, err := s.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, contract)
	}
	return contracts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *PostgresContractStore) scanOne(row scanner) (*models.Contract, error) {
	var (
		contract    models.Contract
		contractID  uuid.UUID
		residentID  uuid.UUID
		residenceID uuid.UUID
		residential uuid.UUID
		endDate     sql.NullTime
	)
	if err := row.Scan(&contractID, &residentID, &residenceID, &residential, &contract.StartDate, &endDate, &contract.Active); err != nil {
		return nil, err
	}
	contract.ID = id.ContractID(contractID)
	contract.ResidentID = id.UserID(residentID)
	contract.ResidenceID = id.ResidenceID(residenceID)
	contract.ResidentialID = id.ResidentialID(residential)
	if endDate.Valid {
		end := endDate.Time
		contract.EndDate = &end
	}
	return &contract, nil
}

func (s *PostgresContractStore) Insert(ctx context.Context, contract *models.Contract) error {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO contracts (id, resident_id, residence_id, residential_id, start_date, end_date, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var endDate any
	if contract.EndDate != nil {
		endDate = *contract.EndDate
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(contract.ID), uuid.UUID(contract.ResidentID),
		uuid.UUID(contract.ResidenceID), uuid.UUID(contract.ResidentialID),
		contract.StartDate, endDate, contract.Active,
	)
	if store.IsUniqueViolation(err) {
		return fmt.Errorf("resident %s already holds an active contract: %w", contract.ResidentID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// CloseActive closes the contract matching (resident_id, active). The filter
// makes the write idempotent: a retry after an ambiguous outcome affects
// zero rows instead of double-applying.
func (s *PostgresContractStore) CloseActive(ctx context.Context, residentID id.UserID, end time.Time) (bool, error) {
	ctx, cancel := store.Bound(ctx, s.timeout)
	defer cancel()

	query := `
		UPDATE contracts
		SET active = FALSE, end_date = $2
		WHERE resident_id = $1 AND active
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(residentID), end)
	if err != nil {
		return false, fmt.Errorf("close active contract: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
