// Package store defines the row-level accessors for the four collaborating
// collections. Every method is a single independently-atomic round trip to
// the backing store; there is no cross-call atomicity, which is why the
// service layer treats each call site as a failure boundary.
//
// Implementations return pkg/platform/sentinel errors for infrastructure
// facts (ErrNotFound, ErrConflict); the service layer translates them into
// coded domain errors.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"domio/internal/residency/models"
	id "domio/pkg/domain"
)

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	ListByResidential(ctx context.Context, residentialID id.ResidentialID) ([]*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error

	// SetActive flips only the active flag. Filtered on the row id, so
	// re-applying it under retry converges to the same state.
	SetActive(ctx context.Context, userID id.UserID, active bool) error
}

type ResidenceStore interface {
	FindByID(ctx context.Context, residenceID id.ResidenceID) (*models.Residence, error)
	ListByResidential(ctx context.Context, residentialID id.ResidentialID) ([]*models.Residence, error)
	Insert(ctx context.Context, residence *models.Residence) error
	Update(ctx context.Context, residence *models.Residence) error
	Delete(ctx context.Context, residenceID id.ResidenceID) error

	// ClaimIfAvailable assigns userID as occupant only when the residence is
	// still available. This conditional single-row write is the serialization
	// point against double-assignment: of two racing claims exactly one
	// succeeds, the other observes sentinel.ErrConflict.
	ClaimIfAvailable(ctx context.Context, residenceID id.ResidenceID, userID id.UserID) error

	// Release clears the occupant and restores availability.
	// Idempotent: releasing a vacant residence is a no-op.
	Release(ctx context.Context, residenceID id.ResidenceID) error
}

type ContractStore interface {
	FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	FindActiveByResident(ctx context.Context, residentID id.UserID) (*models.Contract, error)
	ListByResident(ctx context.Context, residentID id.UserID) ([]*models.Contract, error)
	Insert(ctx context.Context, contract *models.Contract) error

	// CloseActive closes the contract matching (residentID, active=true),
	// setting the end date. Returns closed=false when no active contract
	// matched, which makes the write idempotent under retry: a second
	// application finds nothing to close.
	CloseActive(ctx context.Context, residentID id.UserID, end time.Time) (closed bool, err error)
}

type RoleStore interface {
	FindByUser(ctx context.Context, userID id.UserID, residentialID id.ResidentialID) (*models.ResidentialRole, error)

	// Save upserts the single role row for (user, residential).
	Save(ctx context.Context, role *models.ResidentialRole) error

	// SetResidence points the role row at a residence, or detaches it when
	// residenceID is nil. Filtered on the row id; idempotent under retry.
	SetResidence(ctx context.Context, roleID id.RoleID, residenceID *id.ResidenceID) error
}

// Bound caps a single store round trip at timeout. Lifecycle operations hold
// logical locks across their store calls, so a call without a deadline can
// pin a lock for as long as a query hangs. A timeout of zero or less leaves
// the context untouched.
func Bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (a non-retryable constraint failure).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsUndefinedColumn reports whether err is a PostgreSQL undefined-column
// error. Postgres stores use it to fall back to a drifted alternate column
// name (spanish-era schemas carry "nombre" where newer ones carry "name").
func IsUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42703"
}
