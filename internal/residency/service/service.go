// Package service implements the residency lifecycle orchestrator.
//
// Every lifecycle operation is a saga: an ordered sequence of single-row
// writes against a store with no multi-table transaction primitive. The
// design rules, applied in every operation:
//
//   - logical locks on the touched keys are acquired before the first write
//     and released at the end; contention fails fast with CodeConflict
//   - every write is idempotent by filter, so a retry after an ambiguous
//     outcome converges instead of double-applying
//   - the most destructive step runs last
//   - once the first residence/contract write has committed, a later step
//     failure surfaces as *PartialFailure, never as a generic error
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"domio/internal/audit"
	"domio/internal/identity"
	residencymetrics "domio/internal/residency/metrics"
	"domio/internal/residency/store"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
	"domio/pkg/platform/keylock"
	"domio/pkg/platform/sentinel"
)

// Recorder is the audit surface the orchestrator needs.
type Recorder interface {
	Record(ctx context.Context, action audit.Action, entity, entityID string, data audit.Data)
}

// Service orchestrates residency lifecycle operations.
type Service struct {
	users      store.UserStore
	residences store.ResidenceStore
	contracts  store.ContractStore
	roles      store.RoleStore
	directory  identity.Directory
	recorder   Recorder
	locks      keylock.Locker
	logger     *slog.Logger
	metrics    *residencymetrics.Metrics
	maxRetries int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the residency metrics sink.
func WithMetrics(m *residencymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocker replaces the default in-process locker (e.g. with the Redis
// locker when multiple instances share the store).
func WithLocker(locker keylock.Locker) Option {
	return func(s *Service) { s.locks = locker }
}

// WithMaxRetries bounds per-step retries on transient store failures.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// New constructs the orchestrator over its collaborators.
func New(
	users store.UserStore,
	residences store.ResidenceStore,
	contracts store.ContractStore,
	roles store.RoleStore,
	directory identity.Directory,
	recorder Recorder,
	opts ...Option,
) *Service {
	s := &Service{
		users:      users,
		residences: residences,
		contracts:  contracts,
		roles:      roles,
		directory:  directory,
		recorder:   recorder,
		locks:      keylock.NewInMemoryLocker(),
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Saga step names, shared by results, logs, and audit payloads.
const (
	stepResetRole        = "reset_role"
	stepDeactivateUser   = "deactivate_user"
	stepCloseContract    = "close_contract"
	stepReleaseResidence = "release_residence"
	stepClaimResidence   = "claim_residence"
	stepAssignRole       = "assign_role"
	stepInsertContract   = "insert_contract"
	stepActivateUser     = "activate_user"
)

// Lock key namespaces. Locking both the user and the residence serializes
// any two operations that could race on either entity.
func userKey(userID id.UserID) string        { return "user:" + userID.String() }
func residenceKey(rID id.ResidenceID) string { return "residence:" + rID.String() }

// acquire takes the logical locks for the operation, translating contention
// into the caller-facing Conflict error.
func (s *Service) acquire(ctx context.Context, keys ...string) (func(), error) {
	release, err := s.locks.TryLock(ctx, keys...)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			if s.metrics != nil {
				s.metrics.IncrementConflict()
			}
			return nil, dErrors.New(dErrors.CodeConflict, "another lifecycle operation is in progress for this resident or residence")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire operation lock")
	}
	return release, nil
}

// transient reports whether a step error is worth retrying: transport-level
// failures with unknown outcome. Factual sentinels and coded domain errors
// are never transient.
func transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, sentinel.ErrNotFound),
		errors.Is(err, sentinel.ErrConflict),
		errors.Is(err, sentinel.ErrLocked),
		errors.Is(err, sentinel.ErrInvalidState):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	var de *dErrors.Error
	return !errors.As(err, &de)
}

// retryStep runs one saga step, re-applying it on transient failures up to
// the retry budget. Safe only for idempotent-by-filter writes; steps that
// are not (contract insertion) re-check remote state themselves before
// re-issuing.
func (s *Service) retryStep(ctx context.Context, step string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !transient(err) {
			return err
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "lifecycle step failed, retrying",
				"step", step,
				"attempt", attempt+1,
				"error", err,
			)
		}
	}
	return err
}

func (s *Service) incrementOperation(name string) {
	if s.metrics != nil {
		s.metrics.IncrementOperation(name)
	}
}

func (s *Service) observeSaga(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSaga(start)
	}
}

func (s *Service) logError(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, args...)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
