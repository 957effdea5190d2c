// Package audit appends immutable audit log entries for lifecycle operations.
//
// Audit is observability, not a transactional participant: a failed append is
// logged and counted but never propagated, so the calling operation's result
// is unaffected. Requiring audit to succeed would make the system less
// available without improving correctness.
package audit

import (
	"context"
	"log/slog"

	"domio/pkg/requestcontext"
)

// Store persists audit entries. Append must be a single atomic write.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entity, entityID string) ([]Entry, error)
	ListByAction(ctx context.Context, action Action) ([]Entry, error)
}

// DropCounter counts audit entries that could not be persisted.
type DropCounter interface {
	IncrementAuditDropped()
}

// Recorder builds entries from operation context and appends them best-effort.
type Recorder struct {
	store  Store
	logger *slog.Logger
	drops  DropCounter
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the structured logger used for append failures.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// WithDropCounter sets the metrics sink for failed appends.
func WithDropCounter(drops DropCounter) RecorderOption {
	return func(r *Recorder) { r.drops = drops }
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one entry. The actor, residential scope, and timestamp come
// from the request context; the payload is validated against the action's
// recognized keys. Failures are swallowed after logging.
func (r *Recorder) Record(ctx context.Context, action Action, entity, entityID string, data Data) {
	entry := Entry{
		AdminID:       requestcontext.ActorID(ctx),
		Action:        action,
		Entity:        entity,
		EntityID:      entityID,
		Data:          data,
		ResidentialID: requestcontext.ResidentialID(ctx),
		CreatedAt:     requestcontext.Now(ctx),
	}

	if err := data.Validate(action); err != nil {
		r.warn(ctx, "audit payload rejected", entry, err)
		return
	}
	if err := r.store.Append(ctx, entry); err != nil {
		r.warn(ctx, "audit append failed", entry, err)
		return
	}
	if r.logger != nil {
		r.logger.InfoContext(ctx, "audit entry recorded",
			"log_type", "audit",
			"action", string(action),
			"entity", entity,
			"entity_id", entityID,
			"admin_id", entry.AdminID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (r *Recorder) warn(ctx context.Context, msg string, entry Entry, err error) {
	if r.logger != nil {
		r.logger.WarnContext(ctx, msg,
			"log_type", "audit",
			"action", string(entry.Action),
			"entity", entry.Entity,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
	if r.drops != nil {
		r.drops.IncrementAuditDropped()
	}
}

// ListByEntity returns the audit trail for one entity, oldest first.
func (r *Recorder) ListByEntity(ctx context.Context, entity, entityID string) ([]Entry, error) {
	return r.store.ListByEntity(ctx, entity, entityID)
}
