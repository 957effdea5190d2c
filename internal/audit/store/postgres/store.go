package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"domio/internal/audit"
	id "domio/pkg/domain"
)

// Store persists audit entries in PostgreSQL. The table is append-only; no
// update or delete statement exists in this package.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// New creates a PostgreSQL-backed audit store. Every call is bounded by
// queryTimeout; zero disables the bound.
func New(db *sql.DB, queryTimeout time.Duration) *Store {
	return &Store{db: db, timeout: queryTimeout}
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Append writes one audit entry.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	payload, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, admin_id, action, entity, entity_id, data, residential_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(entry.AdminID),
		string(entry.Action),
		entry.Entity,
		entry.EntityID,
		payload,
		uuid.UUID(entry.ResidentialID),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns the audit trail for one entity, oldest first.
func (s *Store) ListByEntity(ctx context.Context, entity, entityID string) ([]audit.Entry, error) {
	query := `
		SELECT admin_id, action, entity, entity_id, data, residential_id, created_at
		FROM audit_logs
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at
	`
	return s.list(ctx, query, entity, entityID)
}

// ListByAction returns all entries for one action, oldest first.
func (s *Store) ListByAction(ctx context.Context, action audit.Action) ([]audit.Entry, error) {
	query := `
		SELECT admin_id, action, entity, entity_id, data, residential_id, created_at
		FROM audit_logs
		WHERE action = $1
		ORDER BY created_at
	`
	return s.list(ctx, query, string(action))
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]audit.Entry, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry       audit.Entry
			adminID     uuid.UUID
			action      string
			payload     []byte
			residential uuid.UUID
		)
		if err := rows.Scan(&adminID, &action, &entry.Entity, &entry.EntityID, &payload, &residential, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.Data); err != nil {
				return nil, fmt.Errorf("unmarshal audit payload: %w", err)
			}
		}
		entry.AdminID = id.UserID(adminID)
		entry.Action = audit.Action(action)
		entry.ResidentialID = id.ResidentialID(residential)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
