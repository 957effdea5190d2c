// Package identity models the external identity system's capabilities the
// orchestrator depends on. The identity system owns role provisioning; this
// package only calls into it, it never writes role tables directly.
package identity

import (
	"context"

	id "domio/pkg/domain"
)

// Directory is the identity system's remote surface.
//
// ResetResidentialRole demotes the user's residential role back to its
// baseline (clearing any resident privileges). The call is idempotent on the
// identity system's side: resetting an already-reset role is a no-op.
type Directory interface {
	ResetResidentialRole(ctx context.Context, userID id.UserID) error
}

// Noop is a Directory for deployments without an identity system attached
// (local development, tests). Every reset succeeds without effect.
type Noop struct{}

func (Noop) ResetResidentialRole(context.Context, id.UserID) error { return nil }
