// Package service resolves a trustworthy identity from whatever signals
// the request carries. Resolution never fails hard: a malformed host
// payload or an unreachable guest store degrades to the next source, and
// ultimately to no identity at all (anonymous mode).
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"miniapp-sync-backend/internal/common/containment"
	"miniapp-sync-backend/internal/common/logger"
	"miniapp-sync-backend/internal/features/identity/models"
	"miniapp-sync-backend/internal/features/identity/provider"
)

type Resolver struct {
	host   provider.HostProvider
	guests provider.GuestStore
}

func NewResolver(host provider.HostProvider, guests provider.GuestStore) *Resolver {
	return &Resolver{host: host, guests: guests}
}

// Resolve returns the identity for the request, or nil when no usable
// signal exists. Precedence: authenticated host identity, then the
// persisted browser guest identity, then nothing.
func (r *Resolver) Resolve(ctx context.Context, source models.Source) *models.Identity {
	if identity := r.resolveHost(ctx, source); identity != nil {
		return identity
	}
	if identity := r.resolveGuest(ctx, source); identity != nil {
		return identity
	}
	logger.Debug().Msg("no usable identity signal, proceeding anonymous")
	return nil
}

func (r *Resolver) resolveHost(ctx context.Context, source models.Source) *models.Identity {
	if r.host == nil {
		return nil
	}
	identity, err := r.host.CurrentUser(ctx, source)
	if err != nil {
		containment.Absorb("identity.host", err)
		return nil
	}
	return identity
}

func (r *Resolver) resolveGuest(ctx context.Context, source models.Source) *models.Identity {
	if r.guests == nil || source.DeviceID == "" {
		return nil
	}

	identity, err := r.guests.Get(ctx, source.DeviceID)
	if err != nil {
		containment.Absorb("identity.guest", err)
		return nil
	}
	if identity != nil {
		return identity
	}

	// First visit from this browser: synthesize and persist a stable
	// pseudo-identity so the next resolution returns the same id.
	identity = &models.Identity{
		ID:          fmt.Sprintf("guest_%s", uuid.New().String()),
		DisplayName: "Guest",
		Guest:       true,
	}
	if err := r.guests.Put(ctx, source.DeviceID, identity); err != nil {
		// Storage unavailable: without persistence the id would change on
		// every visit, so report no identity instead.
		containment.Absorb("identity.guest", err)
		return nil
	}
	return identity
}
