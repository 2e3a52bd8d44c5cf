package repository

import (
	"context"

	"miniapp-sync-backend/internal/features/referral/models"
)

// Repository persists referral records keyed by the referred user's id.
type Repository interface {
	// Get returns the record for userID, or nil when none exists.
	Get(ctx context.Context, userID string) (*models.ReferralRecord, error)

	// Create stores a new pending record. Creating over an existing
	// record is a no-op returning the stored one (first link wins).
	Create(ctx context.Context, record *models.ReferralRecord) (*models.ReferralRecord, error)

	// MarkConfirmed persists the confirmed state.
	MarkConfirmed(ctx context.Context, record *models.ReferralRecord) error

	// ClaimConfirmation atomically claims the pending->confirmed
	// transition for userID. Only the first caller gets true; everyone
	// after observes an already-claimed transition.
	ClaimConfirmation(ctx context.Context, userID string) (bool, error)

	// ReleaseConfirmation gives a claim back. Called only when the
	// confirmation could not be persisted, so a later call can claim
	// again and finish the transition.
	ReleaseConfirmation(ctx context.Context, userID string) error
}
