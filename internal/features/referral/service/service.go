// Package service runs the referral confirmation workflow: at most one
// crediting event per referred user, ever, no matter how many app opens
// or concurrent confirmation calls race for it.
package service

import (
	"context"
	"time"

	"miniapp-sync-backend/internal/common/containment"
	"miniapp-sync-backend/internal/common/errors"
	"miniapp-sync-backend/internal/common/logger"
	identitymodels "miniapp-sync-backend/internal/features/identity/models"
	"miniapp-sync-backend/internal/features/referral/events"
	"miniapp-sync-backend/internal/features/referral/models"
	"miniapp-sync-backend/internal/features/referral/repository"
	usermodels "miniapp-sync-backend/internal/features/user/models"
	userrepo "miniapp-sync-backend/internal/features/user/repository"
)

// Notifier tells a referrer their invite was credited. Failures are
// swallowed by the caller; notification is a courtesy, not a guarantee.
type Notifier interface {
	NotifyReferralConfirmed(ctx context.Context, referrerID string, bonus int64) error
}

type Service struct {
	repo      repository.Repository
	store     userrepo.Store
	notifier  Notifier
	publisher *events.Publisher
	bonus     int64

	now func() time.Time
}

func New(repo repository.Repository, store userrepo.Store, notifier Notifier, publisher *events.Publisher, bonus int64) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		bonus:     bonus,
		now:       time.Now,
	}
}

// CreatePending records that userID arrived via referrerID's link. The
// first link wins; a repeat create returns the stored record unchanged.
func (s *Service) CreatePending(ctx context.Context, userID, referrerID string) (*models.ReferralRecord, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "missing")
	}
	if userID == referrerID {
		return nil, errors.NewValidationError("referrer_id", "self-referral")
	}
	return s.repo.Create(ctx, &models.ReferralRecord{
		UserID:     userID,
		Status:     models.StatusPending,
		ReferrerID: referrerID,
	})
}

// Get returns the referral record for userID, or a NOT_FOUND error.
func (s *Service) Get(ctx context.Context, userID string) (*models.ReferralRecord, error) {
	record, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New(errors.ErrCodeReferralNotFound, "no referral record").WithUserID(userID)
	}
	return record, nil
}

// Confirm performs the idempotent confirmation for userID. It reports
// whether this call credited the referral; an absent record or an
// already-confirmed one is a harmless no-op, not an error.
func (s *Service) Confirm(ctx context.Context, userID string) (bool, error) {
	record, err := s.repo.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if record == nil || record.Status == models.StatusConfirmed {
		return false, nil
	}

	// The claim is the exactly-once gate: under duplicate concurrent
	// calls only one gets through to credit the referrer.
	claimed, err := s.repo.ClaimConfirmation(ctx, userID)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	confirmedAt := s.now()
	record.Status = models.StatusConfirmed
	record.ConfirmedAt = &confirmedAt
	if err := s.repo.MarkConfirmed(ctx, record); err != nil {
		// The status write failed before anything was credited, so the
		// claim is handed back. A later open claims again and runs the
		// whole transition from scratch.
		if relErr := s.repo.ReleaseConfirmation(ctx, userID); relErr != nil {
			containment.Absorb("referral.release", relErr)
		}
		return false, err
	}

	s.credit(ctx, record)

	logger.Info().
		Str("user_id", userID).
		Str("referrer_id", record.ReferrerID).
		Msg("referral confirmed")
	return true, nil
}

// ConfirmOnOpen is the app-open entry point: fire-and-forget from the
// orchestrator's view. The returned channel closes when the background
// confirmation finished; only tests wait on it.
func (s *Service) ConfirmOnOpen(ctx context.Context, identity identitymodels.Identity) <-chan struct{} {
	return containment.Go(ctx, "referral.confirm", func(ctx context.Context) error {
		_, err := s.Confirm(ctx, identity.ID)
		return err
	})
}

// credit applies the one-time referrer rewards and side-channel effects.
// Counter updates ride the claim guard; everything after them is
// best-effort.
func (s *Service) credit(ctx context.Context, record *models.ReferralRecord) {
	if record.ReferrerID == "" {
		return
	}

	path := userrepo.UserPath(record.ReferrerID)
	if _, err := s.store.IncrBy(ctx, path, usermodels.FieldReferralCount, 1); err != nil {
		containment.Absorb("referral.credit", err)
	}
	if _, err := s.store.IncrByFloat(ctx, path, usermodels.FieldReferralEarnings, float64(s.bonus)); err != nil {
		containment.Absorb("referral.credit", err)
	}
	if _, err := s.store.IncrBy(ctx, path, usermodels.FieldCoins, s.bonus); err != nil {
		containment.Absorb("referral.credit", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyReferralConfirmed(ctx, record.ReferrerID, s.bonus); err != nil {
			containment.Absorb("referral.notify", err)
		}
	}

	if err := s.publisher.PublishConfirmed(ctx, models.ConfirmedEvent{
		UserID:      record.UserID,
		ReferrerID:  record.ReferrerID,
		Bonus:       s.bonus,
		ConfirmedAt: *record.ConfirmedAt,
	}); err != nil {
		containment.Absorb("referral.publish", err)
	}
}
