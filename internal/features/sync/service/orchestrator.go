// Package service composes the whole app-open pipeline: resolve identity,
// consult the local cache, sanitize, write, confirm referral. One run per
// user at a time; failures anywhere are absorbed so the client is always
// answered.
package service

import (
	"context"
	"sync"
	"time"

	"miniapp-sync-backend/internal/common/containment"
	"miniapp-sync-backend/internal/common/logger"
	"miniapp-sync-backend/internal/features/identity/cache"
	identitymodels "miniapp-sync-backend/internal/features/identity/models"
	identitysvc "miniapp-sync-backend/internal/features/identity/service"
	referralsvc "miniapp-sync-backend/internal/features/referral/service"
	usermodels "miniapp-sync-backend/internal/features/user/models"
	userrepo "miniapp-sync-backend/internal/features/user/repository"
	"miniapp-sync-backend/internal/features/user/sanitize"
	"miniapp-sync-backend/internal/features/user/writer"
)

// State names the orchestration stages. Failed is absorbed: the caller
// still gets a terminal answer, never an error page.
type State string

const (
	StateIdle             State = "idle"
	StateResolving        State = "resolving"
	StateCacheHit         State = "cache_hit"
	StateWriting          State = "writing"
	StateReferralChecking State = "referral_checking"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Result is what an orchestration run reports back to the delivery layer.
type Result struct {
	State     State                    `json:"state"`
	Identity  *identitymodels.Identity `json:"identity,omitempty"`
	CacheHit  bool                     `json:"cache_hit"`
	Anonymous bool                     `json:"anonymous"`

	// referralDone closes when the spawned confirmation finished. Test
	// observability only.
	referralDone <-chan struct{}
}

// ReferralDone exposes the background completion channel to tests.
func (r *Result) ReferralDone() <-chan struct{} {
	return r.referralDone
}

type Orchestrator struct {
	resolver  *identitysvc.Resolver
	cache     *cache.Cache
	store     userrepo.Store
	writer    *writer.Writer
	referrals *referralsvc.Service

	runTimeout time.Duration

	mu      sync.Mutex
	running map[string]struct{}

	now func() time.Time
}

func NewOrchestrator(resolver *identitysvc.Resolver, c *cache.Cache, store userrepo.Store, w *writer.Writer, referrals *referralsvc.Service, runTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		resolver:   resolver,
		cache:      c,
		store:      store,
		writer:     w,
		referrals:  referrals,
		runTimeout: runTimeout,
		running:    make(map[string]struct{}),
		now:        time.Now,
	}
}

// Run executes one orchestration for an app open. Stages run strictly in
// order; every failure is absorbed into the result. A second open for the
// same user while a run is in flight is answered without starting
// another run.
func (o *Orchestrator) Run(ctx context.Context, source identitymodels.Source) Result {
	if o.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.runTimeout)
		defer cancel()
	}

	logger.Debug().Str("state", string(StateResolving)).Msg("sync run")
	identity := o.resolver.Resolve(ctx, source)
	if identity == nil {
		// Anonymous mode: no writes, run still completes.
		return Result{State: StateDone, Anonymous: true}
	}

	if !o.begin(identity.ID) {
		logger.Debug().Str("id", identity.ID).Msg("sync already running for user")
		return Result{State: StateDone, Identity: identity}
	}
	defer o.end(identity.ID)

	result := Result{Identity: identity}

	// Cache check: a fresh entry means the remote record was written
	// within the TTL and the round trip is skipped.
	if cached := o.cache.Get(ctx, identity.ID); cached != nil {
		result.State = StateCacheHit
		result.CacheHit = true
	} else {
		result.State = StateWriting
		if err := o.refresh(ctx, identity); err != nil {
			containment.Absorb("sync.write", err)
			result.State = StateFailed
		} else {
			o.cache.Put(ctx, *identity)
		}
	}

	// Referral check runs for every open with an identity, cache hit or
	// not; it is spawned so the response never waits on it. Detached
	// from the request context: an already-dispatched confirmation may
	// complete after the response is sent.
	logger.Debug().Str("state", string(StateReferralChecking)).Str("id", identity.ID).Msg("sync run")
	result.referralDone = o.referrals.ConfirmOnOpen(context.WithoutCancel(ctx), *identity)

	if result.State != StateFailed {
		result.State = StateDone
	}
	return result
}

// Invalidate drops the cached identity so the next open re-runs the full
// pipeline.
func (o *Orchestrator) Invalidate(ctx context.Context, id string) {
	o.cache.Invalidate(ctx, id)
}

func (o *Orchestrator) begin(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.running[id]; ok {
		return false
	}
	o.running[id] = struct{}{}
	return true
}

func (o *Orchestrator) end(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, id)
}

// refresh reads the current remote record, overlays the freshly resolved
// profile onto it and writes the sanitized result. Reading first is what
// keeps defaults from clobbering an existing user's progression: only
// genuinely absent fields get defaulted.
func (o *Orchestrator) refresh(ctx context.Context, identity *identitymodels.Identity) error {
	path := userrepo.UserPath(identity.ID)

	existing, err := o.store.Get(ctx, path)
	if err != nil {
		// Writing defaults blind over an unreadable record could wipe
		// progression, so the write is skipped entirely.
		return err
	}

	var in usermodels.UntrustedUser
	if len(existing) > 0 {
		in = sanitize.Untrust(usermodels.FromFields(existing))
	} else {
		now := o.now()
		in.CreatedAt = &now
	}
	overlayIdentity(&in, identity, o.now())

	// Even our own resolver output goes through the sanitize gate; the
	// store never sees a record that skipped it.
	record := sanitize.Sanitize(in)
	return o.writer.Upsert(ctx, path, record)
}

// overlayIdentity stamps the authoritative host profile over whatever the
// stored record carried.
func overlayIdentity(in *usermodels.UntrustedUser, identity *identitymodels.Identity, now time.Time) {
	in.ID = &identity.ID
	in.TelegramID = telegramID(identity)
	in.DisplayName = &identity.DisplayName
	in.ProfileImageURL = &identity.ProfileImageURL
	in.LanguageCode = &identity.LanguageCode
	in.IsPremium = &identity.IsPremium
	in.LastLoginAt = &now
}

func telegramID(identity *identitymodels.Identity) *string {
	if identity.Guest {
		return nil
	}
	return &identity.ID
}
