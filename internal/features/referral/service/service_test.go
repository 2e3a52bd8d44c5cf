package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "miniapp-sync-backend/internal/common/errors"
	identitymodels "miniapp-sync-backend/internal/features/identity/models"
	"miniapp-sync-backend/internal/features/referral/models"
)

// fakeRepo is an in-memory referral repository with an atomic claim.
// markFails makes the next N MarkConfirmed calls return a store error.
type fakeRepo struct {
	mu        sync.Mutex
	records   map[string]*models.ReferralRecord
	claims    map[string]bool
	markFails int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records: make(map[string]*models.ReferralRecord),
		claims:  make(map[string]bool),
	}
}

func (f *fakeRepo) Get(_ context.Context, userID string) (*models.ReferralRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[userID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) Create(_ context.Context, record *models.ReferralRecord) (*models.ReferralRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.records[record.UserID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *record
	f.records[record.UserID] = &cp
	return record, nil
}

func (f *fakeRepo) MarkConfirmed(_ context.Context, record *models.ReferralRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markFails > 0 {
		f.markFails--
		return apperrors.NewStoreTimeoutError("referral confirm", context.DeadlineExceeded)
	}
	cp := *record
	f.records[record.UserID] = &cp
	return nil
}

func (f *fakeRepo) ClaimConfirmation(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claims[userID] {
		return false, nil
	}
	f.claims[userID] = true
	return true, nil
}

func (f *fakeRepo) ReleaseConfirmation(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claims, userID)
	return nil
}

// fakeStore counts counter bumps per path/field.
type fakeStore struct {
	mu       sync.Mutex
	counters map[string]int64
	fcounters map[string]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{counters: make(map[string]int64), fcounters: make(map[string]float64)}
}

func (f *fakeStore) Get(context.Context, string) (map[string]string, error) {
	return nil, nil
}

func (f *fakeStore) Merge(context.Context, string, map[string]string) error {
	return nil
}

func (f *fakeStore) IncrBy(_ context.Context, path, field string, delta int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[path+"#"+field] += delta
	return f.counters[path+"#"+field], nil
}

func (f *fakeStore) IncrByFloat(_ context.Context, path, field string, delta float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fcounters[path+"#"+field] += delta
	return f.fcounters[path+"#"+field], nil
}

func (f *fakeStore) counter(path, field string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[path+"#"+field]
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) NotifyReferralConfirmed(_ context.Context, referrerID string, _ int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, referrerID)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func newTestService(repo *fakeRepo, store *fakeStore, notifier *recordingNotifier) *Service {
	return New(repo, store, notifier, nil, 500)
}

func TestConfirm_PendingBecomesConfirmedOnce(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, store, notifier)

	_, err := svc.CreatePending(context.Background(), "user1", "ref1")
	require.NoError(t, err)

	credited, err := svc.Confirm(context.Background(), "user1")
	require.NoError(t, err)
	assert.True(t, credited)

	record, err := svc.Get(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, record.Status)
	require.NotNil(t, record.ConfirmedAt)

	assert.Equal(t, int64(1), store.counter("users/ref1", "referral_count"))
	assert.Equal(t, int64(500), store.counter("users/ref1", "coins"))
	assert.Equal(t, 1, notifier.count())
}

func TestConfirm_AlreadyConfirmedIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, store, notifier)

	_, err := svc.CreatePending(context.Background(), "user1", "ref1")
	require.NoError(t, err)

	credited, err := svc.Confirm(context.Background(), "user1")
	require.NoError(t, err)
	require.True(t, credited)

	// Confirming again must not change counters or notify a second time.
	credited, err = svc.Confirm(context.Background(), "user1")
	require.NoError(t, err)
	assert.False(t, credited)

	assert.Equal(t, int64(1), store.counter("users/ref1", "referral_count"))
	assert.Equal(t, int64(500), store.counter("users/ref1", "coins"))
	assert.Equal(t, 1, notifier.count())
}

func TestConfirm_RetriesAfterTransientConfirmFailure(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, store, notifier)

	_, err := svc.CreatePending(context.Background(), "user1", "ref1")
	require.NoError(t, err)

	// The status write fails once after the claim was taken. The claim
	// must be handed back, nothing credited.
	repo.markFails = 1
	credited, err := svc.Confirm(context.Background(), "user1")
	require.Error(t, err)
	assert.False(t, credited)
	assert.Equal(t, int64(0), store.counter("users/ref1", "referral_count"))
	assert.Equal(t, 0, notifier.count())

	record, err := svc.Get(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, record.Status)

	// The next open runs the whole transition and credits exactly once.
	credited, err = svc.Confirm(context.Background(), "user1")
	require.NoError(t, err)
	assert.True(t, credited)

	record, err = svc.Get(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, record.Status)
	assert.Equal(t, int64(1), store.counter("users/ref1", "referral_count"))
	assert.Equal(t, int64(500), store.counter("users/ref1", "coins"))
	assert.Equal(t, 1, notifier.count())
}

func TestConfirm_UnknownUserIsNoOp(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeStore(), &recordingNotifier{})

	credited, err := svc.Confirm(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, credited)
}

func TestConfirm_DuplicateConcurrentCallsCreditOnce(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, store, notifier)

	_, err := svc.CreatePending(context.Background(), "user1", "ref1")
	require.NoError(t, err)

	const callers = 16
	credits := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			credited, err := svc.Confirm(context.Background(), "user1")
			assert.NoError(t, err)
			credits <- credited
		}()
	}
	wg.Wait()
	close(credits)

	total := 0
	for credited := range credits {
		if credited {
			total++
		}
	}
	assert.Equal(t, 1, total, "exactly one caller wins the claim")
	assert.Equal(t, int64(1), store.counter("users/ref1", "referral_count"))
	assert.Equal(t, int64(500), store.counter("users/ref1", "coins"))
	assert.Equal(t, 1, notifier.count())
}

func TestConfirm_NoReferrerMeansNoCredit(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, store, notifier)

	_, err := svc.CreatePending(context.Background(), "user1", "")
	require.NoError(t, err)

	credited, err := svc.Confirm(context.Background(), "user1")
	require.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, 0, notifier.count())
}

func TestCreatePending_FirstLinkWins(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeStore(), &recordingNotifier{})

	first, err := svc.CreatePending(context.Background(), "user1", "refA")
	require.NoError(t, err)
	assert.Equal(t, "refA", first.ReferrerID)

	second, err := svc.CreatePending(context.Background(), "user1", "refB")
	require.NoError(t, err)
	assert.Equal(t, "refA", second.ReferrerID)
}

func TestCreatePending_RejectsSelfReferral(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeStore(), &recordingNotifier{})

	_, err := svc.CreatePending(context.Background(), "user1", "user1")
	require.Error(t, err)
}

func TestConfirmOnOpen_CompletesInBackground(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	svc := newTestService(repo, store, &recordingNotifier{})

	_, err := svc.CreatePending(context.Background(), "user1", "ref1")
	require.NoError(t, err)

	done := svc.ConfirmOnOpen(context.Background(), identitymodels.Identity{ID: "user1"})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background confirmation never finished")
	}

	record, err := svc.Get(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, record.Status)
}
