// Package writer wraps remote merges with bounded retry and a per-key
// in-flight guard. Callers must pass sanitized records only; the writer
// rejects anything without an id before touching the network.
package writer

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"miniapp-sync-backend/internal/common/errors"
	"miniapp-sync-backend/internal/common/logger"
	"miniapp-sync-backend/internal/features/user/models"
	"miniapp-sync-backend/internal/features/user/repository"
)

type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
	Timeout     time.Duration
}

type Writer struct {
	store repository.Store
	cfg   Config

	// locks grows one entry per distinct key and is never pruned. A
	// mutex is ~32 bytes, so even millions of users stay in the tens of
	// megabytes; not worth a reaper until key cardinality says otherwise.
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// sleep is replaceable so retry tests do not wait out real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(store repository.Store, cfg Config) *Writer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 200 * time.Millisecond
	}
	return &Writer{
		store: store,
		cfg:   cfg,
		locks: make(map[string]*sync.Mutex),
		sleep: sleepCtx,
	}
}

// Upsert merges record into the document at key. Concurrent upserts for
// the same key serialize: a call issued while another is outstanding
// queues behind it, so the store never sees interleaved writes for one
// key. Transient failures are retried with doubling backoff up to the
// attempt cap; permanent failures return immediately.
func (w *Writer) Upsert(ctx context.Context, key string, record models.SafeUserRecord) error {
	if record.ID == "" {
		return errors.NewValidationError("id", "sanitized record has no id")
	}

	lock := w.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	return w.writeWithRetry(ctx, key, record)
}

func (w *Writer) keyLock(key string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[key] = lock
	}
	return lock
}

func (w *Writer) writeWithRetry(ctx context.Context, key string, record models.SafeUserRecord) error {
	fields := record.Fields()
	delay := w.cfg.BackoffBase

	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		lastErr = w.writeOnce(ctx, key, fields)
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug().
					Str("key", key).
					Int("attempt", attempt).
					Msg("write succeeded after retry")
			}
			return nil
		}

		if errors.Permanent(lastErr) {
			logger.Error().
				Str("key", key).
				Err(lastErr).
				Msg("permanent write failure, not retrying")
			return lastErr
		}
		if !errors.Transient(lastErr) {
			return lastErr
		}
		if attempt == w.cfg.MaxAttempts {
			break
		}

		logger.Debug().
			Str("key", key).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("transient write failure, backing off")

		if err := w.sleep(ctx, jitter(delay)); err != nil {
			return errors.Wrap(err, errors.ErrCodeStoreTimeout, "write cancelled during backoff").
				WithContext("key", key)
		}
		delay *= 2
	}

	return errors.Wrapf(lastErr, errors.ErrCodeStoreUnavailable,
		"write gave up after %d attempts", w.cfg.MaxAttempts).
		WithContext("key", key)
}

func (w *Writer) writeOnce(ctx context.Context, key string, fields map[string]string) error {
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}
	return w.store.Merge(ctx, key, fields)
}

// jitter spreads the delay ±20% so concurrent retries do not stampede.
func jitter(d time.Duration) time.Duration {
	f := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * f)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
