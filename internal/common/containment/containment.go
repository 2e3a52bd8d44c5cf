// Package containment is the process-wide backstop for this subsystem:
// nothing below the sync orchestrator is allowed to surface an error to
// the end user. Panics in spawned work are recovered here, failures are
// classified as expected backend noise or real faults, and the outbound
// notification surface is wrapped so error-level notifications go through
// the same policy. None of the code in this package may panic.
package containment

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/google/uuid"

	apperrors "miniapp-sync-backend/internal/common/errors"
	"miniapp-sync-backend/internal/common/logger"
)

// Class is the verdict of the noise classifier.
type Class int

const (
	// ClassNoise is an expected transient failure (host platform network
	// noise, offline states). Logged at debug level, never shown.
	ClassNoise Class = iota
	// ClassFault is everything else. Logged at error level with a
	// correlation id; shown to the user only in debug mode.
	ClassFault
)

// Notifier is the user-facing notification surface. The production
// implementation talks to the bot side channel; tests install a recorder.
type Notifier interface {
	Notify(level, message string)
}

// noisePatterns are substrings of known host-platform and backend noise.
// An error matching any of them is suppressed.
var noisePatterns = []string{
	"WebAppNetworkError",
	"ERR_NETWORK",
	"ERR_INTERNET_DISCONNECTED",
	"connection reset by peer",
	"broken pipe",
	"context deadline exceeded",
	"redis: nil",
	"i/o timeout",
}

type state struct {
	mu        sync.Mutex
	installed bool
	debug     bool
	delegate  Notifier
}

var global state

// Install arms the containment layer. Installing twice is a no-op; the
// first call wins. delegate may be nil, in which case fault notifications
// are dropped even in debug mode.
func Install(debug bool, delegate Notifier) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.installed {
		return
	}
	global.installed = true
	global.debug = debug
	global.delegate = delegate
	logger.Debug().Bool("debug", debug).Msg("error containment installed")
}

// Teardown disarms the layer so tests can reinstall cleanly.
func Teardown() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.installed = false
	global.debug = false
	global.delegate = nil
}

func snapshot() (bool, bool, Notifier) {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.installed, global.debug, global.delegate
}

// Classify decides whether err is expected backend noise or a real fault.
func Classify(err error) Class {
	if err == nil {
		return ClassNoise
	}
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsTransient() {
		return ClassNoise
	}
	msg := err.Error()
	for _, p := range noisePatterns {
		if strings.Contains(msg, p) {
			return ClassNoise
		}
	}
	return ClassFault
}

// Absorb logs err according to its class and returns nil. It is the
// terminal sink for failures that must not propagate. The returned
// correlation id is empty for suppressed noise.
func Absorb(scope string, err error) string {
	if err == nil {
		return ""
	}
	if Classify(err) == ClassNoise {
		logger.Debug().
			Str("scope", scope).
			Err(err).
			Msg("suppressed expected failure")
		return ""
	}
	correlationID := uuid.New().String()
	logger.Error().
		Str("scope", scope).
		Str("correlation_id", correlationID).
		Err(err).
		Msg("contained failure")

	installed, debugMode, delegate := snapshot()
	if installed && debugMode && delegate != nil {
		safeNotify(delegate, "error", fmt.Sprintf("%s (ref %s)", err.Error(), correlationID))
	}
	return correlationID
}

// Go spawns fn on its own goroutine with panic recovery and error
// containment. The returned channel closes when fn has finished; it
// exists for test observability, production callers on the request path
// never wait on it.
func Go(ctx context.Context, scope string, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("scope", scope).
					Str("correlation_id", uuid.New().String()).
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Msg("recovered panic in background task")
			}
		}()
		Absorb(scope, fn(ctx))
	}()
	return done
}

// WrapNotifier returns a Notifier that passes informational messages
// through and reclassifies error-level ones: noise is suppressed, faults
// follow the debug-mode policy. The wrapper never panics even if the
// delegate does.
func WrapNotifier(delegate Notifier) Notifier {
	return &filteringNotifier{delegate: delegate}
}

type filteringNotifier struct {
	delegate Notifier
}

func (n *filteringNotifier) Notify(level, message string) {
	if level != "error" {
		safeNotify(n.delegate, level, message)
		return
	}
	for _, p := range noisePatterns {
		if strings.Contains(message, p) {
			logger.Debug().Str("message", message).Msg("suppressed error notification")
			return
		}
	}
	_, debugMode, _ := snapshot()
	logger.Error().Str("message", message).Msg("intercepted error notification")
	if debugMode {
		safeNotify(n.delegate, level, message)
	}
}

func safeNotify(delegate Notifier, level, message string) {
	if delegate == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Debug().Interface("panic", r).Msg("notifier delegate panicked")
		}
	}()
	delegate.Notify(level, message)
}
