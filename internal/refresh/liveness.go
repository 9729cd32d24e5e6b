package refresh

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/diewo77/go-bloodbank/internal/backend"
)

// DefaultLogoutDelay leaves the blocked notice on screen before logout.
const DefaultLogoutDelay = 2 * time.Second

// BlockedNotice is shown when the backend reports the account blocked.
const BlockedNotice = "Your account has been blocked by the administrator. You are being logged out."

// Logout reasons passed to Liveness.OnLogout.
const (
	ReasonBlocked = "blocked"
	ReasonExpired = "expired"
)

// Liveness re-validates a session against the backend on a fixed interval.
// A blocked account gets OnBlocked, then OnLogout after LogoutDelay or on
// cancellation, whichever comes first. An expired or revoked token gets
// OnLogout at once. Other failures are transient and retried on the next
// tick.
type Liveness struct {
	Check       func(ctx context.Context) error
	Interval    time.Duration
	LogoutDelay time.Duration
	OnBlocked   func(message string)
	OnLogout    func(reason string)

	after func(time.Duration) <-chan time.Time
}

// Start schedules the first check one interval from now.
func (l *Liveness) Start(ctx context.Context) *Task {
	return StartAfter(ctx, "liveness", l.Interval, l.tick)
}

func (l *Liveness) tick(ctx context.Context) error {
	err := l.Check(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, backend.ErrAccountBlocked):
		slog.InfoContext(ctx, "session blocked by backend")
		if l.OnBlocked != nil {
			l.OnBlocked(BlockedNotice)
		}
		delay := l.LogoutDelay
		if delay <= 0 {
			delay = DefaultLogoutDelay
		}
		after := l.after
		if after == nil {
			after = time.After
		}
		// a cancelled wait still logs out: the account stays blocked
		select {
		case <-ctx.Done():
		case <-after(delay):
		}
		l.logout(ReasonBlocked)
		return ErrStop
	case errors.Is(err, backend.ErrUnauthorized):
		slog.InfoContext(ctx, "session token rejected by backend")
		l.logout(ReasonExpired)
		return ErrStop
	}
	return err
}

func (l *Liveness) logout(reason string) {
	if l.OnLogout != nil {
		l.OnLogout(reason)
	}
}
