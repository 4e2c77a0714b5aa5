package settle

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/sethvargo/go-retry"
)

// ErrNotSettled is returned when the write is still invisible once the wait budget is spent.
var ErrNotSettled = errors.New("remote write not yet visible")

// Check reports whether the remote write is visible.
type Check func(ctx context.Context) (bool, error)

// Waiter polls a Check with bounded exponential backoff.
type Waiter struct {
	initial time.Duration
	max     time.Duration
	timeout time.Duration
	logg    *logger.Logger
}

func NewWaiter(cfg config.SettleConfig, logg *logger.Logger) *Waiter {
	w := &Waiter{
		initial: cfg.InitialInterval,
		max:     cfg.MaxInterval,
		timeout: cfg.Timeout,
		logg:    logg,
	}
	if w.initial <= 0 {
		w.initial = 100 * time.Millisecond
	}
	if w.max < w.initial {
		w.max = w.initial
	}
	if w.timeout <= 0 {
		w.timeout = 5 * time.Second
	}
	return w
}

// Until polls check until it reports true, the budget runs out or ctx ends.
// Check errors are treated as transient and retried.
func (w *Waiter) Until(ctx context.Context, check Check) error {
	if check == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	backoff := retry.WithMaxDuration(w.timeout, retry.WithCappedDuration(w.max, retry.NewExponential(w.initial)))
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		ok, err := check(ctx)
		if err != nil {
			if w.logg != nil {
				w.logg.Warn(w.logg.WithField(ctx, "attempt", attempts), "settle check failed: "+err.Error())
			}
			return retry.RetryableError(err)
		}
		if !ok {
			return retry.RetryableError(ErrNotSettled)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNotSettled) {
		return ErrNotSettled
	}
	return err
}
