package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// DefaultPollInterval is used when PollConfig.Interval is not set.
const DefaultPollInterval = 2 * time.Second

var errPending = errors.New("not yet satisfied")

// PollConfig bounds a wait on chain state.
type PollConfig struct {
	Interval time.Duration
	// Timeout of zero waits until ctx is done.
	Timeout time.Duration
}

// CheckFunc reports whether the awaited condition holds.
type CheckFunc func(ctx context.Context) (done bool, err error)

// PollUntil calls check at a constant interval until it reports done.
// NETWORK errors from check are retried; any other error ends the wait
// and is returned unchanged. Running out of time is a NETWORK error.
func PollUntil(ctx context.Context, chain string, cfg PollConfig, logger zerolog.Logger, operation string, check CheckFunc) error {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	pollCtx, cancel := ctx, context.CancelFunc(func() {})
	if cfg.Timeout > 0 {
		pollCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}
	defer cancel()

	var lastErr error
	attempts := 0
	op := func() error {
		attempts++
		done, err := check(pollCtx)
		if err != nil {
			lastErr = err
			if !bridgeerrors.IsKind(err, bridgeerrors.ErrCodeNetwork) {
				return backoff.Permanent(err)
			}
			return err
		}
		if !done {
			return errPending
		}
		return nil
	}

	notify := func(err error, next time.Duration) {
		if errors.Is(err, errPending) {
			logger.Debug().Str("operation", operation).Int("attempt", attempts).Dur("next", next).Msg("waiting")
			return
		}
		logger.Warn().Err(err).Str("operation", operation).Int("attempt", attempts).Msg("poll failed, retrying")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.NewConstantBackOff(interval), pollCtx), notify)
	if err == nil {
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return bridgeerrors.NewNetworkError(chain, fmt.Sprintf("stopped waiting for %s", operation), ctx.Err())
	case pollCtx.Err() != nil:
		cause := lastErr
		if cause == nil {
			cause = pollCtx.Err()
		}
		return bridgeerrors.NewNetworkError(chain, fmt.Sprintf("timed out waiting for %s after %s", operation, cfg.Timeout), cause)
	}
	return err
}
