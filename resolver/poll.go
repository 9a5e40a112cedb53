package resolver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"matchgate/backend"
	"matchgate/fault"
	"matchgate/metrics"
)

// sleepFunc suspends for d or returns early with the context's error.
// Injected so poller tests run without real delays.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pollResult is one poll step's verdict.
type pollResult int

const (
	pollRetry pollResult = iota
	pollDone
	pollFatal
)

// poll runs step up to attempts times, sleeping interval between tries.
// step decides: done stops with success, fatal stops immediately with its
// error, retry consumes an attempt. Exhausting the budget yields errBudget.
func poll(ctx context.Context, attempts int, interval time.Duration, sleep sleepFunc, errBudget error, step func(ctx context.Context) (pollResult, error)) error {
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := sleep(ctx, interval); err != nil {
				// Caller went away; nobody will consume the result.
				// Not a Timeout: that kind is reserved for an
				// exhausted attempt budget.
				return errors.Wrap(err, "polling abandoned")
			}
		}
		res, err := step(ctx)
		switch res {
		case pollDone:
			return nil
		case pollFatal:
			return err
		}
	}
	return errBudget
}

// WaitForReady polls server details for matchID until the server reports
// Active, the server starts Terminating (immediately terminal; waiting
// cannot help), or the attempt budget runs out.
func (r *Resolver) WaitForReady(ctx context.Context, matchID uuid.UUID) (backend.Endpoint, error) {
	var ep backend.Endpoint
	attempt := 0
	err := poll(ctx, r.cfg.PollAttempts, r.cfg.PollInterval, r.sleep,
		fault.New(fault.Timeout, "server for match %s not active after %d polls", matchID, r.cfg.PollAttempts),
		func(ctx context.Context) (pollResult, error) {
			attempt++
			details, err := r.client.GetMatchServerDetails(ctx, matchID)
			if err != nil {
				return pollFatal, err
			}
			log.Debug().Str("matchId", matchID.String()).Int("attempt", attempt).Str("state", string(details.State)).Msg("poll: server state")
			switch details.State {
			case backend.StateActive:
				ep = details.Endpoint()
				return pollDone, nil
			case backend.StateTerminating:
				return pollFatal, fault.New(fault.Timeout, "server for match %s is terminating", matchID)
			default:
				return pollRetry, nil
			}
		})
	metrics.PollAttempts.Observe(float64(attempt))
	if err != nil {
		return backend.Endpoint{}, err
	}
	return ep, nil
}
