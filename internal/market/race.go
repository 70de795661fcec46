package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/marketd/internal/domain"
)

// fetcher pairs a provider call with its provenance name so runRace can stay
// generic over the payload type.
type fetcher[T any] struct {
	name  string
	fetch func(context.Context) (T, error)
}

// result carries a finished fetch through the race channel.
type result[T any] struct {
	payload T
	err     error
}

// runRace launches the primary fetch and a timer concurrently and commits to
// whichever resolves first. The losing side is cancelled immediately: once
// the timer wins, the primary's context is cancelled and its eventual result
// is discarded into a buffered channel, so a slow primary can never clobber a
// committed fallback result. On a lost or failed primary the fallbacks are
// tried in order, bounded by the caller's context rather than a fresh timer
// (a hung fallback would otherwise pin the refresh loop).
//
// Every branch terminates in exactly one of the four outcome variants; no
// error ever escapes to the caller.
func runRace[T any](
	ctx context.Context,
	timeout time.Duration,
	primary fetcher[T],
	fallbacks []fetcher[T],
	logger *slog.Logger,
) domain.Outcome[T] {
	primaryCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the losing goroutine can always deliver and exit.
	resultCh := make(chan result[T], 1)
	go func() {
		payload, err := primary.fetch(primaryCtx)
		resultCh <- result[T]{payload: payload, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var primaryErr error
	timedOut := false

	select {
	case res := <-resultCh:
		if res.err == nil {
			return domain.Outcome[T]{
				Status:      domain.StatusSuccess,
				Payload:     res.payload,
				Source:      primary.name,
				CompletedAt: time.Now().UTC(),
			}
		}
		primaryErr = res.err

	case <-timer.C:
		// Timer won: cancel the primary so it cannot mutate anything after
		// this point, then escalate.
		cancel()
		timedOut = true
		primaryErr = fmt.Errorf("%s: %w", primary.name, domain.ErrRaceTimeout)

	case <-ctx.Done():
		cancel()
		return domain.Outcome[T]{
			Status:      domain.StatusFailure,
			Source:      primary.name,
			Err:         ctx.Err(),
			CompletedAt: time.Now().UTC(),
		}
	}

	logger.WarnContext(ctx, "primary provider degraded",
		slog.String("provider", primary.name),
		slog.Bool("timed_out", timedOut),
		slog.String("error", primaryErr.Error()),
	)

	for _, fb := range fallbacks {
		payload, err := fb.fetch(ctx)
		if err != nil {
			logger.WarnContext(ctx, "fallback provider failed",
				slog.String("provider", fb.name),
				slog.String("error", err.Error()),
			)
			primaryErr = errors.Join(primaryErr, err)
			continue
		}
		return domain.Outcome[T]{
			Status:      domain.StatusFallback,
			Payload:     payload,
			Source:      fb.name,
			CompletedAt: time.Now().UTC(),
		}
	}

	status := domain.StatusFailure
	if timedOut {
		status = domain.StatusTimedOut
	}
	return domain.Outcome[T]{
		Status:      status,
		Source:      primary.name,
		Err:         primaryErr,
		CompletedAt: time.Now().UTC(),
	}
}
