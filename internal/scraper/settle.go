package scraper

import (
	"context"
	"time"
)

// Probe returns a snapshot of the page state that changes while it is still
// rendering, e.g. a fingerprint of the result list.
type Probe func(ctx context.Context) (string, error)

// SettleStrategy waits for the page to finish reacting to an interaction.
type SettleStrategy interface {
	Settle(ctx context.Context, probe Probe) error
}

// FixedDelay sleeps for a fixed duration.
type FixedDelay time.Duration

func (d FixedDelay) Settle(ctx context.Context, _ Probe) error {
	return sleep(ctx, time.Duration(d))
}

// NoDelay returns immediately. Used in tests.
var NoDelay SettleStrategy = FixedDelay(0)

// PollUntilStable polls the probe until two consecutive snapshots match or
// Timeout elapses. Reaching the timeout is not an error.
type PollUntilStable struct {
	Interval time.Duration
	Timeout  time.Duration
}

func (p PollUntilStable) Settle(ctx context.Context, probe Probe) error {
	if probe == nil {
		return FixedDelay(p.Timeout).Settle(ctx, nil)
	}
	interval := p.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	deadline := time.Now().Add(p.Timeout)

	prev, err := probe(ctx)
	if err != nil {
		return err
	}
	for time.Now().Before(deadline) {
		if err := sleep(ctx, interval); err != nil {
			return err
		}
		cur, err := probe(ctx)
		if err != nil {
			return err
		}
		if cur == prev {
			return nil
		}
		prev = cur
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
