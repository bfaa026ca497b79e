package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestErrorKind(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "none"},
		{"navigation", &NavigationTimeoutError{Selector: ".addressBox", Err: context.DeadlineExceeded}, "navigation_timeout"},
		{"wrapped navigation", fmt.Errorf("search: %w", &NavigationTimeoutError{Selector: "#address", Err: base}), "navigation_timeout"},
		{"session", &SessionError{Op: "launch", Err: base}, "session"},
		{"canceled", context.Canceled, "canceled"},
		{"plain", base, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorKind(tt.err); got != tt.want {
				t.Fatalf("ErrorKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNavigationTimeoutUnwrap(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &NavigationTimeoutError{Selector: ".btnSearchNow", Err: context.DeadlineExceeded})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline, got %v", err)
	}
	if !IsNavigationTimeout(err) {
		t.Fatalf("expected navigation timeout")
	}
	if IsNavigationTimeout(&SessionError{Op: "connect", Err: errors.New("refused")}) {
		t.Fatalf("session error classified as navigation timeout")
	}
}

func TestRetryPolicyRetriesOnlyNavigationTimeouts(t *testing.T) {
	metrics := NewMetrics()
	policy := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, BackoffMax: 2 * time.Millisecond, Metrics: metrics}

	calls := 0
	err := policy.Do(context.Background(), "navigate", func(context.Context) error {
		calls++
		if calls < 3 {
			return &NavigationTimeoutError{Selector: "body", Err: context.DeadlineExceeded}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if got := testutil.ToFloat64(metrics.RetriesTotal.WithLabelValues("navigate")); got != 2 {
		t.Fatalf("expected 2 retries recorded, got %v", got)
	}

	calls = 0
	sessErr := &SessionError{Op: "launch", Err: errors.New("no chrome")}
	err = policy.Do(context.Background(), "navigate", func(context.Context) error {
		calls++
		return sessErr
	})
	if !errors.Is(err, sessErr) || calls != 1 {
		t.Fatalf("session errors must not be retried: calls=%d err=%v", calls, err)
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2}
	calls := 0
	err := policy.Do(context.Background(), "search", func(context.Context) error {
		calls++
		return &NavigationTimeoutError{Selector: "#address", Err: context.DeadlineExceeded}
	})
	if !IsNavigationTimeout(err) {
		t.Fatalf("expected navigation timeout, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryPolicyCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 5, Backoff: time.Hour}
	err := policy.Do(ctx, "navigate", func(context.Context) error {
		cancel()
		return &NavigationTimeoutError{Selector: "body", Err: context.DeadlineExceeded}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryBackoffCapped(t *testing.T) {
	policy := RetryPolicy{Backoff: 100 * time.Millisecond, BackoffMax: 300 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := policy.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestPollUntilStable(t *testing.T) {
	snapshots := []string{"a", "b", "c", "c", "d"}
	i := 0
	probe := func(context.Context) (string, error) {
		s := snapshots[i]
		if i < len(snapshots)-1 {
			i++
		}
		return s, nil
	}
	settle := PollUntilStable{Interval: time.Millisecond, Timeout: time.Second}
	if err := settle.Settle(context.Background(), probe); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if i != 4 {
		t.Fatalf("expected to stop on the repeated snapshot, probe index %d", i)
	}
}

func TestPollUntilStableTimeoutIsNotError(t *testing.T) {
	n := 0
	probe := func(context.Context) (string, error) {
		n++
		return strconv.Itoa(n), nil
	}
	settle := PollUntilStable{Interval: time.Millisecond, Timeout: 10 * time.Millisecond}
	if err := settle.Settle(context.Background(), probe); err != nil {
		t.Fatalf("expected nil at timeout, got %v", err)
	}
}

func TestFixedDelayHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := FixedDelay(time.Hour).Settle(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("settle did not return promptly")
	}
	if err := NoDelay.Settle(context.Background(), nil); err != nil {
		t.Fatalf("NoDelay: %v", err)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.IncPage()
	m.AddRecords(3)
	m.IncDropped("missing_name")
	m.IncWarning("telephone")
	m.IncRetries("navigate")
	m.IncError(errors.New("x"))
	m.ObserveDuration(time.Second)
	m.IncStored("saved")
	m.IncEmbedding("cache")
}

func TestMetricsCounts(t *testing.T) {
	m := NewMetrics()
	m.IncPage()
	m.IncPage()
	m.AddRecords(5)
	m.IncError(&SessionError{Op: "launch", Err: errors.New("x")})

	if got := testutil.ToFloat64(m.PagesTotal); got != 2 {
		t.Fatalf("pages = %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsTotal); got != 5 {
		t.Fatalf("records = %v", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("session")); got != 1 {
		t.Fatalf("session errors = %v", got)
	}
}

type stubScraper struct{ name string }

func (s stubScraper) Name() string { return s.name }
func (s stubScraper) Scrape(context.Context, string, Options) (Content, error) {
	return nil, nil
}

func TestRegistryCaseInsensitive(t *testing.T) {
	Register(stubScraper{name: "Example.Site"})
	if _, ok := Get("example.site"); !ok {
		t.Fatalf("expected registered scraper")
	}
	found := false
	for _, n := range Names() {
		if n == "example.site" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Names() missing example.site: %v", Names())
	}
}
