package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/acses/curator/internal/common"
)

// fakeClock advances time only when the pacer sleeps, so tests run without
// real delays.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestPacer(rpm int, safety float64) (*Pacer, *fakeClock) {
	clock := newFakeClock()
	cfg := &common.RateConfig{
		RPM:          map[string]int{"test-model": rpm},
		DefaultRPM:   15,
		SafetyFactor: safety,
	}
	pacer := NewPacer(cfg, nil).WithClock(clock.Now, clock.Sleep)
	return pacer, clock
}

func TestPacerFirstCallImmediate(t *testing.T) {
	pacer, clock := newTestPacer(15, 1.1)

	if err := pacer.Wait(context.Background(), "test-model"); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("first call slept %v, want no sleep", clock.sleeps)
	}
}

func TestPacerEnforcesMinimumInterval(t *testing.T) {
	pacer, clock := newTestPacer(15, 1.1)
	ctx := context.Background()

	// 60/15 * 1.1 = 4.4s
	wantInterval := time.Duration(4.4 * float64(time.Second))

	var starts []time.Time
	for i := 0; i < 4; i++ {
		if err := pacer.Wait(ctx, "test-model"); err != nil {
			t.Fatal(err)
		}
		starts = append(starts, clock.Now())
	}

	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		if gap < wantInterval {
			t.Errorf("gap between call %d and %d = %v, want >= %v", i-1, i, gap, wantInterval)
		}
	}
}

func TestPacerNoWaitAfterLongGap(t *testing.T) {
	pacer, clock := newTestPacer(15, 1.1)
	ctx := context.Background()

	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}
	clock.now = clock.now.Add(time.Minute)

	before := len(clock.sleeps)
	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != before {
		t.Errorf("pacer slept after a gap longer than the interval")
	}
}

func TestPacerPenaltyOverridesInterval(t *testing.T) {
	pacer, clock := newTestPacer(15, 1.1)
	ctx := context.Background()

	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}

	// Server suggested a 30s retry delay, far above the 4.4s interval.
	pacer.Penalize("test-model", 30*time.Second)

	start := clock.Now()
	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}
	if waited := clock.Now().Sub(start); waited < 30*time.Second {
		t.Errorf("waited %v after penalty, want >= 30s", waited)
	}

	// Penalty applies once; the next wait is back to the normal interval.
	start = clock.Now()
	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}
	if waited := clock.Now().Sub(start); waited > 5*time.Second {
		t.Errorf("waited %v after penalty consumed, want normal interval", waited)
	}
}

func TestPacerPenaltyMeasuredFromWhenApplied(t *testing.T) {
	pacer, clock := newTestPacer(15, 1.1)
	ctx := context.Background()

	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}

	// The failed call itself took 25s before the provider answered with a
	// 30s retry delay. That elapsed time must not be credited against the
	// delay: the next start is 30s after Penalize, not after the last Wait.
	clock.now = clock.now.Add(25 * time.Second)
	pacer.Penalize("test-model", 30*time.Second)

	start := clock.Now()
	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}
	if waited := clock.Now().Sub(start); waited < 30*time.Second {
		t.Errorf("waited %v after a 30s retry-after, want >= 30s", waited)
	}
}

func TestPacerPenaltyWithoutPriorRequest(t *testing.T) {
	pacer, clock := newTestPacer(15, 1.1)
	ctx := context.Background()

	pacer.Penalize("test-model", 10*time.Second)

	start := clock.Now()
	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}
	if waited := clock.Now().Sub(start); waited < 10*time.Second {
		t.Errorf("waited %v, want >= 10s even with no prior request", waited)
	}
}

func TestPacerPenaltyBelowIntervalIgnored(t *testing.T) {
	pacer, clock := newTestPacer(15, 1.1)
	ctx := context.Background()
	wantInterval := time.Duration(4.4 * float64(time.Second))

	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}
	pacer.Penalize("test-model", time.Second)

	start := clock.Now()
	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}
	if waited := clock.Now().Sub(start); waited < wantInterval {
		t.Errorf("waited %v, want >= computed interval %v", waited, wantInterval)
	}
}

func TestPacerUnknownModelUsesDefault(t *testing.T) {
	pacer, _ := newTestPacer(15, 1.1)

	got := pacer.Interval("never-configured")
	want := time.Duration(4.4 * float64(time.Second)) // 60/15 * 1.1
	if got != want {
		t.Errorf("Interval(unknown) = %v, want default-derived %v", got, want)
	}
}

func TestPacerCancelledDuringWait(t *testing.T) {
	pacer, _ := newTestPacer(2, 1.1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := pacer.Wait(ctx, "test-model"); err != nil {
		t.Fatal(err)
	}

	cancel()
	if err := pacer.Wait(ctx, "test-model"); err == nil {
		t.Error("Wait() = nil after cancellation, want context error")
	}
}
