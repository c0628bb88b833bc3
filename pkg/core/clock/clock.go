// Package clock computes worked time for a shift and drives live refreshes of it.
package clock

import (
	"context"
	"fmt"
	"time"
)

// Now returns the current instant. Callers inject their own for tests.
type Now func() time.Time

// Input is the subset of a shift needed to derive its duration
type Input struct {
	Start       time.Time
	End         *time.Time // nil for an open shift
	Now         time.Time
	TotalPaused time.Duration
	IsPaused    bool
	PausedAt    *time.Time
}

// Result holds the derived durations.
// Anomaly is set whenever a negative value had to be clamped to zero, e.g. when the
// device clock is behind the recorded start time.
type Result struct {
	Worked  time.Duration
	Raw     time.Duration
	Anomaly bool
}

// Elapsed computes raw and worked duration for a shift.
// For a closed shift End replaces Now and the pause state is ignored, since it was
// resolved into TotalPaused when the shift was closed.
func Elapsed(in Input) Result {
	var res Result

	end := in.Now
	if in.End != nil {
		end = *in.End
	}

	raw := end.Sub(in.Start)
	if raw < 0 {
		raw = 0
		res.Anomaly = true
	}
	res.Raw = raw

	worked := raw - in.TotalPaused
	if in.End == nil && in.IsPaused && in.PausedAt != nil {
		current := in.Now.Sub(*in.PausedAt)
		if current < 0 {
			current = 0
			res.Anomaly = true
		}
		worked -= current
	}
	if worked < 0 {
		worked = 0
		res.Anomaly = true
	}
	res.Worked = worked

	return res
}

// FormatHMS renders d as HH:MM:SS. Hours are not wrapped at 24 and negative values print as zero.
func FormatHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Watch calls fn immediately and then once per interval until ctx is done.
// fn runs on the watcher goroutine and must not block for longer than interval.
func Watch(ctx context.Context, interval time.Duration, fn func(time.Time)) {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			fn(t)
		}
	}
}
