package dialogue

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultSilencePollInterval is how often the detector samples intensity.
	DefaultSilencePollInterval = 150 * time.Millisecond
	// DefaultSilenceThreshold is the intensity above which a poll counts as
	// speech. Acceptable values vary by microphone and room, so this is a
	// starting point, not a constant of nature.
	DefaultSilenceThreshold = 0.08
	// DefaultSilenceDuration is how long the user has to stay quiet after
	// speaking before the turn is considered over. Long enough to survive
	// natural mid-sentence pauses.
	DefaultSilenceDuration = 3500 * time.Millisecond
)

type SilenceOption func(*SilenceDetector)

func WithSilenceThreshold(threshold float64) SilenceOption {
	return func(d *SilenceDetector) {
		if threshold > 0 {
			d.threshold = threshold
		}
	}
}

func WithSilenceDuration(duration time.Duration) SilenceOption {
	return func(d *SilenceDetector) {
		if duration > 0 {
			d.duration = duration
		}
	}
}

func WithSilencePollInterval(interval time.Duration) SilenceOption {
	return func(d *SilenceDetector) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

// SilenceDetector decides when the user has finished talking. It polls an
// intensity source and fires the callback only once both gates pass: speech
// was observed since the last arming, and the configured quiet period has
// elapsed since the last loud poll. The latch keeps ambient noise at startup
// from ending a turn nobody started, and the duration keeps natural pauses
// from cutting the user off.
type SilenceDetector struct {
	source    func() float64
	onSilence func()

	threshold    float64
	duration     time.Duration
	pollInterval time.Duration

	mu          sync.Mutex
	speechHeard bool
	lastLoud    time.Time
}

func NewSilenceDetector(source func() float64, onSilence func(), opts ...SilenceOption) *SilenceDetector {
	if source == nil {
		source = func() float64 { return 0 }
	}
	if onSilence == nil {
		onSilence = func() {}
	}

	detector := &SilenceDetector{
		source:       source,
		onSilence:    onSilence,
		threshold:    DefaultSilenceThreshold,
		duration:     DefaultSilenceDuration,
		pollInterval: DefaultSilencePollInterval,
	}
	for _, opt := range opts {
		opt(detector)
	}
	return detector
}

// Start polls until ctx is cancelled. The callback is invoked from the
// polling goroutine.
func (d *SilenceDetector) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				d.poll(now)
			}
		}
	}()
}

// Reset re-arms the detector for the next turn, clearing the speech latch.
func (d *SilenceDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speechHeard = false
	d.lastLoud = time.Time{}
}

// poll runs one detection step. Taking now as a parameter keeps the decision
// logic drivable without timers.
func (d *SilenceDetector) poll(now time.Time) {
	intensity := d.source()

	d.mu.Lock()
	if intensity >= d.threshold {
		d.speechHeard = true
		d.lastLoud = now
		d.mu.Unlock()
		return
	}

	if !d.speechHeard || now.Sub(d.lastLoud) < d.duration {
		d.mu.Unlock()
		return
	}

	// Fire once per speech episode; the latch re-arms on the next loud poll.
	d.speechHeard = false
	d.mu.Unlock()

	d.onSilence()
}
