// Package rms turns the backend's audio level stream into a fixed-length
// timeline for the waveform display.
package rms

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/dictate/internal/backend"
	"github.com/five82/dictate/internal/backoff"
	"github.com/five82/dictate/internal/ring"
)

const (
	// Slots is the timeline length.
	Slots = 60
	// CommitInterval is the minimum spacing between committed samples.
	CommitInterval = 100 * time.Millisecond
	// StaleTimeout is how long the timeline may go without a commit before
	// it is forced inactive.
	StaleTimeout = 2 * time.Second

	DefaultThreshold = 0.006
	MinThreshold     = 0.005
	MaxThreshold     = 0.008

	gain       = 6.0
	exponent   = 0.4
	halfHeight = 40.0
)

// Sample is one audio level reading.
type Sample struct {
	Value     float64
	Timestamp time.Time
	IsActive  bool
}

// Display maps a level to a bar amplitude in percent of the full height,
// 0-40, drawn symmetrically around the centre line.
func Display(value float64) float64 {
	if value <= 0 || math.IsNaN(value) {
		return 0
	}
	amplified := math.Min(1, value*gain)
	return math.Pow(amplified, exponent) * halfHeight
}

// ClampThreshold keeps a configured activity threshold inside the supported
// range. Zero selects the default.
func ClampThreshold(v float64) float64 {
	switch {
	case v == 0 || math.IsNaN(v):
		return DefaultThreshold
	case v < MinThreshold:
		return MinThreshold
	case v > MaxThreshold:
		return MaxThreshold
	}
	return v
}

// Aggregator rate-limits samples into the timeline. It is safe for
// concurrent use: the sample stream writes while the UI reads.
type Aggregator struct {
	threshold float64
	retry     backoff.Policy
	log       zerolog.Logger

	mu            sync.RWMutex
	slots         *ring.Buffer[float64]
	lastCommitted time.Time
	active        bool
	degraded      bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithThreshold sets the activity threshold, clamped to the supported range.
func WithThreshold(v float64) Option {
	return func(a *Aggregator) { a.threshold = ClampThreshold(v) }
}

// WithRetry overrides the subscription retry schedule.
func WithRetry(p backoff.Policy) Option {
	return func(a *Aggregator) { a.retry = p }
}

// WithLogger sets the logger used for subscription progress.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Aggregator) { a.log = log.With().Str("component", "rms").Logger() }
}

// New returns an aggregator with an all-silent timeline.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		threshold: DefaultThreshold,
		retry:     backoff.RMS,
		log:       zerolog.Nop(),
		slots:     ring.New[float64](Slots),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.slots.Fill(0)
	return a
}

// Threshold returns the activity threshold in use.
func (a *Aggregator) Threshold() float64 {
	return a.threshold
}

// Push offers one sample. Samples closer than CommitInterval to the last
// committed one are dropped; otherwise the timeline shifts left by one and
// the sample's value (or silence when inactive or under threshold) becomes
// the newest slot. It reports whether the sample was committed.
func (a *Aggregator) Push(s Sample) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.lastCommitted.IsZero() && s.Timestamp.Sub(a.lastCommitted) < CommitInterval {
		return false
	}
	value := 0.0
	if s.IsActive && s.Value > a.threshold && !math.IsNaN(s.Value) {
		value = math.Min(s.Value, 1)
	}
	a.slots.Push(value)
	a.lastCommitted = s.Timestamp
	a.active = s.IsActive
	return true
}

// Heal forces the timeline inactive and silent when nothing has been
// committed for StaleTimeout. It reports whether anything changed.
func (a *Aggregator) Heal(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active && a.silentLocked() {
		return false
	}
	if !a.lastCommitted.IsZero() && now.Sub(a.lastCommitted) < StaleTimeout {
		return false
	}
	a.slots.Fill(0)
	a.active = false
	return true
}

func (a *Aggregator) silentLocked() bool {
	for i := range a.slots.Len() {
		if v, _ := a.slots.At(i); v != 0 {
			return false
		}
	}
	return true
}

// Timeline returns a copy of the slots, oldest first.
func (a *Aggregator) Timeline() []float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.slots.Oldest()
}

// Active reports whether the latest committed sample was active and not
// stale.
func (a *Aggregator) Active() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

// Degraded reports whether the subscription gave up.
func (a *Aggregator) Degraded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.degraded
}

// Reset returns the timeline to silence and clears the degraded flag.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slots.Fill(0)
	a.lastCommitted = time.Time{}
	a.active = false
	a.degraded = false
}

func (a *Aggregator) degrade() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slots.Fill(0)
	a.active = false
	a.degraded = true
}

// Subscribe asks the backend to start streaming levels, retrying on the
// aggregator's schedule. When every attempt fails the timeline degrades to
// silence and the error wraps backoff.ErrExhausted.
func (a *Aggregator) Subscribe(ctx context.Context, inv backend.Invoker) error {
	err := backoff.Retry(ctx, a.retry, func(ctx context.Context, attempt int) error {
		if err := backend.SubscribeRMS(ctx, inv); err != nil {
			a.log.Debug().Err(err).Int("attempt", attempt+1).Msg("rms subscribe failed")
			return err
		}
		return nil
	})
	switch {
	case err == nil:
		a.mu.Lock()
		a.degraded = false
		a.mu.Unlock()
		a.log.Debug().Msg("rms stream subscribed")
		return nil
	case errors.Is(err, backoff.ErrExhausted):
		a.degrade()
		a.log.Warn().Err(err).Msg("rms stream unavailable, waveform disabled")
		return fmt.Errorf("subscribe rms: %w", err)
	default:
		return err
	}
}
