package dialogue

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultFeedbackSmoothing is the per-tick exponential interpolation
	// factor toward the current targets, tuned for roughly 30 ticks/s.
	DefaultFeedbackSmoothing = 0.15
	// DefaultBrightnessGain scales how much intensity lifts brightness while
	// listening.
	DefaultBrightnessGain = 0.8
	// DefaultBloomGain scales how much intensity widens the bloom while
	// listening.
	DefaultBloomGain = 1.2
	// DefaultScaleGain scales how much intensity grows the orb while
	// listening.
	DefaultScaleGain = 0.25

	baselineBrightness = 1.0
	baselineBloom      = 1.0
	listeningBloomBase = 1.5

	idleBreathAmplitude = 0.02
	idleBreathPeriod    = 4 * time.Second
)

// FeedbackState is the numeric contract handed to the renderer once per tick.
// All values are smoothed; the renderer applies them directly.
type FeedbackState struct {
	// PhaseCode eases toward Phase.Code and is never frozen.
	PhaseCode  float64
	Brightness float64
	Bloom      float64
	Scale      float64
	// Intensity is the smoothed loudness, held during Processing/Speaking.
	Intensity float64
}

type FeedbackOption func(*FeedbackMapper)

func WithFeedbackSmoothing(smoothing float64) FeedbackOption {
	return func(m *FeedbackMapper) {
		if smoothing > 0 && smoothing <= 1 {
			m.smoothing = smoothing
		}
	}
}

func WithBrightnessGain(gain float64) FeedbackOption {
	return func(m *FeedbackMapper) { m.brightnessGain = gain }
}

func WithBloomGain(gain float64) FeedbackOption {
	return func(m *FeedbackMapper) { m.bloomGain = gain }
}

func WithScaleGain(gain float64) FeedbackOption {
	return func(m *FeedbackMapper) { m.scaleGain = gain }
}

// FeedbackMapper turns (phase, raw intensity) samples into the smoothed
// visual state. While listening, targets track intensity so the orb breathes
// with the user. During Processing and Speaking the targets hold the values
// observed at the last listening tick: the orb keeps the energy of what the
// user just said instead of decaying while the assistant thinks or talks.
type FeedbackMapper struct {
	mu sync.Mutex

	smoothing      float64
	brightnessGain float64
	bloomGain      float64
	scaleGain      float64

	state     FeedbackState
	lastPhase Phase
	frozen    FeedbackState

	start time.Time
	now   func() time.Time
}

func NewFeedbackMapper(opts ...FeedbackOption) *FeedbackMapper {
	mapper := &FeedbackMapper{
		smoothing:      DefaultFeedbackSmoothing,
		brightnessGain: DefaultBrightnessGain,
		bloomGain:      DefaultBloomGain,
		scaleGain:      DefaultScaleGain,
		state: FeedbackState{
			Brightness: baselineBrightness,
			Bloom:      baselineBloom,
			Scale:      1,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(mapper)
	}
	mapper.start = mapper.now()
	return mapper
}

// Tick advances the smoothed state one step toward the targets for phase and
// returns the result. Call it once per animation frame.
func (m *FeedbackMapper) Tick(phase Phase, intensity float64) FeedbackState {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.targets(phase, intensity)
	m.lastPhase = phase

	m.state.PhaseCode = lerp(m.state.PhaseCode, phase.Code(), m.smoothing)
	m.state.Brightness = lerp(m.state.Brightness, target.Brightness, m.smoothing)
	m.state.Bloom = lerp(m.state.Bloom, target.Bloom, m.smoothing)
	m.state.Scale = lerp(m.state.Scale, target.Scale, m.smoothing)
	m.state.Intensity = lerp(m.state.Intensity, target.Intensity, m.smoothing)

	return m.state
}

// State returns the current smoothed values without advancing them.
func (m *FeedbackMapper) State() FeedbackState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *FeedbackMapper) targets(phase Phase, intensity float64) FeedbackState {
	switch phase {
	case PhaseListening:
		return FeedbackState{
			Brightness: baselineBrightness + intensity*m.brightnessGain,
			Bloom:      listeningBloomBase + intensity*m.bloomGain,
			Scale:      1 + intensity*m.scaleGain,
			Intensity:  intensity,
		}

	case PhaseProcessing, PhaseSpeaking:
		// Pin the targets to the values held when listening ended. The first
		// tick after the transition records them, so the smoothed values stay
		// exactly where the user's speech left them.
		if m.lastPhase == PhaseListening || m.frozen == (FeedbackState{}) {
			m.frozen = m.state
		}
		return m.frozen

	default:
		elapsed := m.now().Sub(m.start).Seconds()
		breath := idleBreathAmplitude * math.Sin(2*math.Pi*elapsed/idleBreathPeriod.Seconds())
		return FeedbackState{
			Brightness: baselineBrightness,
			Bloom:      baselineBloom,
			Scale:      1 + breath,
			Intensity:  intensity,
		}
	}
}

func lerp(value, target, factor float64) float64 {
	return value + (target-value)*factor
}
