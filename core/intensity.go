package dialogue

import (
	"sync"

	"github.com/auraloop/aura-core/core/audio"
)

const (
	// DefaultIntensityFrameSize is how many of the most recent capture
	// samples one intensity reading is computed over. At 16 kHz this is 64 ms
	// of audio.
	DefaultIntensityFrameSize = 1024
	// DefaultIntensityCalibration scales spectral RMS so conversational
	// speech lands mid-range before clamping.
	DefaultIntensityCalibration = 0.02
)

// IntensityAnalyzer turns the raw capture stream into a loudness measure in
// [0, 1]. It keeps only the most recent frame of samples, every reading is
// computed from scratch over that frame with no smoothing, smoothing belongs
// to the feedback mapper.
type IntensityAnalyzer struct {
	mu          sync.Mutex
	spectrum    *audio.Spectrum
	samples     []float64
	writeIdx    int
	filled      int
	frame       []float64
	calibration float64
}

type IntensityOption func(*IntensityAnalyzer)

// WithIntensityFrameSize overrides the analysis frame length in samples.
func WithIntensityFrameSize(frameSize int) IntensityOption {
	return func(a *IntensityAnalyzer) {
		if frameSize > 0 {
			a.samples = make([]float64, frameSize)
			a.frame = make([]float64, frameSize)
		}
	}
}

// WithIntensityCalibration overrides the spectral RMS value that maps to
// full intensity.
func WithIntensityCalibration(calibration float64) IntensityOption {
	return func(a *IntensityAnalyzer) {
		if calibration > 0 {
			a.calibration = calibration
		}
	}
}

func NewIntensityAnalyzer(opts ...IntensityOption) *IntensityAnalyzer {
	analyzer := &IntensityAnalyzer{
		samples:     make([]float64, DefaultIntensityFrameSize),
		frame:       make([]float64, DefaultIntensityFrameSize),
		calibration: DefaultIntensityCalibration,
	}
	for _, opt := range opts {
		opt(analyzer)
	}
	analyzer.spectrum = audio.NewSpectrum(len(analyzer.samples))
	return analyzer
}

// Process folds a chunk of little-endian mono PCM16 into the rolling frame.
// It is safe to call from the capture device goroutine.
func (a *IntensityAnalyzer) Process(pcm []byte) {
	if a == nil || len(pcm) == 0 {
		return
	}

	floats := audio.FloatsFromSamples(audio.SamplesFromBytes(pcm))

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, sample := range floats {
		a.samples[a.writeIdx] = sample
		a.writeIdx = (a.writeIdx + 1) % len(a.samples)
		if a.filled < len(a.samples) {
			a.filled++
		}
	}
}

// Intensity computes the current loudness: RMS across the Hann-windowed
// magnitude spectrum of the frame, divided by the calibration constant,
// clamped to [0, 1]. Returns 0 until any audio has been processed.
func (a *IntensityAnalyzer) Intensity() float64 {
	if a == nil {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.filled == 0 {
		return 0
	}
	// Unroll the ring into chronological order; the window weights positions,
	// so order matters.
	n := len(a.samples)
	for i := range n {
		a.frame[i] = a.samples[(a.writeIdx+i)%n]
	}

	rms := audio.SpectralRMS(a.spectrum.Magnitudes(a.frame))

	intensity := rms / a.calibration
	if intensity > 1 {
		return 1
	}
	return intensity
}
