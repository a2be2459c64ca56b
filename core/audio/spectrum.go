package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Spectrum turns fixed-size frames of mono samples into normalized magnitude
// spectra. It reuses its scratch buffers, so a single instance must not be
// shared between goroutines.
type Spectrum struct {
	fft      *fourier.FFT
	windowed []float64
	coeffs   []complex128
	mags     []float64
}

func NewSpectrum(frameSize int) *Spectrum {
	return &Spectrum{
		fft:      fourier.NewFFT(frameSize),
		windowed: make([]float64, frameSize),
		coeffs:   make([]complex128, frameSize/2+1),
		mags:     make([]float64, frameSize/2+1),
	}
}

func (s *Spectrum) FrameSize() int {
	return len(s.windowed)
}

// Magnitudes computes the Hann-windowed magnitude spectrum of frame, which
// must hold exactly FrameSize samples in [-1, 1]. The returned slice is valid
// until the next call.
func (s *Spectrum) Magnitudes(frame []float64) []float64 {
	copy(s.windowed, frame)
	window.Hann(s.windowed)
	s.fft.Coefficients(s.coeffs, s.windowed)

	scale := 2.0 / float64(len(s.windowed))
	for i, coeff := range s.coeffs {
		s.mags[i] = cmplx.Abs(coeff) * scale
	}
	return s.mags
}

// SpectralRMS is the root mean square over a magnitude spectrum, a crude but
// serviceable loudness measure for speech.
func SpectralRMS(mags []float64) float64 {
	if len(mags) == 0 {
		return 0
	}

	var sum float64
	for _, mag := range mags {
		sum += mag * mag
	}
	return math.Sqrt(sum / float64(len(mags)))
}
