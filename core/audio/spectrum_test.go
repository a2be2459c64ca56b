package audio

import (
	"math"
	"testing"
)

func TestSpectrumSilenceHasNoEnergy(t *testing.T) {
	spectrum := NewSpectrum(512)

	mags := spectrum.Magnitudes(make([]float64, 512))

	if rms := SpectralRMS(mags); rms != 0 {
		t.Fatalf("expected zero spectral RMS for silence, got %f", rms)
	}
}

func TestSpectrumPeaksAtToneFrequency(t *testing.T) {
	const (
		frameSize  = 512
		sampleRate = 16000.0
		toneHz     = 1000.0
	)
	spectrum := NewSpectrum(frameSize)

	frame := make([]float64, frameSize)
	for i := range frame {
		frame[i] = 0.5 * math.Sin(2*math.Pi*toneHz*float64(i)/sampleRate)
	}

	mags := spectrum.Magnitudes(frame)

	peakBin := 0
	for i, mag := range mags {
		if mag > mags[peakBin] {
			peakBin = i
		}
	}

	expectedBin := int(math.Round(toneHz * frameSize / sampleRate))
	if peakBin < expectedBin-1 || peakBin > expectedBin+1 {
		t.Fatalf("expected spectral peak near bin %d, got bin %d", expectedBin, peakBin)
	}
	if mags[peakBin] < 0.1 {
		t.Fatalf("expected a pronounced peak magnitude, got %f", mags[peakBin])
	}
}

func TestSpectralRMSGrowsWithAmplitude(t *testing.T) {
	spectrum := NewSpectrum(256)

	quiet := make([]float64, 256)
	loud := make([]float64, 256)
	for i := range quiet {
		s := math.Sin(2 * math.Pi * 440 * float64(i) / 16000)
		quiet[i] = 0.1 * s
		loud[i] = 0.8 * s
	}

	quietRMS := SpectralRMS(spectrum.Magnitudes(quiet))
	loudRMS := SpectralRMS(spectrum.Magnitudes(loud))

	if quietRMS <= 0 {
		t.Fatalf("expected positive RMS for a quiet tone, got %f", quietRMS)
	}
	if loudRMS <= quietRMS {
		t.Fatalf("expected louder tone to have higher RMS (%f vs %f)", loudRMS, quietRMS)
	}
}

func TestSpectralRMSEmptyIsZero(t *testing.T) {
	if rms := SpectralRMS(nil); rms != 0 {
		t.Fatalf("expected zero RMS for empty spectrum, got %f", rms)
	}
}
