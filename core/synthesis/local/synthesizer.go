package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/auraloop/aura-core/core/audio"
	"github.com/auraloop/aura-core/core/synthesis"
)

// Synthesizer renders text as a sequence of soft tone pulses, one pulse per
// word. The output is not intelligible speech; it keeps replies audible when
// every speech provider is unreachable, paced so the text could plausibly be
// read along with it.
type Synthesizer struct{}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

const (
	baseWordDuration  = 90 * time.Millisecond
	perLetterDuration = 30 * time.Millisecond
	maxWordDuration   = 320 * time.Millisecond
	wordGap           = 70 * time.Millisecond

	amplitude = 0.25
)

// Synthesize renders the text at the requested encoding. Only linear16 output
// is supported; the voice option is ignored since there is just the one tone
// generator.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts ...synthesis.Option) ([]byte, error) {
	options := synthesis.Options{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}

	if options.EncodingInfo.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("only linear16 output is supported")
	}
	sampleRate := options.EncodingInfo.SampleRate

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, synthesis.ErrNoAudio
	}

	gap := make([]float64, samplesFor(wordGap, sampleRate))
	var samples []float64
	for i, word := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		duration := baseWordDuration + time.Duration(len(word))*perLetterDuration
		if duration > maxWordDuration {
			duration = maxWordDuration
		}

		samples = append(samples, tonePulse(wordPitch(word), duration, sampleRate)...)
		if i < len(words)-1 {
			samples = append(samples, gap...)
		}
	}

	rendered := audio.SamplesFromFloats(samples)
	if options.EncodingInfo.ChannelCount() == 2 {
		rendered = audio.MonoToStereo(rendered)
	}

	return audio.BytesFromSamples(rendered), nil
}

// wordPitch maps a word onto a small pentatonic set around 220Hz so
// consecutive words don't drone on a single tone.
func wordPitch(word string) float64 {
	hash := fnv.New32a()
	hash.Write([]byte(strings.ToLower(word)))

	semitones := []float64{0, 2, 4, 7, 9}
	semitone := semitones[hash.Sum32()%uint32(len(semitones))]
	return 220 * math.Pow(2, semitone/12)
}

func tonePulse(frequency float64, duration time.Duration, sampleRate int) []float64 {
	total := samplesFor(duration, sampleRate)
	pulse := make([]float64, total)

	ramp := total / 8
	for i := range pulse {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		} else if remaining := total - 1 - i; remaining < ramp {
			envelope = float64(remaining) / float64(ramp)
		}

		pulse[i] = amplitude * envelope *
			math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate))
	}
	return pulse
}

func samplesFor(duration time.Duration, sampleRate int) int {
	return int(duration.Seconds() * float64(sampleRate))
}
