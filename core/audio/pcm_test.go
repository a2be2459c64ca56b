package audio

import (
	"math"
	"testing"
	"time"
)

func TestPCMRoundTripPreservesSamples(t *testing.T) {
	samples := []int16{0, 1, -1, 12345, -12345, 32767, -32768}

	decoded := SamplesFromBytes(BytesFromSamples(samples))

	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples after round trip, got %d", len(samples), len(decoded))
	}
	for i, sample := range samples {
		if decoded[i] != sample {
			t.Fatalf("expected sample %d to be %d, got %d", i, sample, decoded[i])
		}
	}
}

func TestSamplesFromBytesDropsTrailingByte(t *testing.T) {
	samples := SamplesFromBytes([]byte{0x01, 0x02, 0x03})

	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if samples[0] != 0x0201 {
		t.Fatalf("expected little-endian decode 0x0201, got %#x", samples[0])
	}
}

func TestSamplesFromFloatsSaturates(t *testing.T) {
	samples := SamplesFromFloats([]float64{2.0, 1.0, 0.0, -1.0, -2.0})

	if samples[0] != 32767 {
		t.Fatalf("expected over-range sample to saturate at 32767, got %d", samples[0])
	}
	if samples[4] != -32768 {
		t.Fatalf("expected under-range sample to saturate at -32768, got %d", samples[4])
	}
	if samples[2] != 0 {
		t.Fatalf("expected zero to stay zero, got %d", samples[2])
	}
}

func TestFloatSampleRoundTripStaysClose(t *testing.T) {
	samples := []int16{0, 100, -100, 16000, -16000, 32767}

	recovered := SamplesFromFloats(FloatsFromSamples(samples))

	for i, sample := range samples {
		if diff := int32(recovered[i]) - int32(sample); diff > 2 || diff < -2 {
			t.Fatalf("expected sample %d (%d) to survive float round trip, got %d", i, sample, recovered[i])
		}
	}
}

func TestMonoStereoConversions(t *testing.T) {
	mono := []int16{1, -2, 3}

	stereo := MonoToStereo(mono)
	if len(stereo) != 6 {
		t.Fatalf("expected 6 interleaved samples, got %d", len(stereo))
	}
	if stereo[2] != -2 || stereo[3] != -2 {
		t.Fatalf("expected second frame duplicated as (-2, -2), got (%d, %d)", stereo[2], stereo[3])
	}

	folded := StereoToMono(stereo)
	if len(folded) != len(mono) {
		t.Fatalf("expected %d samples after folding, got %d", len(mono), len(folded))
	}
	for i, sample := range mono {
		if folded[i] != sample {
			t.Fatalf("expected folded sample %d to be %d, got %d", i, sample, folded[i])
		}
	}
}

func TestStereoToMonoAverages(t *testing.T) {
	mono := StereoToMono([]int16{100, 200, -100, 100})

	if mono[0] != 150 {
		t.Fatalf("expected average 150, got %d", mono[0])
	}
	if mono[1] != 0 {
		t.Fatalf("expected average 0, got %d", mono[1])
	}
}

func TestResampleMono16(t *testing.T) {
	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = int16(4000 * math.Sin(2*math.Pi*float64(i)/16))
	}

	up := ResampleMono16(samples, 16000, 48000)
	if len(up) != 480 {
		t.Fatalf("expected 480 samples after upsampling, got %d", len(up))
	}

	down := ResampleMono16(up, 48000, 16000)
	if len(down) != 160 {
		t.Fatalf("expected 160 samples after downsampling, got %d", len(down))
	}
	for i := 1; i < len(down)-1; i++ {
		if diff := int32(down[i]) - int32(samples[i]); diff > 200 || diff < -200 {
			t.Fatalf("expected sample %d near %d after round trip, got %d", i, samples[i], down[i])
		}
	}

	same := ResampleMono16(samples, 16000, 16000)
	if len(same) != len(samples) {
		t.Fatalf("expected identity resample to keep %d samples, got %d", len(samples), len(same))
	}
}

func TestBytesForDuration(t *testing.T) {
	encoding := EncodingInfo{SampleRate: 16000, Format: EncodingLinear16, Channels: 1}

	if got := encoding.BytesForDuration(100 * time.Millisecond); got != 3200 {
		t.Fatalf("expected 3200 bytes for 100ms of 16kHz linear16 mono, got %d", got)
	}

	stereo := EncodingInfo{SampleRate: 48000, Format: EncodingLinear16, Channels: 2}
	if got := stereo.BytesForDuration(10 * time.Millisecond); got != 1920 {
		t.Fatalf("expected 1920 bytes for 10ms of 48kHz linear16 stereo, got %d", got)
	}
}
