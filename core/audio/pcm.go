package audio

import "encoding/binary"

// SamplesFromBytes decodes little-endian 16-bit PCM into samples. A trailing
// odd byte is dropped.
func SamplesFromBytes(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// BytesFromSamples encodes samples as little-endian 16-bit PCM.
func BytesFromSamples(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
	}
	return data
}

// FloatsFromSamples converts 16-bit PCM samples to float64 in [-1, 1).
func FloatsFromSamples(samples []int16) []float64 {
	floats := make([]float64, len(samples))
	for i, sample := range samples {
		floats[i] = float64(sample) / 32768.0
	}
	return floats
}

// SamplesFromFloats converts float64 samples in [-1, 1] to 16-bit PCM,
// saturating anything outside that range at -32768 and 32767.
func SamplesFromFloats(floats []float64) []int16 {
	samples := make([]int16, len(floats))
	for i, f := range floats {
		scaled := int32(f * 32767.0)
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		samples[i] = int16(scaled)
	}
	return samples
}

// MonoToStereo duplicates each sample into a left/right pair.
func MonoToStereo(mono []int16) []int16 {
	stereo := make([]int16, len(mono)*2)
	for i, sample := range mono {
		stereo[i*2] = sample
		stereo[i*2+1] = sample
	}
	return stereo
}

// StereoToMono folds interleaved left/right pairs by averaging them.
func StereoToMono(stereo []int16) []int16 {
	mono := make([]int16, len(stereo)/2)
	for i := range mono {
		mono[i] = int16((int32(stereo[i*2]) + int32(stereo[i*2+1])) / 2)
	}
	return mono
}

// ResampleMono16 converts mono 16-bit PCM between sample rates using linear
// interpolation. It is meant for speech, not for archival quality.
func ResampleMono16(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 || fromRate <= 0 || toRate <= 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	resampled := make([]int16, int(float64(len(samples))/ratio))
	for i := range resampled {
		position := float64(i) * ratio
		left := int(position)
		if left >= len(samples)-1 {
			resampled[i] = samples[len(samples)-1]
			continue
		}

		fraction := position - float64(left)
		interpolated := float64(samples[left])*(1-fraction) + float64(samples[left+1])*fraction
		resampled[i] = int16(interpolated)
	}
	return resampled
}
