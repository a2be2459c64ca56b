package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: EncodingLinear16, Channels: 1}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
	Channels   int
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// ChannelCount treats the zero value as mono so configs that never set
// Channels keep the historical behavior.
func (e EncodingInfo) ChannelCount() int {
	if e.Channels <= 0 {
		return 1
	}
	return e.Channels
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

// BytesForDuration returns how many bytes of audio cover d at this encoding.
// The result is aligned down to a whole frame.
func (e EncodingInfo) BytesForDuration(d time.Duration) int {
	frameBytes := e.Format.ByteSize() * e.ChannelCount()
	if frameBytes <= 0 || e.SampleRate <= 0 || d <= 0 {
		return 0
	}

	frames := int(int64(e.SampleRate) * d.Milliseconds() / 1000)
	return frames * frameBytes
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
