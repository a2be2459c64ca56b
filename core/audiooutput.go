package dialogue

import (
	"reflect"

	"github.com/auraloop/aura-core/core/audio"
)

// audioOutput normalizes blocking-wait (v0) and callback-mark (v1) playback
// clients behind one facade used by the speaking step.
//
// The facade caches typed capabilities derived from base so per-turn code can
// route without repeated type assertions.
//
// NOTE: methods do best-effort forwarding and ignore client return errors
// because playback is a non-fatal side effect; a reply whose audio drops is
// still a reply.
type audioOutput struct {
	// base stores the configured output client regardless of mark protocol.
	base audioOutputBase
	// v0 is set when the output client supports the blocking mark-wait API.
	v0 AudioOutputV0
	// v1 is set when the output client supports callback-based mark handling.
	v1 AudioOutputV1
}

func newAudioOutput(client audioOutputBase) *audioOutput {
	audioOutput := audioOutput{}
	audioOutput.Set(client)
	return &audioOutput
}

// Set replaces the configured output client and recomputes capabilities. Nil
// and typed-nil clients are treated as unconfigured.
func (a *audioOutput) Set(client audioOutputBase) {
	if a == nil {
		return
	}

	a.base = nil
	a.v0 = nil
	a.v1 = nil

	if isNilAudioOutputBase(client) {
		return
	}
	a.base = client

	if v1, ok := client.(AudioOutputV1); ok {
		a.v1 = v1
		return
	}

	if v0, ok := client.(AudioOutputV0); ok {
		a.v0 = v0
	}
}

// isConfigured checks the typed bindings instead of base so unsupported or
// typed-nil interface values are not considered configured.
func (a *audioOutput) isConfigured() bool {
	if a == nil {
		return false
	}

	return a.v0 != nil || a.v1 != nil
}

// SendAudio enqueues a chunk for playback, converting from the synthesis
// encoding to the device encoding when the two differ. Unconfigured outputs
// drop the chunk.
func (a *audioOutput) SendAudio(pcm []byte, from audio.EncodingInfo) {
	if !a.isConfigured() {
		return
	}

	pcm = convertPCM(pcm, from, a.EncodingInfo())

	if a.v1 != nil {
		a.v1.SendAudio(pcm)
	} else {
		a.v0.SendAudio(pcm)
	}
}

// Mark resolves when playback audibly reaches the point where the mark was
// enqueued, which is how the speaking phase learns the reply has finished
// sounding rather than merely arriving.
//
// For v1 clients mark handling is delegated directly. For v0 clients the
// blocking AwaitMark is bridged to a callback. Without output configured the
// callback fires immediately so headless sessions keep progressing.
func (a *audioOutput) Mark(mark string, callback func(string)) {
	if a.v1 != nil {
		a.v1.Mark(mark, callback)
	} else if a.v0 != nil {
		go func() {
			a.v0.AwaitMark()
			callback(mark)
		}()
	} else {
		callback(mark)
	}
}

// Clear flushes buffered output on the configured client.
func (a *audioOutput) Clear() {
	if a.v1 != nil {
		a.v1.ClearBuffer()
	} else if a.v0 != nil {
		a.v0.ClearBuffer()
	}
}

// EncodingInfo returns the active output encoding metadata, or the project
// default when no client is configured.
func (a *audioOutput) EncodingInfo() audio.EncodingInfo {
	if a.v1 != nil {
		return a.v1.EncodingInfo()
	}
	if a.v0 != nil {
		return a.v0.EncodingInfo()
	}

	return audio.GetDefaultEncodingInfo()
}

// convertPCM adapts linear16 audio between sample rates and channel layouts.
// Non-linear16 audio is passed through untouched; providers are asked for the
// device encoding up front, so conversion only covers the cases where the
// provider could not honor it.
func convertPCM(pcm []byte, from, to audio.EncodingInfo) []byte {
	if from.Format != audio.EncodingLinear16 || to.Format != audio.EncodingLinear16 {
		return pcm
	}
	if from.SampleRate == to.SampleRate && from.ChannelCount() == to.ChannelCount() {
		return pcm
	}

	samples := audio.SamplesFromBytes(pcm)
	if from.ChannelCount() == 2 {
		samples = audio.StereoToMono(samples)
	}
	samples = audio.ResampleMono16(samples, from.SampleRate, to.SampleRate)
	if to.ChannelCount() == 2 {
		samples = audio.MonoToStereo(samples)
	}
	return audio.BytesFromSamples(samples)
}

// isNilAudioOutputBase detects nil and typed-nil interface values so Set can
// avoid storing unusable interface wrappers as configured clients.
func isNilAudioOutputBase(client audioOutputBase) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
