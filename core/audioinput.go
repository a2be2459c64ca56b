package dialogue

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/auraloop/aura-core/core/audio"
)

// audioInput wraps the capture client. Capture runs continuously for the
// whole session so the intensity analyzer always has fresh audio; the
// forwarding gate only decides whether chunks also reach the recognizer.
type audioInput struct {
	// base stores the configured input client used for streaming audio.
	base audioInputBase
	// fineCaptureControl is set when the input client supports explicit
	// capture start/stop.
	fineCaptureControl AudioInputFine

	// connected reports whether a concrete input client is configured.
	connected atomic.Bool
	// isCapturing reports whether the input client is currently capturing.
	isCapturing atomic.Bool
	// forwarding gates the capture-to-recognizer feed; PauseListening drops
	// it without touching the device.
	forwarding atomic.Bool

	// foldStereo is set when the device captures two channels that must be
	// averaged down before analysis and recognition.
	foldStereo bool

	// onAudio receives mono capture audio.
	onAudio func(audio []byte)
	// onError receives capture startup failures, which are fatal to the
	// session (a microphone that cannot open is not fixed by retrying).
	onError func(err error)
}

func newAudioInput(client audioInputBase, onAudio func(audio []byte), onError func(err error)) *audioInput {
	if onAudio == nil {
		onAudio = func(audio []byte) {}
	}
	if onError == nil {
		onError = func(err error) {}
	}

	audioInput := audioInput{onAudio: onAudio, onError: onError}
	audioInput.forwarding.Store(true)
	audioInput.Set(client)
	return &audioInput
}

func (a *audioInput) Set(client audioInputBase) {
	if a == nil {
		return
	}

	a.base = client
	a.fineCaptureControl = nil
	a.connected.Store(false)
	a.isCapturing.Store(false)
	a.foldStereo = false

	if client == nil {
		return
	}

	a.connected.Store(true)
	a.foldStereo = client.EncodingInfo().ChannelCount() == 2
	if fine, ok := client.(AudioInputFine); ok {
		a.fineCaptureControl = fine
	}
}

func (a *audioInput) IsConfigured() bool { return a != nil && a.connected.Load() }
func (a *audioInput) IsCapturing() bool  { return a != nil && a.isCapturing.Load() }

func (a *audioInput) SetForwarding(enabled bool) {
	if a != nil {
		a.forwarding.Store(enabled)
	}
}

func (a *audioInput) IsForwarding() bool { return a != nil && a.forwarding.Load() }

// Start begins capture if a client is configured. Safe to call repeatedly;
// only the first call starts the device.
func (a *audioInput) Start(ctx context.Context) {
	if !a.IsConfigured() {
		return
	}

	if !a.isCapturing.CompareAndSwap(false, true) {
		return
	}

	if a.fineCaptureControl != nil {
		go func() {
			if err := a.fineCaptureControl.StartCapture(ctx, a.handleAudio); err != nil {
				a.isCapturing.Store(false)
				a.onError(err)
			}
		}()
		return
	}

	go func() {
		if err := a.base.Stream(ctx, a.handleAudio); err != nil {
			a.isCapturing.Store(false)
			a.onError(err)
		}
	}()
}

func (a *audioInput) Close() error {
	var errs error
	if a.base != nil && a.IsConfigured() {
		if a.fineCaptureControl != nil {
			if err := a.fineCaptureControl.StopCapture(); err != nil {
				errs = errors.Join(errs, err)
			}
		}

		a.base.Close()
	}
	a.isCapturing.Store(false)

	return errs
}

// EncodingInfo reports the stream encoding after the stereo fold, which is
// what recognition sessions must be opened with.
func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if a == nil || a.base == nil {
		return audio.GetDefaultEncodingInfo()
	}

	encodingInfo := a.base.EncodingInfo()
	if encodingInfo.ChannelCount() == 2 {
		encodingInfo.Channels = 1
	}
	return encodingInfo
}

func (a *audioInput) handleAudio(chunk []byte) {
	if a.foldStereo {
		chunk = audio.BytesFromSamples(audio.StereoToMono(audio.SamplesFromBytes(chunk)))
	}

	a.onAudio(chunk)
}
