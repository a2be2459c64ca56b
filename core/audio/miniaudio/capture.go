package miniaudio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/auraloop/aura-core/core/audio"
)

const (
	captureSampleRate = audio.DefaultSampleRate
	captureChannels   = 1
	// capturePeriodFrames keeps capture periods short (30 ms at 16 kHz) so
	// interim transcription stays responsive.
	capturePeriodFrames = 480
)

// CaptureDevice streams microphone audio as 16 kHz mono little-endian PCM16.
type CaptureDevice struct {
	device *malgo.Device
	config malgo.DeviceConfig

	// onAudio is swapped atomically because Stop blocks on the device thread
	// while mu is held; the data callback must never wait on mu.
	onAudio atomic.Value // func(audio []byte)

	mu sync.Mutex
}

func (d *CaptureDevice) init(audioContext *malgo.AllocatedContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * captureChannels

	d.config = malgo.DefaultDeviceConfig(malgo.Capture)
	d.config.SampleRate = uint32(captureSampleRate)
	d.config.Capture.Format = format
	d.config.Capture.Channels = uint32(captureChannels)
	d.config.Alsa.NoMMap = 1
	d.config.PerformanceProfile = malgo.LowLatency
	d.config.PeriodSizeInFrames = capturePeriodFrames
	d.config.Periods = 3

	var err error
	d.device, err = malgo.InitDevice(audioContext.Context, d.config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}

			if onAudio, ok := d.onAudio.Load().(func(audio []byte)); ok && onAudio != nil {
				onAudio(pInput[:n])
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return nil
}

// Stream starts delivering capture chunks to onAudio. It returns once the
// device is running; StopCapture or Close ends delivery.
func (d *CaptureDevice) Stream(_ context.Context, onAudio func(audio []byte)) error {
	return d.StartCapture(context.Background(), onAudio)
}

func (d *CaptureDevice) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("device not initialized")
	} else if d.device.IsStarted() {
		return nil
	}

	d.onAudio.Store(onAudio)
	if err := d.device.Start(); err != nil {
		d.onAudio.Store((func(audio []byte))(nil))
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	return nil
}

func (d *CaptureDevice) StopCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !d.device.IsStarted() {
		return nil
	}

	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}

	d.onAudio.Store((func(audio []byte))(nil))
	return nil
}

func (d *CaptureDevice) Close() {
	_ = d.StopCapture()
}

func (d *CaptureDevice) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: captureSampleRate,
		Format:     audio.EncodingLinear16,
		Channels:   captureChannels,
	}
}

func (d *CaptureDevice) uninit() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	d.onAudio.Store((func(audio []byte))(nil))
}
