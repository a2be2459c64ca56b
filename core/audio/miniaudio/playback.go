package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/auraloop/aura-core/core/audio"
)

const (
	playbackSampleRate = 48000
	playbackChannels   = 2
)

// PlaybackDevice plays queued 48 kHz stereo little-endian PCM16. Successive
// sends append to one buffer so fallback audio for the same reply never
// overlaps the provider audio that preceded it.
//
// Marks are positions in the queued buffer. A mark's callback fires once the
// device has consumed every byte enqueued before the mark, which is as close
// to "audibly finished" as the device callback model gets.
type PlaybackDevice struct {
	device *malgo.Device
	config malgo.DeviceConfig

	// mu guards device lifecycle, bufferMu guards buffered audio and marks.
	// The device data callback only takes bufferMu.
	mu       sync.Mutex
	bufferMu sync.Mutex

	buffered []byte
	marks    []playbackMark
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

func (d *PlaybackDevice) init(audioContext *malgo.AllocatedContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	format := malgo.FormatS16

	d.config = malgo.DefaultDeviceConfig(malgo.Playback)
	d.config.SampleRate = uint32(playbackSampleRate)
	d.config.Playback.Format = format
	d.config.Playback.Channels = uint32(playbackChannels)
	d.config.Alsa.NoMMap = 1
	d.config.PeriodSizeInFrames = playbackSampleRate / 10 // ~100ms of audio
	d.config.Periods = 4

	var err error
	d.device, err = malgo.InitDevice(audioContext.Context, d.config, malgo.DeviceCallbacks{
		Data: d.processAudio,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return nil
}

func (d *PlaybackDevice) start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("device not initialized")
	} else if d.device.IsStarted() {
		return nil
	}

	if err := d.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (d *PlaybackDevice) SendAudio(audio []byte) error {
	d.mu.Lock()
	if d.device == nil {
		d.mu.Unlock()
		return fmt.Errorf("device not initialized")
	} else if !d.device.IsStarted() {
		d.mu.Unlock()
		return fmt.Errorf("device not started")
	}
	d.mu.Unlock()

	d.bufferMu.Lock()
	defer d.bufferMu.Unlock()
	d.buffered = append(d.buffered, audio...)
	return nil
}

// Mark registers a callback for when playback drains past the end of the
// audio enqueued so far.
func (d *PlaybackDevice) Mark(mark string, callback func(string)) error {
	if callback == nil {
		return fmt.Errorf("mark callback is required")
	}

	d.bufferMu.Lock()
	defer d.bufferMu.Unlock()
	d.marks = append(d.marks, playbackMark{
		name:     mark,
		position: len(d.buffered),
		callback: callback,
	})
	return nil
}

// AwaitMark blocks until the audio enqueued so far has been played.
func (d *PlaybackDevice) AwaitMark() error {
	wg := sync.WaitGroup{}
	wg.Add(1)
	if err := d.Mark("", func(string) { wg.Done() }); err != nil {
		return err
	}
	wg.Wait()
	return nil
}

// ClearBuffer drops queued audio and pending marks without firing them.
func (d *PlaybackDevice) ClearBuffer() {
	d.bufferMu.Lock()
	defer d.bufferMu.Unlock()
	d.buffered = nil
	d.marks = nil
}

func (d *PlaybackDevice) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: playbackSampleRate,
		Format:     audio.EncodingLinear16,
		Channels:   playbackChannels,
	}
}

// processAudio is the device data callback. It feeds the next period from
// the buffer, advances mark positions by the bytes consumed and fires the
// marks playback has passed. Callbacks run on their own goroutine so the
// audio thread never blocks on them.
func (d *PlaybackDevice) processAudio(pOutput, _ []byte, frameCount uint32) {
	d.bufferMu.Lock()

	n := copy(pOutput, d.buffered)
	d.buffered = d.buffered[n:]

	var due []playbackMark
	kept := d.marks[:0]
	for i := range d.marks {
		d.marks[i].position -= n
		if d.marks[i].position <= 0 {
			due = append(due, d.marks[i])
		} else {
			kept = append(kept, d.marks[i])
		}
	}
	d.marks = kept

	d.bufferMu.Unlock()

	if len(due) > 0 {
		go func() {
			for _, mark := range due {
				mark.callback(mark.name)
			}
		}()
	}
}

func (d *PlaybackDevice) uninit() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}

	d.bufferMu.Lock()
	d.buffered = nil
	d.marks = nil
	d.bufferMu.Unlock()
}
