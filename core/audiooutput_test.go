package dialogue

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/auraloop/aura-core/core/audio"
)

type recordingOutputV1 struct {
	mu       sync.Mutex
	encoding audio.EncodingInfo
	sent     [][]byte
	marks    []string
	cleared  int
}

func (output *recordingOutputV1) EncodingInfo() audio.EncodingInfo {
	if output.encoding.IsZero() {
		return audio.GetDefaultEncodingInfo()
	}
	return output.encoding
}

func (output *recordingOutputV1) SendAudio(pcm []byte) error {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.sent = append(output.sent, append([]byte(nil), pcm...))
	return nil
}

func (output *recordingOutputV1) ClearBuffer() {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.cleared++
}

func (output *recordingOutputV1) Mark(mark string, callback func(string)) error {
	output.mu.Lock()
	output.marks = append(output.marks, mark)
	output.mu.Unlock()
	callback(mark)
	return nil
}

func (output *recordingOutputV1) sentAudio() [][]byte {
	output.mu.Lock()
	defer output.mu.Unlock()
	return output.sent
}

type blockingOutputV0 struct {
	releaseAwait chan struct{}
}

func (output *blockingOutputV0) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (output *blockingOutputV0) SendAudio([]byte) error { return nil }
func (output *blockingOutputV0) ClearBuffer()           {}

func (output *blockingOutputV0) AwaitMark() error {
	<-output.releaseAwait
	return nil
}

func TestAudioOutputUnconfiguredMarkFiresImmediately(t *testing.T) {
	facade := newAudioOutput(nil)

	if facade.isConfigured() {
		t.Fatalf("expected nil client to leave the facade unconfigured")
	}

	fired := false
	facade.Mark("turn-1", func(mark string) {
		if mark != "turn-1" {
			t.Fatalf("expected the mark name to pass through, got %q", mark)
		}
		fired = true
	})
	if !fired {
		t.Fatalf("expected an unconfigured facade to fire the mark callback immediately")
	}
}

func TestAudioOutputTreatsTypedNilAsUnconfigured(t *testing.T) {
	var outputClient *recordingOutputV1

	facade := newAudioOutput(outputClient)
	if facade.isConfigured() {
		t.Fatalf("expected typed nil client to be treated as unconfigured")
	}
	if facade.base != nil || facade.v0 != nil || facade.v1 != nil {
		t.Fatalf("expected no bindings for a typed nil client")
	}
}

func TestAudioOutputPrefersV1Marks(t *testing.T) {
	output := &recordingOutputV1{}
	facade := newAudioOutput(output)

	marked := make(chan string, 1)
	facade.Mark("turn-3", func(mark string) { marked <- mark })

	select {
	case mark := <-marked:
		if mark != "turn-3" {
			t.Fatalf("expected the delegated mark, got %q", mark)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the mark callback")
	}
}

func TestAudioOutputBridgesV0AwaitMark(t *testing.T) {
	output := &blockingOutputV0{releaseAwait: make(chan struct{})}
	facade := newAudioOutput(output)

	marked := make(chan string, 1)
	facade.Mark("turn-4", func(mark string) { marked <- mark })

	select {
	case <-marked:
		t.Fatalf("expected the mark to wait for playback")
	case <-time.After(50 * time.Millisecond):
	}

	close(output.releaseAwait)

	select {
	case mark := <-marked:
		if mark != "turn-4" {
			t.Fatalf("expected the bridged mark, got %q", mark)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the bridged mark callback")
	}
}

func TestAudioOutputSendConvertsToTheDeviceEncoding(t *testing.T) {
	output := &recordingOutputV1{encoding: audio.EncodingInfo{
		SampleRate: 48000,
		Format:     audio.EncodingLinear16,
		Channels:   2,
	}}
	facade := newAudioOutput(output)

	mono := audio.BytesFromSamples(make([]int16, 240))
	facade.SendAudio(mono, audio.EncodingInfo{
		SampleRate: 24000,
		Format:     audio.EncodingLinear16,
		Channels:   1,
	})

	sent := output.sentAudio()
	if len(sent) != 1 {
		t.Fatalf("expected one chunk, got %d", len(sent))
	}
	// 240 mono samples at 24k become 480 at 48k, doubled again for stereo.
	if got := len(sent[0]); got != 240*2*2*2 {
		t.Fatalf("expected the converted chunk to be %d bytes, got %d", 240*2*2*2, got)
	}
}

func TestAudioOutputSendPassesMatchingEncodingThrough(t *testing.T) {
	output := &recordingOutputV1{encoding: audio.EncodingInfo{
		SampleRate: 24000,
		Format:     audio.EncodingLinear16,
		Channels:   1,
	}}
	facade := newAudioOutput(output)

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	facade.SendAudio(pcm, output.EncodingInfo())

	sent := output.sentAudio()
	if len(sent) != 1 || !bytes.Equal(sent[0], pcm) {
		t.Fatalf("expected the chunk untouched, got %v", sent)
	}
}

func TestConvertPCMFoldsStereoAndResamples(t *testing.T) {
	stereo := audio.BytesFromSamples([]int16{100, 200, 300, 500})

	converted := convertPCM(stereo,
		audio.EncodingInfo{SampleRate: 48000, Format: audio.EncodingLinear16, Channels: 2},
		audio.EncodingInfo{SampleRate: 24000, Format: audio.EncodingLinear16, Channels: 1},
	)

	samples := audio.SamplesFromBytes(converted)
	if len(samples) != 1 {
		t.Fatalf("expected two stereo frames to fold and halve to one sample, got %d", len(samples))
	}
	if samples[0] != 150 {
		t.Fatalf("expected the first folded sample, got %d", samples[0])
	}
}
