package dialogue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/auraloop/aura-core/core/audio"
)

type scriptedInputClient struct {
	chunks   [][]byte
	encoding audio.EncodingInfo
	closed   atomic.Bool
}

func (client *scriptedInputClient) EncodingInfo() audio.EncodingInfo {
	if client.encoding.IsZero() {
		return audio.GetDefaultEncodingInfo()
	}
	return client.encoding
}

func (client *scriptedInputClient) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	for _, chunk := range client.chunks {
		select {
		case <-ctx.Done():
			return nil
		default:
			onAudio(chunk)
		}
	}
	<-ctx.Done()
	return nil
}

func (client *scriptedInputClient) Close() {
	client.closed.Store(true)
}

type fineInputClient struct {
	scriptedInputClient
	startCalls atomic.Int32
	stopCalls  atomic.Int32
}

func (client *fineInputClient) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	client.startCalls.Add(1)
	for _, chunk := range client.chunks {
		onAudio(chunk)
	}
	return nil
}

func (client *fineInputClient) StopCapture() error {
	client.stopCalls.Add(1)
	return nil
}

func TestAudioInputUnconfiguredStartIsANoop(t *testing.T) {
	input := newAudioInput(nil, nil, nil)

	input.Start(context.Background())

	if input.IsCapturing() {
		t.Fatalf("expected no capture without a client")
	}
	if err := input.Close(); err != nil {
		t.Fatalf("expected close without a client to succeed, got %v", err)
	}
}

func TestAudioInputStreamsChunksToTheCallback(t *testing.T) {
	expected := [][]byte{{0x01, 0x02}, {0x03, 0x04}}
	received := make(chan []byte, len(expected))

	input := newAudioInput(&scriptedInputClient{chunks: expected}, func(chunk []byte) {
		copied := append([]byte(nil), chunk...)
		select {
		case received <- copied:
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	input.Start(ctx)

	for i := range expected {
		select {
		case got := <-received:
			if string(got) != string(expected[i]) {
				t.Fatalf("expected chunk %d to be %v, got %v", i, expected[i], got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for chunk %d", i)
		}
	}
}

func TestAudioInputFoldsStereoCapture(t *testing.T) {
	stereo := audio.BytesFromSamples([]int16{100, 200, 300, 500})
	received := make(chan []byte, 1)

	input := newAudioInput(&scriptedInputClient{
		chunks:   [][]byte{stereo},
		encoding: audio.EncodingInfo{SampleRate: 48000, Format: audio.EncodingLinear16, Channels: 2},
	}, func(chunk []byte) {
		select {
		case received <- append([]byte(nil), chunk...):
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	input.Start(ctx)

	select {
	case got := <-received:
		samples := audio.SamplesFromBytes(got)
		if len(samples) != 2 || samples[0] != 150 || samples[1] != 400 {
			t.Fatalf("expected folded mono samples [150 400], got %v", samples)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for folded audio")
	}

	if got := input.EncodingInfo().ChannelCount(); got != 1 {
		t.Fatalf("expected the reported encoding to be mono after folding, got %d channels", got)
	}
}

func TestAudioInputPrefersFineCaptureControl(t *testing.T) {
	client := &fineInputClient{scriptedInputClient: scriptedInputClient{chunks: [][]byte{{0x01, 0x02}}}}
	received := make(chan struct{}, 1)

	input := newAudioInput(client, func([]byte) {
		select {
		case received <- struct{}{}:
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	input.Start(ctx)

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fine capture audio")
	}

	if got := client.startCalls.Load(); got != 1 {
		t.Fatalf("expected one StartCapture call, got %d", got)
	}

	if err := input.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}
	if got := client.stopCalls.Load(); got != 1 {
		t.Fatalf("expected one StopCapture call, got %d", got)
	}
}

func TestAudioInputStartTwiceStartsOnce(t *testing.T) {
	client := &fineInputClient{}
	input := newAudioInput(client, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	input.Start(ctx)
	input.Start(ctx)

	waitForCondition(t, 2*time.Second, "capture to start", func() bool {
		return client.startCalls.Load() > 0
	})

	time.Sleep(50 * time.Millisecond)
	if got := client.startCalls.Load(); got != 1 {
		t.Fatalf("expected a single StartCapture call, got %d", got)
	}
}

func TestAudioInputReportsCaptureErrors(t *testing.T) {
	captureErr := errors.New("device unavailable")
	errored := make(chan error, 1)

	client := &erroringInputClient{err: captureErr}
	input := newAudioInput(client, nil, func(err error) {
		select {
		case errored <- err:
		default:
		}
	})

	input.Start(context.Background())

	select {
	case err := <-errored:
		if !errors.Is(err, captureErr) {
			t.Fatalf("expected the capture error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the capture error")
	}

	if input.IsCapturing() {
		t.Fatalf("expected capture flag to reset after a failed start")
	}
}

func TestAudioInputForwardingGate(t *testing.T) {
	input := newAudioInput(nil, nil, nil)

	if !input.IsForwarding() {
		t.Fatalf("expected forwarding to default on")
	}

	input.SetForwarding(false)
	if input.IsForwarding() {
		t.Fatalf("expected forwarding off after disabling")
	}

	input.SetForwarding(true)
	if !input.IsForwarding() {
		t.Fatalf("expected forwarding back on")
	}
}

type erroringInputClient struct {
	err error
}

func (client *erroringInputClient) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (client *erroringInputClient) Stream(context.Context, func(audio []byte)) error {
	return client.err
}

func (client *erroringInputClient) Close() {}
