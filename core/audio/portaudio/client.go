// Package portaudio provides a duplex mono device on the default PortAudio
// stream. It is the portability fallback for hosts where miniaudio misbehaves;
// capture and playback share one encoding so nothing is converted on-device.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/auraloop/aura-core/core/audio"
)

const DefaultBufferSize = 1024

type Client struct {
	bufferSize    int
	stream        *portaudio.Stream
	leftoverAudio []byte

	in  []int16
	out []int16
}

func NewClient(bufferSize int) (*Client, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// Stream reads microphone audio until the context is cancelled. Reads block
// on the device so cancellation is only observed between buffers.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.stream.Read(); err != nil {
				return fmt.Errorf("failed to read from portaudio stream: %w", err)
			}

			audioBuffer := bytes.Buffer{}
			binary.Write(&audioBuffer, binary.LittleEndian, c.in)
			onAudio(audioBuffer.Bytes())
		}
	}
}

// SendAudio writes full device buffers synchronously and holds back the
// remainder until the next call pads it out.
func (c *Client) SendAudio(audio []byte) error {
	bufferSize := c.bufferSize * 2

	audio = append(c.leftoverAudio, audio...)
	for i := range len(audio)/bufferSize + 1 {
		if (i+1)*bufferSize > len(audio) {
			c.leftoverAudio = make([]byte, len(audio)-i*bufferSize)
			copy(c.leftoverAudio, audio[i*bufferSize:])
			break
		}

		binary.Read(bytes.NewBuffer(audio[i*bufferSize:(i+1)*bufferSize]), binary.LittleEndian, c.out)
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
	}

	return nil
}

// AwaitMark flushes the held-back remainder, padded with silence to fill the
// final device buffer. Writes are synchronous so returning means the audio
// has been handed to the device in full.
func (c *Client) AwaitMark() error {
	bufferSize := c.bufferSize * 2

	audio := c.leftoverAudio
	c.leftoverAudio = nil
	if len(audio) == 0 {
		return nil
	}

	if padding := len(audio) % bufferSize; padding != 0 {
		audio = append(audio, make([]byte, bufferSize-padding)...)
	}

	for i := range len(audio) / bufferSize {
		binary.Read(bytes.NewBuffer(audio[i*bufferSize:(i+1)*bufferSize]), binary.LittleEndian, c.out)
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
	}
	return nil
}

func (c *Client) ClearBuffer() {
	c.leftoverAudio = nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
		Channels:   1,
	}
}

func (c *Client) Close() {
	c.stream.Close()
	portaudio.Terminate()
}
