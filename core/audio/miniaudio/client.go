package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// Client owns the miniaudio context shared by the capture and playback
// devices. The sub-devices are exposed separately because they run different
// encodings: capture is recognition-friendly mono, playback is device-native
// stereo.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	capture  CaptureDevice
	playback PlaybackDevice
}

func NewClient() (*Client, error) {
	audioContext, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioContext}

	if err := client.capture.init(audioContext); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := client.playback.init(audioContext); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	// Playback runs for the whole client lifetime; an idle device plays the
	// empty buffer as silence and marks on an idle buffer still resolve.
	if err := client.playback.start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	return &client, nil
}

// Capture returns the microphone side of the client.
func (c *Client) Capture() *CaptureDevice {
	return &c.capture
}

// Playback returns the speaker side of the client.
func (c *Client) Playback() *PlaybackDevice {
	return &c.playback
}

// Close releases both devices and the context. The client is unusable
// afterwards.
func (c *Client) Close() {
	c.capture.uninit()
	c.playback.uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
}
