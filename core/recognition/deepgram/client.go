package deepgram

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/auraloop/aura-core/core/recognition"
)

const defaultModel = "nova-3"

// TranscriptionClient transcribes a single utterance per listening session
// over Deepgram's live websocket API. After the final transcript is delivered
// the session closes itself; call [TranscriptionClient.Listen] again for the
// next utterance.
type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	apiKey string
	model  string

	lastAudioAt  atomic.Int64
	finalizing   atomic.Bool
	sessionEnded atomic.Bool

	// Only the session's read loop touches these.
	accumulatedTranscript string
	unendedSegment        bool
}

type ClientOption func(*TranscriptionClient)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) {
		c.apiKey = apiKey
	}
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		c.model = model
	}
}

func NewTranscriptionClient(opts ...ClientOption) *TranscriptionClient {
	client := &TranscriptionClient{model: defaultModel}
	for _, opt := range opts {
		opt(client)
	}
	client.sessionEnded.Store(true)
	return client
}

// SendAudio forwards raw audio to the open session.
func (c *TranscriptionClient) SendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return recognition.ErrNotConnected
	}

	c.lastAudioAt.Store(time.Now().UnixNano())
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write audio to deepgram: %w", err)
	}
	return nil
}

func (c *TranscriptionClient) sendSilence(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return recognition.ErrNotConnected
	}

	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write silence to deepgram: %w", err)
	}
	return nil
}

// Finalize asks the session to flush buffered audio and emit the final
// transcript now instead of waiting for the provider's own endpointing.
func (c *TranscriptionClient) Finalize() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return recognition.ErrNotConnected
	}

	c.finalizing.Store(true)
	if err := c.conn.WriteJSON(controlMessage{Type: "Finalize"}); err != nil {
		return fmt.Errorf("failed to finalize deepgram session: %w", err)
	}
	return nil
}

func (c *TranscriptionClient) sendKeepAlive() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return recognition.ErrNotConnected
	}

	if err := c.conn.WriteJSON(controlMessage{Type: "KeepAlive"}); err != nil {
		return fmt.Errorf("failed to send keep-alive to deepgram: %w", err)
	}
	return nil
}

// Close ends the current session, if any. Safe to call repeatedly; a later
// [TranscriptionClient.Listen] opens a fresh session.
func (c *TranscriptionClient) Close() error {
	c.sessionEnded.Store(true)

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}

	// Ask the server to flush and close cleanly; fall back to dropping the
	// connection if it cannot be reached anymore.
	_ = c.conn.WriteJSON(controlMessage{Type: "CloseStream"})
	err := c.conn.Close()
	c.conn = nil
	return err
}

type controlMessage struct {
	Type string `json:"type"`
}
