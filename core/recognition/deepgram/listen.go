package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"

	"github.com/auraloop/aura-core/core/audio"
	"github.com/auraloop/aura-core/core/recognition"
	"github.com/auraloop/aura-core/internal/utils"
)

// Listen opens a listening session and arms the configured callbacks. It
// returns once the websocket is established; transcripts arrive on the
// callbacks until the utterance's final transcript ends the session. Dial
// failures are reported as [recognition.ConnectionError].
func (c *TranscriptionClient) Listen(ctx context.Context, opts ...recognition.Option) error {
	options := &recognition.Options{
		EncodingInfo: audio.GetDefaultEncodingInfo(),
		Language:     "en-US",
	}
	for _, opt := range opts {
		opt(options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	apiKey := c.apiKey
	if apiKey == "" {
		var ok bool
		if apiKey, ok = os.LookupEnv("DEEPGRAM_API_KEY"); !ok {
			return &recognition.ConnectionError{Cause: fmt.Errorf("deepgram api key not found")}
		}
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("a listening session is already open")
	}

	conn, err := connectWebsocket(ctx, connectionOptions{
		apiKey:     apiKey,
		model:      c.model,
		language:   options.Language,
		sampleRate: encoding.SampleRate,
		encoding:   encoding.Format.Name(),

		enhanceEndpointDetection: options.TranscriptCallback != nil,
		interimResults:           options.InterimTranscriptCallback != nil,
	})
	if err != nil {
		return &recognition.ConnectionError{Cause: err}
	}

	c.conn = conn
	c.accumulatedTranscript = ""
	c.unendedSegment = false
	c.finalizing.Store(false)
	c.sessionEnded.Store(false)
	c.lastAudioAt.Store(time.Now().UnixNano())

	go c.readAndProcessMessages(ctx, conn, *options)

	return nil
}

type connectionOptions struct {
	apiKey     string
	model      string
	language   string
	sampleRate int
	encoding   string

	enhanceEndpointDetection bool
	interimResults           bool
}

func connectWebsocket(ctx context.Context, options connectionOptions) (*websocket.Conn, error) {
	listenUrl, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", options.model)
	queryParams.Set("language", options.language)
	queryParams.Set("smart_format", "true")
	if options.enhanceEndpointDetection {
		queryParams.Set("utterance_end_ms", "1000")
		queryParams.Set("interim_results", "true")
		queryParams.Set("vad_events", "true")
	} else if options.interimResults {
		queryParams.Set("interim_results", "true")
	}
	queryParams.Set("endpointing", "300")

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + options.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (c *TranscriptionClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, options recognition.Options) {
	silenceCtx, silenceCancel := context.WithCancel(ctx)
	defer silenceCancel()

	go c.generateSilence(silenceCtx, options.EncodingInfo)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !c.sessionEnded.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				if options.ErrorCallback != nil {
					options.ErrorCallback(&recognition.ConnectionError{Cause: err})
				} else {
					log.Println("Failed to read deepgram websocket message", err)
				}
			}

			c.connMu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.connMu.Unlock()
			conn.Close()
			return
		}
		if msgType != websocket.BinaryMessage {
			// Handled inline so interim and final transcripts reach the
			// callbacks in arrival order.
			c.processMessage(msg, options)
		}
	}
}

func (c *TranscriptionClient) processMessage(msg []byte, options recognition.Options) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		log.Println("Failed to unmarshal deepgram message", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		if msgResp.IsFinal {
			if len(transcript) > 0 {
				c.accumulatedTranscript = strings.TrimSpace(c.accumulatedTranscript + " " + transcript)
			}
			if msgResp.SpeechFinal || c.finalizing.Load() {
				c.onUtteranceEnded(options)
			}
		} else if len(transcript) > 0 && options.InterimTranscriptCallback != nil {
			options.InterimTranscriptCallback(
				strings.TrimSpace(c.accumulatedTranscript + " " + transcript))
		}

	case api.TypeUtteranceEndResponse:
		var msgResp api.UtteranceEndResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		if c.unendedSegment {
			c.onUtteranceEnded(options)
		}

	case api.TypeSpeechStartedResponse:
		var msgResp api.SpeechStartedResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		c.unendedSegment = true
	}
}

// onUtteranceEnded flushes the accumulated transcript. A non-empty transcript
// is the utterance's one final result and ends the session; an empty flush is
// treated as a spurious endpoint and the session keeps listening.
func (c *TranscriptionClient) onUtteranceEnded(options recognition.Options) {
	fullTranscript := strings.TrimSpace(c.accumulatedTranscript)
	c.accumulatedTranscript = ""
	c.unendedSegment = false
	c.finalizing.Store(false)

	if len(fullTranscript) == 0 {
		return
	}

	if options.TranscriptCallback != nil {
		options.TranscriptCallback(fullTranscript)
	}
	_ = c.Close()
}

// generateSilence keeps the websocket alive while no real audio is flowing.
// Deepgram drops connections that stay quiet, so after a short gap we stream
// silence frames, and once the gap grows past a second we downgrade to cheap
// KeepAlive messages until real audio resumes.
func (c *TranscriptionClient) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceGeneratorState string
	const (
		silenceGeneratorStateWaiting   silenceGeneratorState = "waiting"
		silenceGeneratorStateSilence   silenceGeneratorState = "silence"
		silenceGeneratorStateKeepAlive silenceGeneratorState = "keepAlive"
	)

	const tickInterval = 50 * time.Millisecond
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	chunk := make([]byte, encoding.BytesForDuration(tickInterval))
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	sinceLastAudio := func() time.Duration {
		return time.Since(time.Unix(0, c.lastAudioAt.Load()))
	}

	state := silenceGeneratorStateWaiting
	var firstSilenceTime *time.Time
	var lastKeepAliveTime *time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch state {
			case silenceGeneratorStateWaiting:
				if sinceLastAudio() > tickInterval {
					state = silenceGeneratorStateSilence
					firstSilenceTime = utils.Ptr(time.Now())
					continue
				}

			case silenceGeneratorStateSilence:
				if sinceLastAudio() < tickInterval {
					state = silenceGeneratorStateWaiting
					firstSilenceTime = nil
					continue
				}
				if time.Since(*firstSilenceTime) >= time.Second {
					state = silenceGeneratorStateKeepAlive
					lastKeepAliveTime = utils.Ptr(time.Now())
					firstSilenceTime = nil
					continue
				}

				if err := c.sendSilence(chunk); err != nil {
					return
				}

			case silenceGeneratorStateKeepAlive:
				if sinceLastAudio() < tickInterval {
					state = silenceGeneratorStateWaiting
					continue
				}

				if time.Since(*lastKeepAliveTime) >= 5*time.Second {
					lastKeepAliveTime = utils.Ptr(time.Now())
					if err := c.sendKeepAlive(); err != nil {
						return
					}
				}
			}
		}
	}
}
