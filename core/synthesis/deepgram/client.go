package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/auraloop/aura-core/core/audio"
	"github.com/auraloop/aura-core/core/synthesis"
)

// SpeechClient renders text to audio through Deepgram's speak REST API. One
// request produces the full audio for one utterance; the client keeps no
// state between requests.
type SpeechClient struct {
	apiKey     string
	httpClient *http.Client
}

type ClientOption func(*SpeechClient)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *SpeechClient) {
		c.apiKey = apiKey
	}
}

func NewSpeechClient(opts ...ClientOption) *SpeechClient {
	client := &SpeechClient{
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Synthesize renders text with the requested voice and encoding and returns
// the raw audio bytes. Non-success responses come back as
// [synthesis.StatusError].
func (c *SpeechClient) Synthesize(ctx context.Context, text string, opts ...synthesis.Option) ([]byte, error) {
	options := synthesis.Options{
		Voice:        DefaultVoice,
		EncodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Voice == "" {
		options.Voice = DefaultVoice
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	apiKey := c.apiKey
	if apiKey == "" {
		var ok bool
		if apiKey, ok = os.LookupEnv("DEEPGRAM_API_KEY"); !ok {
			return nil, fmt.Errorf("deepgram api key not found")
		}
	}

	requestBodyBytes, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	urlValues := url.Values{}
	urlValues.Set("model", options.Voice)
	urlValues.Set("encoding", encoding.format)
	urlValues.Set("sample_rate", strconv.Itoa(encoding.sampleRate))
	urlValues.Set("container", "none")

	speakUrl := (&url.URL{
		Scheme: "https",
		Host:   "api.deepgram.com", Path: "/v1/speak",
		RawQuery: urlValues.Encode(),
	}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speakUrl, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &synthesis.StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	speech, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading audio response: %w", err)
	}
	if len(speech) == 0 {
		return nil, synthesis.ErrNoAudio
	}

	return speech, nil
}
