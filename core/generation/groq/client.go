package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/auraloop/aura-core/core/generation"
)

const (
	url = "https://api.groq.com/openai/v1/chat/completions"

	defaultModel = "llama-3.1-8b-instant"
)

// Client generates replies through Groq's OpenAI-compatible chat completions
// API.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithAPIKey overrides the GROQ_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		model:      defaultModel,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Reply sends the prompt with any configured context and returns the model's
// reply. Non-success responses come back as [generation.StatusError] and a
// contentless completion as [generation.ErrEmptyReply].
func (c *Client) Reply(ctx context.Context, prompt string, opts ...generation.Option) (string, error) {
	ctx, span := tracer.Start(ctx, "groq.reply")
	defer span.End()
	span.SetAttributes(attribute.String("model", c.model))

	options := generation.Options{MaxOutputTokens: generation.DefaultMaxOutputTokens}
	for _, opt := range opts {
		opt(&options)
	}

	apiKey := c.apiKey
	if apiKey == "" {
		var ok bool
		if apiKey, ok = os.LookupEnv("GROQ_API_KEY"); !ok {
			return "", fmt.Errorf("groq api key not found")
		}
	}

	messages := toMessages(options.SystemPrompt(), options.Turns)
	messages = append(messages, message{
		Role:    messageRoleUser,
		Content: prompt,
	})

	reqBody := requestBody{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   options.MaxOutputTokens,
		Temperature: options.Temperature,
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &generation.StatusError{Code: resp.StatusCode, Status: resp.Status}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, "non-OK HTTP status")
		return "", statusErr
	}

	var responseBody completionResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return "", fmt.Errorf("error unmarshalling response body: %w", err)
	}

	if len(responseBody.Choices) == 0 {
		return "", generation.ErrEmptyReply
	}
	reply := strings.TrimSpace(responseBody.Choices[0].Message.Content)
	if reply == "" {
		return "", generation.ErrEmptyReply
	}

	return reply, nil
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type completionResponseBody struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		QueueTime        float64 `json:"queue_time"`
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalTokens      int     `json:"total_tokens"`
		TotalTime        float64 `json:"total_time"`
	} `json:"usage"`
}
