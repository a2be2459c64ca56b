package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/auraloop/aura-core/core/generation"
)

const (
	url = "https://api.openai.com/v1/responses"

	defaultModel = "gpt-4o-mini"
)

// Client generates replies through OpenAI's Responses API.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithAPIKey overrides the OPENAI_API_KEY environment variable.
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
// reply. Non-success responses come back as [generation.StatusError] and an
// empty output as [generation.ErrEmptyReply].
func (c *Client) Reply(ctx context.Context, prompt string, opts ...generation.Option) (string, error) {
	ctx, span := tracer.Start(ctx, "openai.reply")
	defer span.End()
	span.SetAttributes(attribute.String("model", c.model))

	options := generation.Options{MaxOutputTokens: generation.DefaultMaxOutputTokens}
	for _, opt := range opts {
		opt(&options)
	}

	apiKey := c.apiKey
	if apiKey == "" {
		var ok bool
		if apiKey, ok = os.LookupEnv("OPENAI_API_KEY"); !ok {
			return "", fmt.Errorf("openai api key not found")
		}
	}

	input := toOpenAIMessages(options.SystemPrompt(), options.Turns)
	input = append(input, openAIMessage{
		Type:    messageTypeMessage,
		Role:    messageRoleUser,
		Content: prompt,
	})

	reqBody := requestBody{
		Model:           c.model,
		Input:           input,
		MaxOutputTokens: options.MaxOutputTokens,
		Temperature:     options.Temperature,
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

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var responseBody generalResponseBody
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		return "", fmt.Errorf("error unmarshalling response body: %w", err)
	}

	reply, err := extractReply(responseBody)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", generation.ErrEmptyReply
	}

	return reply, nil
}

// extractReply walks the response's output items and collects the text of the
// assistant message, ignoring item kinds that carry no speakable content.
func extractReply(responseBody generalResponseBody) (string, error) {
	var reply strings.Builder
	for _, output := range responseBody.Output {
		var outputType generalResponseBodyOutputType
		if err := json.Unmarshal(output, &outputType); err != nil {
			return "", fmt.Errorf("error unmarshalling output type: %w", err)
		}

		if outputType.Type != generalResponseBodyOutputTypeMessage {
			continue
		}

		var outputMessage generalResponseBodyOutputMessage
		if err := json.Unmarshal(output, &outputMessage); err != nil {
			return "", fmt.Errorf("error unmarshalling output message: %w", err)
		}

		for _, content := range outputMessage.Content {
			var contentType generalResponseBodyOutputMessageContentType
			if err := json.Unmarshal(content, &contentType); err != nil {
				return "", fmt.Errorf("error unmarshalling output message content: %w", err)
			}

			switch contentType.Type {
			case "output_text":
				var outputText generalResponseBodyOutputMessageContentOutputText
				if err := json.Unmarshal(content, &outputText); err != nil {
					return "", fmt.Errorf("error unmarshalling output text: %w", err)
				}
				reply.WriteString(outputText.Text)
			case "refusal":
				var outputRefusal generalResponseBodyOutputMessageContentRefusal
				if err := json.Unmarshal(content, &outputRefusal); err != nil {
					return "", fmt.Errorf("error unmarshalling refusal: %w", err)
				}
				reply.WriteString(outputRefusal.Refusal)
			}
		}
	}

	return strings.TrimSpace(reply.String()), nil
}

type requestBody struct {
	Model           string          `json:"model"`
	Input           []openAIMessage `json:"input"`
	MaxOutputTokens int             `json:"max_output_tokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
}

type generalResponseBody struct {
	Output []json.RawMessage `json:"output"`
}

type generalResponseBodyOutputType struct {
	Type generalResponseBodyOutputTypeType `json:"type"`
}

type generalResponseBodyOutputMessage struct {
	ID      string            `json:"id"`
	Content []json.RawMessage `json:"content,omitempty"`
}

type generalResponseBodyOutputMessageContentType struct {
	// Type is the type of the output message content, 'output_text' or
	// 'refusal'.
	Type string `json:"type"`
}

type generalResponseBodyOutputMessageContentOutputText struct {
	Text string `json:"text"`
}

type generalResponseBodyOutputMessageContentRefusal struct {
	Refusal string `json:"refusal"`
}

type generalResponseBodyOutputTypeType string

const (
	generalResponseBodyOutputTypeMessage   generalResponseBodyOutputTypeType = "message"
	generalResponseBodyOutputTypeReasoning generalResponseBodyOutputTypeType = "reasoning"
)
