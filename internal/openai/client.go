package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNoAPIKey is returned by NewClient when no API key is configured.
var ErrNoAPIKey = errors.New("openai: api key not set")

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer answers a user message under a system prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openai: status %d", e.Status)
	}
	return fmt.Sprintf("openai: status %d: %s", e.Status, e.Message)
}

type Options struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	Dimensions     int
	ChatModel      string
	Timeout        time.Duration
	Transport      http.RoundTripper
}

// Client talks to the embeddings and chat completions endpoints.
type Client struct {
	http       *resty.Client
	embedModel string
	dimensions int
	chatModel  string
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = "text-embedding-3-small"
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = 512
	}
	if opts.ChatModel == "" {
		opts.ChatModel = "gpt-4o-mini"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/"))
	client.SetAuthToken(opts.APIKey)
	client.SetHeader("content-type", "application/json")
	client.SetTimeout(opts.Timeout)
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}

	return &Client{
		http:       client,
		embedModel: opts.EmbeddingModel,
		dimensions: opts.Dimensions,
		chatModel:  opts.ChatModel,
	}, nil
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed returns the embedding vector of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("openai: empty embedding input")
	}

	var out embeddingResponse
	err := c.post(ctx, "/embeddings", embeddingRequest{
		Model:      c.embedModel,
		Input:      text,
		Dimensions: c.dimensions,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: embedding response has no data")
	}
	return out.Data[0].Embedding, nil
}

// Complete runs a single chat completion and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	var out chatResponse
	err := c.post(ctx, "/chat/completions", chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
		MaxTokens:   250,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: completion response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (c *Client) post(ctx context.Context, path string, body, dst any) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("openai %s: %w", path, err)
	}
	if res.IsError() {
		apiErr := &APIError{Status: res.StatusCode()}
		var parsed errorResponse
		if json.Unmarshal(res.Body(), &parsed) == nil {
			apiErr.Message = parsed.Error.Message
		}
		return apiErr
	}
	if err := json.Unmarshal(res.Body(), dst); err != nil {
		return fmt.Errorf("openai %s: decode response: %w", path, err)
	}
	return nil
}
