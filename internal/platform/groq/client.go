package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sjwg/reporter-backend/internal/platform/envutil"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Client is the completion-service client used by summarization.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewClient builds a Groq chat client from the environment. It returns
// (nil, nil) when GROQ_API_KEY is unset: summarization treats a nil client
// as "unconfigured" and degrades to a placeholder instead of failing.
func NewClient(baseLog *logger.Logger) (Client, error) {
	apiKey := envutil.String("GROQ_API_KEY", "")
	if apiKey == "" {
		return nil, nil
	}
	timeout := envutil.Duration("GROQ_TIMEOUT", 60*time.Second)
	return &client{
		log:         baseLog.With("service", "GroqClient"),
		baseURL:     strings.TrimRight(envutil.String("GROQ_BASE_URL", defaultBaseURL), "/"),
		apiKey:      apiKey,
		model:       envutil.String("GROQ_MODEL", "llama-3.1-70b-versatile"),
		temperature: 0.3,
		maxTokens:   envutil.Int("GROQ_MAX_TOKENS", 2000),
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("groq http %d: %s", e.StatusCode, e.Body)
}

func (c *client) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var resp chatResponse
	if err := c.do(ctx, "POST", "/chat/completions", &req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty completion content")
	}
	return content, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if uErr := json.Unmarshal(raw, out); uErr != nil {
		return fmt.Errorf("groq decode error: %w; raw=%s", uErr, string(raw))
	}
	return nil
}
