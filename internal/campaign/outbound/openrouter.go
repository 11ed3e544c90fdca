package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

const (
	defaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel = "google/gemini-3-flash-preview"
)

type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	PredictModel string
	Timeout      time.Duration
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
}

// OpenRouter submits tasks to an OpenAI compatible chat completions API and
// asks for a JSON object or array in the reply.
type OpenRouter struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	model        string
	predictModel string
	maxAttempts  int
	baseDelay    time.Duration
	maxDelay     time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenRouter(cfg OpenRouterConfig) *OpenRouter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenRouterModel
	}
	if cfg.PredictModel == "" {
		cfg.PredictModel = cfg.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 4 * time.Second
	}

	return &OpenRouter{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		predictModel: cfg.PredictModel,
		maxAttempts:  cfg.MaxAttempts,
		baseDelay:    cfg.BaseDelay,
		maxDelay:     cfg.MaxDelay,
	}
}

// Submit sends prompt and returns the assistant message content. 429 and 5xx
// responses and transient network errors are retried with jittered
// exponential backoff.
func (c *OpenRouter) Submit(ctx context.Context, task entity.Task, prompt string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	model := c.model
	if task == entity.TaskPredict {
		model = c.predictModel
	}

	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a marketing analytics assistant. Reply with JSON only."},
			{Role: "user", Content: prompt},
		},
	}
	if task != entity.TaskSearch {
		// json_object mode rejects top-level arrays
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	backoff := c.baseDelay
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		out, retry, wait, err := c.do(ctx, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !retry || attempt == c.maxAttempts {
			break
		}

		if wait <= 0 {
			wait = min(withJitter(backoff), c.maxDelay)
			backoff *= 2
		}
		slog.WarnContext(ctx, "retrying openrouter request", "task", task, "attempt", attempt, "wait", wait.String(), "error", err)

		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *OpenRouter) do(ctx context.Context, payload []byte) (out []byte, retry bool, wait time.Duration, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, false, 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Title", "Marketing Intelligence")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, isRetryableNetErr(err), 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		classified := classifyAPIError(apiErr, resp.Header)

		var rl *RateLimitError
		if errors.As(classified, &rl) {
			return nil, true, rl.RetryAfter, classified
		}
		return nil, resp.StatusCode >= 500, 0, classified
	}

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, 0, fmt.Errorf("decode response: %w", err)
	}
	if len(body.Choices) == 0 || strings.TrimSpace(body.Choices[0].Message.Content) == "" {
		return nil, false, 0, errors.New("empty completion")
	}

	return []byte(body.Choices[0].Message.Content), false, 0, nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: extractRequestID(resp.Header)}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw struct {
		Error struct {
			Message string `json:"message"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &raw) == nil {
		apiErr.Message = raw.Error.Message
		if raw.Error.Code != nil {
			apiErr.Code = fmt.Sprint(raw.Error.Code)
		}
	}

	return apiErr
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// withJitter returns d scaled by a random factor in [0.8, 1.2).
func withJitter(d time.Duration) time.Duration {
	f := 0.8 + rand.Float64()*0.4
	if out := time.Duration(float64(d) * f); out > 0 {
		return out
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
