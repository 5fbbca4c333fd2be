// Package llm is a minimal client for OpenAI-compatible chat completion
// APIs. The extractors only ever need one prompt in, one text answer out.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/catalystscan/backend/chassis/logging"
	"github.com/catalystscan/backend/chassis/metrics"
)

// Config ...
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
	Retries int
}

// Client ...
type Client struct {
	cfg  Config
	http *http.Client
}

// New ...
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage chatUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Ask sends one user prompt and returns the first choice's content.
// Retries the whole call on transport and server errors.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(1500 * time.Millisecond):
			}
		}
		answer, err := c.ask(ctx, prompt)
		if err == nil {
			metrics.LLMRequests.WithLabelValues("ok").Inc()
			return answer, nil
		}
		lastErr = err
		metrics.LLMRequests.WithLabelValues("error").Inc()
		log.WithFields(log.Fields{
			"event":   "llm_call_failed",
			"attempt": attempt,
			"retries": c.cfg.Retries,
		}).Error(err)
	}
	return "", fmt.Errorf("llm call failed after %d attempts: %w", c.cfg.Retries, lastErr)
}

func (c *Client) ask(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode llm response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm api error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm api status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm response has no choices")
	}

	trackTokens(parsed.Usage)
	return parsed.Choices[0].Message.Content, nil
}

// trackTokens logs and counts usage for observability. Missing usage is
// not an error.
func trackTokens(usage chatUsage) {
	if usage.TotalTokens == 0 {
		return
	}
	metrics.LLMTokens.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
	metrics.LLMTokens.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
	log.WithFields(log.Fields{
		"event":  "llm_token_usage",
		"input":  usage.PromptTokens,
		"output": usage.CompletionTokens,
		"total":  usage.TotalTokens,
	}).Info("llm token usage")
}
