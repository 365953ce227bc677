package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider calls the OpenAI chat completions API.
type OpenAIProvider struct {
	client     *resty.Client
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	maxRetries int
}

var _ Provider = (*OpenAIProvider)(nil)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIProvider creates a live completion provider.
func NewOpenAIProvider(apiKey, model, baseURL string, timeout time.Duration, maxRetries int) *OpenAIProvider {
	return &OpenAIProvider{
		client:     resty.New().SetTimeout(timeout),
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.model
}

// Complete sends one query. Every call carries its own deadline so a single
// slow request cannot stall the dispatch loop; transient failures are retried
// with exponential backoff before the error is surfaced.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body := chatRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("llm call timed out: %w", ctx.Err())
			}
		}

		resp, err := p.client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+p.apiKey).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(p.baseURL + "/v1/chat/completions")

		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("llm call timed out: %w", ctx.Err())
			}
			lastErr = err
			continue
		}

		if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
			lastErr = fmt.Errorf("llm API returned status %d", resp.StatusCode())
			logrus.Warnf("OpenAI call failed (attempt %d/%d): %v", attempt+1, p.maxRetries+1, lastErr)
			continue
		}

		var parsed chatResponse
		if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
			return nil, fmt.Errorf("failed to decode llm response: %w", err)
		}

		if parsed.Error != nil {
			return nil, fmt.Errorf("llm API error: %s", parsed.Error.Message)
		}

		if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
			return nil, fmt.Errorf("llm returned an empty completion")
		}

		return &Completion{
			Text:       parsed.Choices[0].Message.Content,
			TokenCount: parsed.Usage.TotalTokens,
		}, nil
	}

	return nil, fmt.Errorf("llm call failed after %d attempts: %w", p.maxRetries+1, lastErr)
}
