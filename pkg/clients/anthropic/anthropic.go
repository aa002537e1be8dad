package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-3-haiku-20240307"
	maxTokens  = 1024
)

const systemPrompt = `You assist a live-poultry wholesaler.
You receive aggregated figures for one provider lot: crate stock, then per client the gross weight, tare, mortality and net weight.
Write a short report in French (under 200 words) covering total sales, remaining stock, notable clients and abnormal mortality.
Never invent figures that are not in the data.`

// ErrEmptyResponse is returned when the API answers without any text block.
var ErrEmptyResponse = errors.New("empty response from ai")

// Client summarizes a pre-aggregated ledger prompt into prose.
type Client interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// APIClient talks to the Anthropic Messages API through resty.
type APIClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string) *APIClient {
	client := resty.New().
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(30 * time.Second)

	return &APIClient{httpClient: client, url: apiURL}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Summarize sends prompt as a single user turn and returns the concatenated
// text of the reply. The reply is not interpreted.
func (c *APIClient) Summarize(ctx context.Context, prompt string) (string, error) {
	reqBody := messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []Message{{Role: "user", Content: prompt}},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(c.url)

	if err != nil {
		return "", fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anthropic api error: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	var b strings.Builder
	for _, block := range respBody.Content {
		if block.Type != "" && block.Type != "text" {
			continue
		}
		b.WriteString(block.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
