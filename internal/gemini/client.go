// Package gemini is a thin client for the Gemini generateContent API:
// one stateless call per prompt, plus a Chat that carries conversation
// history across calls.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rj-price/gemini-api/internal/session"
)

const (
	// DefaultModel is the variant both walkthrough scripts use.
	DefaultModel = "gemini-2.0-flash-lite"

	defaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Client is a configured handle to one remote model. It holds the
// credential and model name and is never mutated after creation, so one
// client can serve any number of sequential sessions. The credential is
// only validated by the remote service on first use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	system     string
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
}

// NewClient creates a client for the given model. An empty model name
// selects DefaultModel.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      model,
		logger:     slog.Default(),
		tracer:     otel.Tracer("gemini-api"),
		meter:      otel.Meter("gemini-api"),
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and
// base URL, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, apiKey, model string) *Client {
	c := NewClient(apiKey, model)
	c.httpClient = httpClient
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// SetSystemInstruction attaches a preamble sent with every request.
// Must be called before the first request.
func (c *Client) SetSystemInstruction(text string) {
	c.system = text
}

// Model returns the model name this client was configured with.
func (c *Client) Model() string {
	return c.model
}

// Generate sends a single prompt with no prior context and returns the
// generated text. Stateless across calls; no retries.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generateContent(ctx, []session.Turn{session.UserTurn(prompt)})
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// generateContent sends the ordered turns to the model and returns the
// decoded response body. Exactly one outbound call, no local state.
func (c *Client) generateContent(ctx context.Context, turns []session.Turn) (*GenerateContentResponse, error) {
	ctx, span := c.tracer.Start(ctx, "gemini_generate_content")
	defer span.End()

	start := time.Now()

	contents := make([]Content, len(turns))
	for i, t := range turns {
		contents[i] = Content{
			Role:  t.Role,
			Parts: []Part{{Text: t.Text}},
		}
	}

	reqBody := GenerateContentRequest{Contents: contents}
	if c.system != "" {
		reqBody.SystemInstruction = &Content{Parts: []Part{{Text: c.system}}}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrGeneration, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrGeneration, err)
	}

	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGeneration, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp.StatusCode, resp.Status, body)
	}

	var apiResp GenerateContentResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	duration := time.Since(start)
	histogram, err := c.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(duration.Milliseconds()))
	}

	c.recordUsage(ctx, apiResp.UsageMetadata)

	return &apiResp, nil
}

// apiError decodes an error payload; bodies that aren't the documented
// error shape are reported as generation failures with the raw status.
func (c *Client) apiError(statusCode int, status string, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr := &APIError{
			StatusCode: statusCode,
			Status:     errResp.Error.Status,
			Message:    errResp.Error.Message,
		}
		c.logger.Error("API error", "status", apiErr.Status, "code", statusCode, "message", apiErr.Message)
		return apiErr
	}
	return fmt.Errorf("%w: API error: %s - %s", ErrGeneration, status, string(body))
}

// recordUsage turns the response's token accounting into counters.
func (c *Client) recordUsage(ctx context.Context, usage *UsageMetadata) {
	if usage == nil {
		return
	}

	counts := map[string]int{
		"prompt_tokens":     usage.PromptTokenCount,
		"candidates_tokens": usage.CandidatesTokenCount,
		"total_tokens":      usage.TotalTokenCount,
	}
	for key, value := range counts {
		counter, err := c.meter.Int64Counter(
			fmt.Sprintf("llm.usage.%s", key),
			metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", key)),
		)
		if err != nil {
			c.logger.Warn("failed to create counter", "key", key, "error", err)
			continue
		}
		counter.Add(ctx, int64(value))
	}
}

// responseText extracts the generated text from a decoded response.
// The response shape is not locally guaranteed, so every level is checked:
// a 200 payload with no usable text is a malformed response, never a panic.
func responseText(resp *GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", ErrGeneration, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("%w: candidate has no text", ErrMalformedResponse)
	}
	return out.String(), nil
}
