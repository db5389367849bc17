package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/citetrace/citetrace/internal/infrastructure/resilience"
)

// Client talks to one Ollama server. The model is chosen per call so a
// single server can back several reviewer identities.
type Client struct {
	baseURL    string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		exec:       exec,
	}
}

// generateJSON asks the model for a strict-JSON completion and returns the
// raw response text. Transient failures are retried through the executor and
// surface as ErrTemporary.
func (c *Client) generateJSON(ctx context.Context, operation, model, prompt string, temperature float64) (string, error) {
	reqBody := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": temperature,
		},
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.exec.Execute(ctx, operation, func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, operation)
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
