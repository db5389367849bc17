package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
	"github.com/citetrace/citetrace/internal/infrastructure/resilience"
)

func newTestExecutor() *resilience.Executor {
	cfg := resilience.DefaultConfig()
	cfg.BreakerEnabled = false
	cfg.RetryMaxAttempts = 1
	return resilience.NewExecutor(cfg)
}

func generateServer(t *testing.T, response string, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if capture != nil {
			*capture, _ = payload["prompt"].(string)
		}
		body, _ := json.Marshal(map[string]string{"response": response})
		_, _ = w.Write(body)
	}))
}

func TestExtractorParsesReviewerAnswer(t *testing.T) {
	answer := `{"data":{"sample_size":120,"blinded":true},"citations":{"sample_size":[3]},"confidence":88,"reasoning":"stated directly"}`
	var capturedPrompt string
	server := generateServer(t, answer, &capturedPrompt)
	defer server.Close()

	extractor := NewExtractor(New(server.URL, newTestExecutor()))
	reviewer := domain.ReviewerConfig{ID: "alpha", Model: "llama3", Temperature: 0.1}
	fields := []ports.FieldSpec{{Name: "sample_size", Description: "number of participants"}, {Name: "blinded"}}

	result, err := extractor.ExtractFields(context.Background(), reviewer, fields, "[3] The trial enrolled 120 participants.")
	if err != nil {
		t.Fatalf("ExtractFields() error = %v", err)
	}
	if !result.Data["sample_size"].Equal(domain.NumberValue(120)) {
		t.Fatalf("unexpected sample_size: %+v", result.Data["sample_size"])
	}
	if !result.Data["blinded"].Equal(domain.BoolValue(true)) {
		t.Fatalf("unexpected blinded: %+v", result.Data["blinded"])
	}
	if got := result.Citations["sample_size"]; len(got) != 1 || got[0] != 3 {
		t.Fatalf("unexpected citations: %+v", result.Citations)
	}
	if result.Confidence != 88 {
		t.Fatalf("unexpected confidence: %v", result.Confidence)
	}
	if !strings.Contains(capturedPrompt, "[3] The trial enrolled 120 participants.") {
		t.Fatalf("citable text missing from prompt: %s", capturedPrompt)
	}
	if !strings.Contains(capturedPrompt, "sample_size: number of participants") {
		t.Fatalf("field description missing from prompt: %s", capturedPrompt)
	}
}

func TestExtractorFillsUnansweredFieldsWithNull(t *testing.T) {
	server := generateServer(t, `{"data":{},"citations":{},"confidence":40}`, nil)
	defer server.Close()

	extractor := NewExtractor(New(server.URL, newTestExecutor()))
	result, err := extractor.ExtractFields(context.Background(), domain.ReviewerConfig{ID: "a", Model: "m"}, []ports.FieldSpec{{Name: "missing"}}, "doc")
	if err != nil {
		t.Fatalf("ExtractFields() error = %v", err)
	}
	if !result.Data["missing"].IsNull() {
		t.Fatalf("expected null for unanswered field, got %+v", result.Data["missing"])
	}
}

func TestExtractorRejectsSchemaViolation(t *testing.T) {
	server := generateServer(t, `{"data":{"sample_size":"many"},"citations":{},"confidence":70}`, nil)
	defer server.Close()

	extractor := NewExtractor(New(server.URL, newTestExecutor()))
	fields := []ports.FieldSpec{{Name: "sample_size", Schema: `{"type":"number"}`}}
	_, err := extractor.ExtractFields(context.Background(), domain.ReviewerConfig{ID: "a", Model: "m"}, fields, "doc")
	if err == nil || !strings.Contains(err.Error(), "violates schema") {
		t.Fatalf("expected schema violation error, got %v", err)
	}
}

func TestExtractorRejectsObjectValues(t *testing.T) {
	server := generateServer(t, `{"data":{"f":{"nested":true}},"citations":{},"confidence":70}`, nil)
	defer server.Close()

	extractor := NewExtractor(New(server.URL, newTestExecutor()))
	_, err := extractor.ExtractFields(context.Background(), domain.ReviewerConfig{ID: "a", Model: "m"}, []ports.FieldSpec{{Name: "f"}}, "doc")
	if err == nil {
		t.Fatalf("expected error for object value")
	}
}

func TestMatcherParsesValidationAnswer(t *testing.T) {
	answer := `{"isValid":true,"confidence":92,"matchType":"paraphrase","reasoning":"same meaning","issues":[]}`
	server := generateServer(t, answer, nil)
	defer server.Close()

	matcher := NewMatcher(New(server.URL, newTestExecutor()), "llama3")
	match, err := matcher.Match(context.Background(), "120 patients", "The trial enrolled 120 participants.", "sample_size")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !match.IsValid || match.Confidence != 92 || match.MatchType != domain.MatchParaphrase {
		t.Fatalf("unexpected match: %+v", match)
	}
}

func TestMatcherDegradesOnUnparsableOutput(t *testing.T) {
	server := generateServer(t, "I cannot answer in JSON, sorry.", nil)
	defer server.Close()

	matcher := NewMatcher(New(server.URL, newTestExecutor()), "llama3")
	match, err := matcher.Match(context.Background(), "x", "y", "f")
	if err != nil {
		t.Fatalf("unparsable output must not error: %v", err)
	}
	if match.IsValid || match.MatchType != domain.MatchNone || len(match.Issues) == 0 {
		t.Fatalf("expected conservative no-match, got %+v", match)
	}
}

func TestMatcherSurfacesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusNotFound)
	}))
	defer server.Close()

	matcher := NewMatcher(New(server.URL, newTestExecutor()), "llama3")
	_, err := matcher.Match(context.Background(), "x", "y", "f")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestClientRetriesRetryableStatus(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, `{"response":"{\"isValid\":false,\"confidence\":0,\"matchType\":\"no-match\"}"}`)
	}))
	defer server.Close()

	cfg := resilience.DefaultConfig()
	cfg.BreakerEnabled = false
	cfg.RetryMaxAttempts = 2
	cfg.RetryInitialBackoff = 1
	matcher := NewMatcher(New(server.URL, resilience.NewExecutor(cfg)), "llama3")

	if _, err := matcher.Match(context.Background(), "x", "y", "f"); err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
}
