package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/core/ports"
)

// Extractor asks one reviewer model to extract the requested fields from the
// citable document text.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

type extractionResponse struct {
	Data       map[string]json.RawMessage `json:"data"`
	Citations  map[string][]int           `json:"citations"`
	Confidence float64                    `json:"confidence"`
	Reasoning  string                     `json:"reasoning"`
}

func (e *Extractor) ExtractFields(
	ctx context.Context,
	reviewer domain.ReviewerConfig,
	fields []ports.FieldSpec,
	citableText string,
) (domain.ReviewResult, error) {
	prompt := buildExtractionPrompt(reviewer.Prompt, fields, citableText)
	raw, err := e.client.generateJSON(ctx, "extract_fields", reviewer.Model, prompt, reviewer.Temperature)
	if err != nil {
		return domain.ReviewResult{}, err
	}

	var response extractionResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &response); err != nil {
		return domain.ReviewResult{}, fmt.Errorf("parse extraction json: %w", err)
	}

	result := domain.ReviewResult{
		ReviewerID: reviewer.ID,
		Data:       make(map[string]domain.FieldValue, len(fields)),
		Citations:  make(map[string][]int, len(fields)),
		Confidence: clampConfidence(response.Confidence),
		Reasoning:  response.Reasoning,
	}

	for _, field := range fields {
		rawValue, ok := response.Data[field.Name]
		if !ok {
			result.Data[field.Name] = domain.NullValue()
			continue
		}
		if err := checkFieldSchema(field, rawValue); err != nil {
			return domain.ReviewResult{}, err
		}
		var decoded any
		if err := json.Unmarshal(rawValue, &decoded); err != nil {
			return domain.ReviewResult{}, fmt.Errorf("decode field %s: %w", field.Name, err)
		}
		value, err := domain.ParseFieldValue(decoded)
		if err != nil {
			return domain.ReviewResult{}, fmt.Errorf("field %s: %w", field.Name, err)
		}
		result.Data[field.Name] = value

		if cited := response.Citations[field.Name]; len(cited) > 0 {
			result.Citations[field.Name] = cited
		}
	}
	return result, nil
}

// checkFieldSchema validates the raw answer against the field's JSON Schema
// fragment, when one is declared.
func checkFieldSchema(field ports.FieldSpec, rawValue json.RawMessage) error {
	if field.Schema == "" {
		return nil
	}
	validation, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(field.Schema),
		gojsonschema.NewBytesLoader(rawValue),
	)
	if err != nil {
		return fmt.Errorf("validate field %s schema: %w", field.Name, err)
	}
	if !validation.Valid() {
		return fmt.Errorf("field %s violates schema: %v", field.Name, validation.Errors())
	}
	return nil
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
