package ollama

import (
	"fmt"
	"strings"

	"github.com/citetrace/citetrace/internal/core/ports"
)

func buildExtractionPrompt(systemPrompt string, fields []ports.FieldSpec, citableText string) string {
	var fieldList strings.Builder
	for _, field := range fields {
		if field.Description != "" {
			fieldList.WriteString(fmt.Sprintf("- %s: %s\n", field.Name, field.Description))
		} else {
			fieldList.WriteString(fmt.Sprintf("- %s\n", field.Name))
		}
	}

	header := systemPrompt
	if strings.TrimSpace(header) == "" {
		header = "You are a careful data extractor for scientific documents."
	}

	return fmt.Sprintf(`%s

Extract the fields below from the document. Every line of the document starts
with a bracketed chunk index like [12]; cite the chunk indices that support
each value.

Return a strict JSON object with keys:
data (object mapping field name to value; use null when the document does not state the field),
citations (object mapping field name to array of integer chunk indices),
confidence (number from 0 to 100),
reasoning (string).
Values must be strings, numbers, booleans, nulls or flat arrays of those.
No markdown, no extra keys.

Fields:
%s
Document:
%s`, header, fieldList.String(), citableText)
}

func buildMatchPrompt(extractedText, sourceText, fieldContext string) string {
	return fmt.Sprintf(`You verify that an extracted value is supported by its cited source text.

Field: %s
Extracted value:
%s

Cited source text:
%s

Return a strict JSON object with keys:
isValid (boolean: true only when the source text supports the value),
confidence (number from 0 to 100),
matchType (one of "exact", "paraphrase", "semantic", "weak", "no-match"),
reasoning (string),
issues (array of strings, empty when none).
No markdown, no extra keys.`, fieldContext, extractedText, sourceText)
}
