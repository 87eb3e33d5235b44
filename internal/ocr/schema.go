package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildHintSchema returns the JSON-Schema (draft 2020-12 subset) that
// backend-provided structured hints must satisfy before they are trusted.
func BuildHintSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"store_name":   map[string]any{"type": "string", "minLength": 1},
			"total_amount": map[string]any{"type": "integer", "minimum": 0},
			"date":         map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"time":         map[string]any{"type": "string", "pattern": `^\d{2}:\d{2}:\d{2}$`},
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// sanitizeHints drops the whole hint set when it fails schema validation.
// A backend that ships one malformed field is not trusted for the others;
// the independent parser covers the gap.
func sanitizeHints(h Hints, backend string, logger *slog.Logger) Hints {
	data, err := json.Marshal(h)
	if err != nil {
		return Hints{}
	}
	if err := ValidateJSONAgainstSchema(BuildHintSchema(), data); err != nil {
		if logger != nil {
			logger.Warn("ocr.hints.invalid", "backend", backend, "error", err)
		}
		return Hints{}
	}
	return h
}
