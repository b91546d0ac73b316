package handlers

import (
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"wl-portal/internal/models"
	"wl-portal/internal/service"
)

var (
	submitSchema = mustSchema(submitSchemaDoc())
	reviewSchema = mustSchema(map[string]any{
		"type":                 "object",
		"required":             []string{"judgments"},
		"additionalProperties": false,
		"properties": map[string]any{
			"judgments": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": []string{"boolean", "null"}},
			},
			"aux_check": map[string]any{"type": "string", "maxLength": 32},
			"notes":     map[string]any{"type": "string"},
		},
	})
)

// submitSchemaDoc only checks shape; required answers are reported by the
// service in questionnaire order. Numeric answers may be sent as integers.
func submitSchemaDoc() map[string]any {
	answers := map[string]any{}
	for _, key := range models.AnswerKeys {
		if slices.Contains(models.NumericAnswerKeys, key) {
			answers[key] = map[string]any{"type": []string{"string", "integer"}, "minimum": 0}
			continue
		}
		answers[key] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":                 "object",
		"required":             []string{"answers"},
		"additionalProperties": false,
		"properties": map[string]any{
			"answers": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           answers,
			},
		},
	}
}

func mustSchema(doc map[string]any) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return schema
}

// decodeBody validates body against schema and decodes it into dest.
// Schema violations are reported as a ValidationError on the first offending field.
func decodeBody(schema *gojsonschema.Schema, body []byte, dest any) error {
	if err := validateBody(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &service.ValidationError{Field: "body", Message: "is not valid JSON"}
	}
	return nil
}

// decodeSubmit is decodeBody for the questionnaire, with integer answers
// rewritten as their decimal string
func decodeSubmit(body []byte, dest *SubmitRequest) error {
	if err := validateBody(submitSchema, body); err != nil {
		return err
	}
	body, err := numericAnswersAsStrings(body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &service.ValidationError{Field: "body", Message: "is not valid JSON"}
	}
	return nil
}

func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &service.ValidationError{Field: "body", Message: "is not valid JSON"}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return &service.ValidationError{Field: schemaField(first), Message: first.Description()}
	}
	return nil
}

// numericAnswersAsStrings expects a body that already passed submitSchema
func numericAnswersAsStrings(body []byte) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &service.ValidationError{Field: "body", Message: "is not valid JSON"}
	}
	var answers map[string]json.RawMessage
	if err := json.Unmarshal(doc["answers"], &answers); err != nil {
		return nil, &service.ValidationError{Field: "answers", Message: "must be an object"}
	}

	changed := false
	for _, key := range models.NumericAnswerKeys {
		raw, ok := answers[key]
		if !ok || len(raw) == 0 || raw[0] == '"' {
			continue
		}
		n, ok := new(big.Rat).SetString(string(raw))
		if !ok || !n.IsInt() {
			return nil, &service.ValidationError{Field: "answers." + key, Message: "must be a whole number"}
		}
		answers[key], _ = json.Marshal(n.Num().String())
		changed = true
	}
	if !changed {
		return body, nil
	}

	encoded, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	doc["answers"] = encoded
	return json.Marshal(doc)
}

// schemaField names the offending property, e.g. answers.fair_play
func schemaField(e gojsonschema.ResultError) string {
	field := e.Field()
	if prop, ok := e.Details()["property"].(string); ok && prop != "" {
		if field == "(root)" {
			return prop
		}
		return field + "." + prop
	}
	return strings.TrimPrefix(field, "(root).")
}
