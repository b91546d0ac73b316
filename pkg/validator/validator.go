package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FieldError describes the first field that failed validation
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ValidateStruct validates a struct based on validate tags.
// Fields are checked in declaration order and the first failure is returned,
// named after the field's json tag when present.
//
// Supported rules: required (non-empty after trimming), uint (non-negative
// integer, empty allowed), max=N (at most N characters).
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return errors.New("not a struct")
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}

		name := fieldName(field)
		for _, rule := range strings.Split(tag, ",") {
			if err := validateField(name, v.Field(i), strings.TrimSpace(rule)); err != nil {
				return err
			}
		}
	}

	return nil
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// validateField validates a single field based on a rule
func validateField(name string, value reflect.Value, rule string) error {
	if value.Kind() != reflect.String {
		if rule == "required" && value.IsZero() {
			return &FieldError{Field: name, Message: "is required"}
		}
		return nil
	}

	s := value.String()
	switch {
	case rule == "required":
		return ValidateRequired(name, s)
	case rule == "uint":
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return ValidateUint(name, s)
	case strings.HasPrefix(rule, "max="):
		maxLen, err := strconv.Atoi(strings.TrimPrefix(rule, "max="))
		if err != nil {
			return fmt.Errorf("invalid rule %q on %s", rule, name)
		}
		return ValidateMaxLength(name, s, maxLen)
	}
	return nil
}

// ValidateRequired validates that a field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidateUint validates that a field holds a non-negative integer
func ValidateUint(field, value string) error {
	if _, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32); err != nil {
		return &FieldError{Field: field, Message: "must be a non-negative whole number"}
	}
	return nil
}

// ValidateMaxLength validates that a field has at most maxLen characters
func ValidateMaxLength(field, value string, maxLen int) error {
	if utf8.RuneCountInString(value) > maxLen {
		return &FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxLen)}
	}
	return nil
}

// SanitizeString sanitizes a string by removing potentially dangerous characters
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
