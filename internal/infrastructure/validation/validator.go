// Package validation decodes and validates raw platform records into the
// typed wire records the sync engines consume.
package validation

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

// SchemaValidator validates raw platform JSON against the wire record
// schemas. A failed record is reported as issues and skipped upstream; it is
// never fatal to the batch.
type SchemaValidator struct {
	validate *validator.Validate
}

// NewSchemaValidator creates a SchemaValidator with JSON tag names used for
// field names in issues.
func NewSchemaValidator() *SchemaValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &SchemaValidator{validate: v}
}

// ValidateOrder validates a raw order record. A decodable record is returned
// even when issues are found: the engines still count its remote ID as
// observed so reconciliation never deletes the local row.
func (s *SchemaValidator) ValidateOrder(raw json.RawMessage) (*domain.OrderRecord, []domain.ValidationIssue) {
	var record domain.OrderRecord
	if issues := s.decode(raw, &record); issues != nil {
		return nil, issues
	}
	record.Raw = raw
	return &record, s.check(&record)
}

// ValidateProduct validates a raw product record
func (s *SchemaValidator) ValidateProduct(raw json.RawMessage) (*domain.ProductRecord, []domain.ValidationIssue) {
	var record domain.ProductRecord
	if issues := s.decode(raw, &record); issues != nil {
		return nil, issues
	}
	record.Raw = raw
	return &record, s.check(&record)
}

// ValidateVariation validates a raw variation record
func (s *SchemaValidator) ValidateVariation(raw json.RawMessage) (*domain.VariationRecord, []domain.ValidationIssue) {
	var record domain.VariationRecord
	if issues := s.decode(raw, &record); issues != nil {
		return nil, issues
	}
	record.Raw = raw
	return &record, s.check(&record)
}

// ValidateReview validates a raw review record
func (s *SchemaValidator) ValidateReview(raw json.RawMessage) (*domain.ReviewRecord, []domain.ValidationIssue) {
	var record domain.ReviewRecord
	if issues := s.decode(raw, &record); issues != nil {
		return nil, issues
	}
	record.Raw = raw
	return &record, s.check(&record)
}

// decode unmarshals the raw record, converting decode failures into issues
func (s *SchemaValidator) decode(raw json.RawMessage, target any) []domain.ValidationIssue {
	if len(raw) == 0 {
		return []domain.ValidationIssue{{Field: "", Message: "Empty record"}}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return []domain.ValidationIssue{{Field: "", Message: "Malformed JSON: " + err.Error()}}
	}
	return nil
}

// check runs struct validation, converting validator errors into issues
func (s *SchemaValidator) check(record any) []domain.ValidationIssue {
	err := s.validate.Struct(record)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError only happens for non-struct input
		return []domain.ValidationIssue{{Field: "", Message: err.Error()}}
	}

	issues := make([]domain.ValidationIssue, 0, len(validationErrors))
	for _, e := range validationErrors {
		issues = append(issues, domain.ValidationIssue{
			Field:   e.Field(),
			Message: issueMessage(e),
		})
	}
	return issues
}

// issueMessage returns a human-readable message for one field error
func issueMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	default:
		return "Invalid value"
	}
}

var _ domain.RecordValidator = (*SchemaValidator)(nil)
