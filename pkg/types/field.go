package types

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// Field types. A field's type determines which Value variant it stores and
// which config knobs apply.
const (
	FieldTypeRating  = "rating"
	FieldTypeSelect  = "select"
	FieldTypeBoolean = "boolean"
	FieldTypeText    = "text"
)

// validFieldTypes is the set of recognized field types.
var validFieldTypes = map[string]bool{
	FieldTypeRating:  true,
	FieldTypeSelect:  true,
	FieldTypeBoolean: true,
	FieldTypeText:    true,
}

// IsValidFieldType reports whether the given string is a recognized field type.
func IsValidFieldType(ft string) bool {
	return validFieldTypes[ft]
}

// FieldConfig holds the type-specific configuration of a field. Only the
// knobs matching the field's type may be set; ValidateConfig enforces the
// shape match.
type FieldConfig struct {
	RatingMax int      `json:"rating_max,omitempty"` // rating: highest allowed value (>= 1)
	Options   []string `json:"options,omitempty"`    // select: non-empty ordered option list
	MaxLength int      `json:"max_length,omitempty"` // text: maximum length in runes (>= 1)
}

// Field is a user-defined, typed attribute definition owned by a collection.
type Field struct {
	FieldID      string      `json:"field_id"`
	CollectionID string      `json:"collection_id"`
	Name         string      `json:"name"` // unique within collection, case-insensitive
	Type         string      `json:"type"` // one of the FieldType constants
	Config       FieldConfig `json:"config"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ValidateConfig checks that the config shape matches the field's type:
// rating needs a positive RatingMax, select a non-empty option list with no
// blank or duplicate entries, text a positive MaxLength, and boolean accepts
// no config at all. Knobs belonging to another type must be unset.
func (f *Field) ValidateConfig() error {
	if f.Name == "" {
		return NewValidationError("field name must not be empty")
	}
	if !IsValidFieldType(f.Type) {
		return NewValidationError("unknown field type %q", f.Type)
	}

	detail := map[string]string{}
	switch f.Type {
	case FieldTypeRating:
		if f.Config.RatingMax < 1 {
			detail["rating_max"] = "must be at least 1"
		}
		if len(f.Config.Options) > 0 {
			detail["options"] = "not allowed for rating fields"
		}
		if f.Config.MaxLength != 0 {
			detail["max_length"] = "not allowed for rating fields"
		}
	case FieldTypeSelect:
		if len(f.Config.Options) == 0 {
			detail["options"] = "select fields need at least one option"
		}
		seen := make(map[string]bool, len(f.Config.Options))
		for _, opt := range f.Config.Options {
			if opt == "" {
				detail["options"] = "options must not be empty strings"
				break
			}
			if seen[opt] {
				detail["options"] = fmt.Sprintf("duplicate option %q", opt)
				break
			}
			seen[opt] = true
		}
		if f.Config.RatingMax != 0 {
			detail["rating_max"] = "not allowed for select fields"
		}
		if f.Config.MaxLength != 0 {
			detail["max_length"] = "not allowed for select fields"
		}
	case FieldTypeBoolean:
		if f.Config.RatingMax != 0 || len(f.Config.Options) > 0 || f.Config.MaxLength != 0 {
			detail["config"] = "boolean fields take no configuration"
		}
	case FieldTypeText:
		if f.Config.MaxLength < 1 {
			detail["max_length"] = "must be at least 1"
		}
		if f.Config.RatingMax != 0 {
			detail["rating_max"] = "not allowed for text fields"
		}
		if len(f.Config.Options) > 0 {
			detail["options"] = "not allowed for text fields"
		}
	}

	if len(detail) > 0 {
		return &ValidationError{
			Message: fmt.Sprintf("config does not match field type %q", f.Type),
			Fields:  detail,
		}
	}
	return nil
}

// ValidateValue checks a candidate value against the field's type and config.
// Null is always accepted and clears the stored value. Out-of-range values
// are rejected, never clamped.
func (f *Field) ValidateValue(v Value) error {
	if v.IsNull() {
		return nil
	}
	switch f.Type {
	case FieldTypeRating:
		n, ok := v.Number()
		if !ok {
			return NewValidationError("rating field wants a number, got %s", v)
		}
		if n != math.Trunc(n) {
			return NewValidationError("rating must be a whole number, got %s", v)
		}
		if n < 0 || n > float64(f.Config.RatingMax) {
			return NewValidationError("rating must be between 0 and %d, got %s", f.Config.RatingMax, v)
		}
	case FieldTypeSelect:
		s, ok := v.Text()
		if !ok {
			return NewValidationError("select field wants a string, got %s", v)
		}
		for _, opt := range f.Config.Options {
			if opt == s {
				return nil
			}
		}
		return NewValidationError("%q is not one of the configured options", s)
	case FieldTypeBoolean:
		if _, ok := v.Bool(); !ok {
			return NewValidationError("boolean field wants true or false, got %s", v)
		}
	case FieldTypeText:
		s, ok := v.Text()
		if !ok {
			return NewValidationError("text field wants a string, got %s", v)
		}
		if utf8.RuneCountInString(s) > f.Config.MaxLength {
			return NewValidationError("text exceeds the %d character limit", f.Config.MaxLength)
		}
	default:
		return NewValidationError("unknown field type %q", f.Type)
	}
	return nil
}

// ValueKindFor returns the Value variant a field of the given type stores.
func ValueKindFor(fieldType string) ValueKind {
	switch fieldType {
	case FieldTypeRating:
		return KindNumber
	case FieldTypeSelect, FieldTypeText:
		return KindText
	case FieldTypeBoolean:
		return KindBool
	default:
		return KindNull
	}
}
