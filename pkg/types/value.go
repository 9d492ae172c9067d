package types

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the variants of the Value union.
type ValueKind string

// Value kinds. Exactly one scalar is populated per value; Null carries none.
const (
	KindNull   ValueKind = "null"
	KindNumber ValueKind = "number"
	KindText   ValueKind = "text"
	KindBool   ValueKind = "bool"
)

// Value is a tagged union holding one typed field value. The zero Value is
// the null value. Construct non-null values with NumberValue, TextValue, and
// BoolValue; the unexported fields make "exactly one scalar populated" a
// structural property rather than a runtime check.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	b    bool
}

// NullValue returns the null value, used for fields with no stored value.
func NullValue() Value { return Value{kind: KindNull} }

// NumberValue returns a numeric value (ratings).
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// TextValue returns a text value (select options and free text).
func TextValue(s string) Value { return Value{kind: KindText, str: s} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the populated variant. The zero Value reports KindNull.
func (v Value) Kind() ValueKind {
	if v.kind == "" {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether no scalar is populated.
func (v Value) IsNull() bool { return v.Kind() == KindNull }

// Number returns the numeric scalar and whether the value holds one.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// Text returns the text scalar and whether the value holds one.
func (v Value) Text() (string, bool) { return v.str, v.kind == KindText }

// Bool returns the boolean scalar and whether the value holds one.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Equal reports whether two values hold the same variant and scalar.
func (v Value) Equal(o Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// String renders the value for logs and error messages.
func (v Value) String() string {
	switch v.Kind() {
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindText:
		return fmt.Sprintf("%q", v.str)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	default:
		return "null"
	}
}

// MarshalJSON encodes the value as the bare JSON scalar (or null), so wire
// payloads read {"value": 4} rather than a wrapped object.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case KindNumber:
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a bare JSON scalar into the matching variant.
// JSON objects and arrays are rejected; the field system stores only the
// four primitive kinds.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch s := raw.(type) {
	case nil:
		*v = NullValue()
	case float64:
		*v = NumberValue(s)
	case string:
		*v = TextValue(s)
	case bool:
		*v = BoolValue(s)
	default:
		return fmt.Errorf("unsupported value type %T", raw)
	}
	return nil
}
