package domain

import (
	"encoding/json"
	"fmt"
)

type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

// FieldValue is the closed value type reviewers may answer with:
// string | number | bool | null | ordered list. Vote counting uses
// structural equality over this type, never serialized-form comparison.
type FieldValue struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []FieldValue
}

func NullValue() FieldValue            { return FieldValue{Kind: KindNull} }
func StringValue(s string) FieldValue  { return FieldValue{Kind: KindString, Str: s} }
func NumberValue(n float64) FieldValue { return FieldValue{Kind: KindNumber, Num: n} }
func BoolValue(b bool) FieldValue      { return FieldValue{Kind: KindBool, Bool: b} }
func ListValue(items ...FieldValue) FieldValue {
	return FieldValue{Kind: KindList, List: items}
}

func (v FieldValue) IsNull() bool { return v.Kind == KindNull }

// Equal reports structural equality. Lists compare element-wise in order.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ParseFieldValue converts a decoded JSON value into the closed type.
// Objects and other shapes are rejected at the boundary.
func ParseFieldValue(raw any) (FieldValue, error) {
	switch t := raw.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(t), nil
	case float64:
		return NumberValue(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return FieldValue{}, fmt.Errorf("parse numeric value %q: %w", t.String(), err)
		}
		return NumberValue(n), nil
	case bool:
		return BoolValue(t), nil
	case []any:
		items := make([]FieldValue, 0, len(t))
		for _, el := range t {
			item, err := ParseFieldValue(el)
			if err != nil {
				return FieldValue{}, err
			}
			items = append(items, item)
		}
		return FieldValue{Kind: KindList, List: items}, nil
	default:
		return FieldValue{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.asAny())
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseFieldValue(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v FieldValue) asAny() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindList:
		out := make([]any, 0, len(v.List))
		for _, item := range v.List {
			out = append(out, item.asAny())
		}
		return out
	default:
		return nil
	}
}

// String renders a human-readable form used in conflict reasons and stored
// extraction text.
func (v FieldValue) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		b, _ := json.Marshal(v.Num)
		return string(b)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindList:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return ""
	}
}
