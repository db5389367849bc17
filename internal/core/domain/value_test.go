package domain

import (
	"encoding/json"
	"testing"
)

func TestFieldValueEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b FieldValue
		want bool
	}{
		{"equal strings", StringValue("A"), StringValue("A"), true},
		{"different strings", StringValue("A"), StringValue("B"), false},
		{"equal numbers", NumberValue(42), NumberValue(42), true},
		{"number vs string", NumberValue(42), StringValue("42"), false},
		{"nulls", NullValue(), NullValue(), true},
		{"bools", BoolValue(true), BoolValue(true), true},
		{"equal lists", ListValue(StringValue("a"), NumberValue(1)), ListValue(StringValue("a"), NumberValue(1)), true},
		{"list order matters", ListValue(StringValue("a"), StringValue("b")), ListValue(StringValue("b"), StringValue("a")), false},
		{"list length differs", ListValue(StringValue("a")), ListValue(StringValue("a"), StringValue("a")), false},
	}
	for _, tc := range cases {
		if got := tc.a.Equal(tc.b); got != tc.want {
			t.Fatalf("%s: Equal() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseFieldValueRejectsObjects(t *testing.T) {
	if _, err := ParseFieldValue(map[string]any{"k": "v"}); err == nil {
		t.Fatalf("expected error for object value")
	}
}

func TestFieldValueJSONRoundTrip(t *testing.T) {
	original := ListValue(StringValue("a"), NumberValue(2.5), NullValue(), BoolValue(true))
	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded FieldValue
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !original.Equal(decoded) {
		t.Fatalf("round trip mismatch: %+v vs %+v", original, decoded)
	}
}
