package store

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMarshalPayload_Empty(t *testing.T) {
	for _, payload := range []map[string]any{nil, {}} {
		got, err := MarshalPayload(payload)
		if err != nil {
			t.Fatalf("MarshalPayload() failed: %v", err)
		}
		if got != "{}" {
			t.Errorf("MarshalPayload() = %q, want %q", got, "{}")
		}
	}
}

func TestMarshalPayload_SortedKeys(t *testing.T) {
	got, err := MarshalPayload(map[string]any{"name": "widget", "active": true, "quantity": 42})
	if err != nil {
		t.Fatalf("MarshalPayload() failed: %v", err)
	}
	expected := `{"active":true,"name":"widget","quantity":42}`
	if got != expected {
		t.Errorf("MarshalPayload() = %q, want %q", got, expected)
	}
}

func TestMarshalPayload_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalPayload(map[string]any{"html": "<script>alert('xss')</script>&"})
	if err != nil {
		t.Fatalf("MarshalPayload() failed: %v", err)
	}
	expected := `{"html":"<script>alert('xss')</script>&"}`
	if got != expected {
		t.Errorf("MarshalPayload() = %q, want %q", got, expected)
	}
}

func TestMarshalPayload_Unsupported(t *testing.T) {
	if _, err := MarshalPayload(map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("MarshalPayload() expected error for channel value")
	}
}

func TestUnmarshalPayload(t *testing.T) {
	tests := []struct {
		data string
		want map[string]any
	}{
		{"", map[string]any{}},
		{"{}", map[string]any{}},
		{"null", map[string]any{}},
		{`{"a":[1,"x",{"b":null}]}`, map[string]any{"a": []any{int64(1), "x", map[string]any{"b": nil}}}},
	}
	for _, tt := range tests {
		got, err := UnmarshalPayload(tt.data)
		if err != nil {
			t.Fatalf("UnmarshalPayload(%q) failed: %v", tt.data, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("UnmarshalPayload(%q) = %#v, want %#v", tt.data, got, tt.want)
		}
	}
}

func TestUnmarshalPayload_Invalid(t *testing.T) {
	for _, data := range []string{"{", "[1,2]", `"text"`, `{"a":1} {"b":2}`} {
		if _, err := UnmarshalPayload(data); err == nil {
			t.Errorf("UnmarshalPayload(%q) expected error", data)
		}
	}
}

func TestEncodeDecodeRecord_RoundTrip(t *testing.T) {
	rec := Record{
		"id":      "u1",
		"list":    []any{"a", int64(2), 2.5, []any{true}},
		"mapping": map[string]any{"inner": map[string]any{"deep": "yes"}},
	}
	key, data, err := EncodeRecord(rec)
	if err != nil {
		t.Fatalf("EncodeRecord() failed: %v", err)
	}
	if key != "u1" {
		t.Errorf("key = %q, want %q", key, "u1")
	}

	got, err := DecodeRecord(key, data)
	if err != nil {
		t.Fatalf("DecodeRecord() failed: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("round trip = %#v, want %#v", got, rec)
	}
}

func TestUnmarshalPayload_Numbers(t *testing.T) {
	got, err := UnmarshalPayload(`{"twitter_id":1234567890123456789,"n":3,"ratio":0.5,"exp":1e3,"huge":123456789012345678901234567890,"nested":{"ids":[9007199254740993]}}`)
	if err != nil {
		t.Fatalf("UnmarshalPayload() failed: %v", err)
	}
	want := map[string]any{
		"twitter_id": int64(1234567890123456789),
		"n":          int64(3),
		"ratio":      0.5,
		"exp":        float64(1000),
		"huge":       json.Number("123456789012345678901234567890"),
		"nested":     map[string]any{"ids": []any{int64(9007199254740993)}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UnmarshalPayload() = %#v, want %#v", got, want)
	}
}

func TestEncodeDecodeRecord_LargeIntegers(t *testing.T) {
	rec := Record{"id": "u1", "twitter_id": int64(1234567890123456789), "real_users": []any{int64(-9223372036854775808)}}
	key, data, err := EncodeRecord(rec)
	if err != nil {
		t.Fatalf("EncodeRecord() failed: %v", err)
	}
	expected := `{"real_users":[-9223372036854775808],"twitter_id":1234567890123456789}`
	if data != expected {
		t.Errorf("data = %q, want %q", data, expected)
	}

	got, err := DecodeRecord(key, data)
	if err != nil {
		t.Fatalf("DecodeRecord() failed: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("round trip = %#v, want %#v", got, rec)
	}
}
