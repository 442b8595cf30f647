package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MarshalPayload converts a payload to JSON TEXT for storage.
// HTML escaping is disabled so stored text matches the input verbatim.
func MarshalPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

// UnmarshalPayload parses stored JSON TEXT back into a payload.
func UnmarshalPayload(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}
	payload, err := DecodeObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// DecodeObject parses a JSON object. Uses UseNumber so integers above 2^53
// keep their exact value: integral numbers decode to int64, other numbers to
// float64, and integers outside the int64 range stay json.Number.
// A JSON null decodes to a nil map.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	for k, v := range obj {
		obj[k] = normalizeNumbers(v)
	}
	return obj, nil
}

// normalizeNumbers replaces json.Number values, recursing into objects and
// arrays.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if strings.ContainsAny(val.String(), ".eE") {
			if f, err := val.Float64(); err == nil {
				return f
			}
		}
		return val
	case map[string]any:
		for k, elem := range val {
			val[k] = normalizeNumbers(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = normalizeNumbers(elem)
		}
		return val
	default:
		return v
	}
}

// EncodeRecord splits rec and serializes its payload. It returns the
// normalized storage key and the payload text.
func EncodeRecord(rec Record) (key, data string, err error) {
	id, payload, err := Split(rec)
	if err != nil {
		return "", "", err
	}
	key, err = NormalizeID(id)
	if err != nil {
		return "", "", err
	}
	data, err = MarshalPayload(payload)
	if err != nil {
		return "", "", err
	}
	return key, data, nil
}

// DecodeRecord parses payload text and re-attaches id.
func DecodeRecord(id, data string) (Record, error) {
	payload, err := UnmarshalPayload(data)
	if err != nil {
		return nil, err
	}
	return Join(id, payload), nil
}
