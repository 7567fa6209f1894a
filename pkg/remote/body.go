package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Body is a provider response payload: either a JSON document or raw text.
// The kind is decided once when the response is read.
type Body struct {
	raw    []byte
	isJSON bool
}

type Result struct {
	Status int
	Data   Body
}

// NewBody classifies payload. Empty or invalid JSON is kept as text.
func NewBody(payload []byte) Body {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return Body{raw: trimmed, isJSON: true}
	}
	return Body{raw: payload}
}

func (b Body) IsJSON() bool {
	return b.isJSON
}

func (b Body) Decode(v any) error {
	if !b.isJSON {
		return fmt.Errorf("body is not json: %q", snippet(b.raw, 80))
	}
	return json.Unmarshal(b.raw, v)
}

// Field looks up a top-level string field. Missing keys, non-string values
// and raw bodies all return "".
func (b Body) Field(key string) string {
	if !b.isJSON {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b.raw, &obj); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(obj[key], &s); err != nil {
		return ""
	}
	return s
}

func (b Body) MarshalJSON() ([]byte, error) {
	if b.isJSON {
		return b.raw, nil
	}
	if b.raw == nil {
		return []byte("null"), nil
	}
	return json.Marshal(string(b.raw))
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
