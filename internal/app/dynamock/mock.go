package dynamock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultMethod = "GET"
	defaultStatus = 200
)

// Mock is a single registered route definition in canonical form: method
// uppercased, path normalized, status and headers defaulted. Its JSON shape
// is also the snapshot element shape.
type Mock struct {
	Path     string            `json:"path"`
	Method   string            `json:"method"`
	Status   int               `json:"status"`
	Response json.RawMessage   `json:"response"`
	Headers  map[string]string `json:"headers"`
}

// Key returns the identity used to index mocks. Two registrations with the
// same key overwrite each other.
func (m Mock) Key() string {
	return m.Method + " " + m.Path
}

// NormalizePath maps the empty path to "/" and prefixes a missing leading
// slash. Idempotent.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// mockRecord is the permissive decode form shared by registration bodies and
// snapshot files. Status and header values may arrive with the wrong JSON
// type; toMock coerces them.
type mockRecord struct {
	Path     string                 `json:"path"`
	Method   string                 `json:"method"`
	Status   interface{}            `json:"status"`
	Response json.RawMessage        `json:"response"`
	Headers  map[string]interface{} `json:"headers"`
}

func (r mockRecord) toMock() Mock {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = defaultMethod
	}

	headers := make(map[string]string, len(r.Headers))
	for name, value := range r.Headers {
		headers[name] = coerceString(value)
	}

	return Mock{
		Path:     NormalizePath(r.Path),
		Method:   method,
		Status:   coerceStatus(r.Status),
		Response: r.Response,
		Headers:  headers,
	}
}

// coerceStatus accepts whatever the snapshot or the client sent as a status
// code and falls back to 200 for anything absent or non-numeric.
func coerceStatus(v interface{}) int {
	switch status := v.(type) {
	case float64:
		if s := int(status); s != 0 {
			return s
		}
	case string:
		if s, err := strconv.Atoi(strings.TrimSpace(status)); err == nil && s != 0 {
			return s
		}
	case json.Number:
		if s, err := status.Int64(); err == nil && s != 0 {
			return int(s)
		}
	}
	return defaultStatus
}

func coerceString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// responseIsStructured reports whether the stored response is a JSON object
// or array, which is rendered as JSON; everything else is rendered as text.
func responseIsStructured(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// responseText renders a non-structured response value as the raw text a
// client should receive: JSON strings are unquoted, other scalars are their
// literal form.
func responseText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
