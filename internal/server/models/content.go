package models

import "encoding/json"

// Content is the structured payload of a Document: a JSON-like map produced by
// the generator or loaded from storage. Historic payloads are loosely shaped,
// so readers go through the tolerant accessors below instead of indexing keys
// directly.
type Content map[string]any

// DecodeContent parses raw JSON into Content. Older documents stored the
// markdown body as a bare JSON string; those are wrapped under the "markdown"
// key. Malformed or non-object payloads decode to nil rather than failing, so
// callers can treat them as absent.
func DecodeContent(raw []byte) Content {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	switch value := v.(type) {
	case string:
		if value == "" {
			return nil
		}
		return Content{"markdown": value}
	case map[string]any:
		return Content(value)
	default:
		return nil
	}
}

// Text extracts the document body, reading the "markdown", "text" and
// "content" fields in that priority order. Non-string values and missing
// fields yield "".
func (c Content) Text() string {
	for _, key := range []string{"markdown", "text", "content"} {
		if s, ok := c[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Number returns the numeric value stored under key, if any. JSON numbers
// decode as float64; integers stored by older producers are accepted too.
func (c Content) Number(key string) (float64, bool) {
	switch n := c[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// String returns the string value stored under key, or "".
func (c Content) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// IsEmpty reports whether the content carries no usable data: no extractable
// text and no non-empty values.
func (c Content) IsEmpty() bool {
	if len(c) == 0 {
		return true
	}
	if c.Text() != "" {
		return false
	}
	for _, v := range c {
		switch value := v.(type) {
		case string:
			if value != "" {
				return false
			}
		case nil:
		case map[string]any:
			if len(value) > 0 {
				return false
			}
		case []any:
			if len(value) > 0 {
				return false
			}
		default:
			// numbers, bools
			return false
		}
	}
	return true
}

// Clone returns a deep, independent copy. Mutating the copy never affects the
// original.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = cloneValue(item)
		}
		return out
	case Content:
		return map[string]any(value.Clone())
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	default:
		// scalars are copied by value
		return value
	}
}
