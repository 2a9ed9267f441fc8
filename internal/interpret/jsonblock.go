package interpret

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DecodeObjectArray decodes the JSON array that directly follows a label of
// section marker, skipping whitespace and a markdown code fence. Every label
// occurrence is tried and the first one followed by an array wins, so an
// echoed prompt header does not hide the real answer. Only the object
// elements are kept. A missing label, a missing array or a decode error all
// yield an empty, non-nil slice.
func DecodeObjectArray(text string, marker Section) []map[string]any {
	out := []map[string]any{}

	for _, end := range defaultGrammar.labelEnds(text, marker) {
		items, ok := decodeArray(text[end:])
		if !ok {
			continue
		}
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	}
	return out
}

func decodeArray(s string) ([]any, bool) {
	rest := skipFence(s)
	if !strings.HasPrefix(rest, "[") {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(rest))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	items, ok := v.([]any)
	return items, ok
}

// DecodeObject pulls the outermost JSON object out of a reply that may wrap
// it in prose or a code fence.
func DecodeObject(text string) (map[string]any, bool) {
	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first < 0 || last <= first {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(text[first : last+1]))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// StringField renders obj[key] as a string. Numbers and booleans are
// formatted, nested values are re-encoded, nulls and missing keys are "".
func StringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// FloatField reads obj[key] as a number, accepting numeric strings. The
// second result is false when the value is absent or not numeric.
func FloatField(obj map[string]any, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		return f, err == nil
	}
	return 0, false
}

// StringsField reads obj[key] as a list of strings, dropping non-scalars.
func StringsField(obj map[string]any, key string) []string {
	items, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		case json.Number:
			out = append(out, v.String())
		}
	}
	return out
}

func skipFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
		s = strings.TrimSpace(s)
	}
	return s
}
