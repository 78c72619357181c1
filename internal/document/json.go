package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseJSON decodes body into generic values. Numbers stay json.Number so large
// identifiers survive.
func ParseJSON(body []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return value, nil
}

// Lookup walks a dotted path ("data.items.0.title"). Numeric segments index arrays.
// An empty path returns input.
func Lookup(input any, dottedPath string) any {
	dottedPath = strings.TrimSpace(dottedPath)
	if dottedPath == "" {
		return input
	}

	current := input
	for _, segment := range strings.Split(dottedPath, ".") {
		switch node := current.(type) {
		case map[string]any:
			current = node[segment]
		case Object:
			current = node[segment]
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil
			}
			current = node[index]
		default:
			return nil
		}
	}
	return current
}

// Object is a decoded JSON object usable wherever an attribute node is expected.
type Object map[string]any

func AsObject(input any) (Object, bool) {
	switch value := input.(type) {
	case map[string]any:
		return Object(value), true
	case Object:
		return value, true
	default:
		return nil, false
	}
}

// Attr looks name up as a dotted path and renders scalars as strings.
func (o Object) Attr(name string) (string, bool) {
	return AsString(Lookup(o, name))
}

func AsString(input any) (string, bool) {
	switch value := input.(type) {
	case string:
		return value, true
	case json.Number:
		return value.String(), true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case int:
		return strconv.Itoa(value), true
	case int64:
		return strconv.FormatInt(value, 10), true
	case bool:
		return strconv.FormatBool(value), true
	default:
		return "", false
	}
}

func AsFloat(input any) (float64, bool) {
	switch value := input.(type) {
	case json.Number:
		parsed, err := value.Float64()
		return parsed, err == nil
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func AsInt(input any) (int, bool) {
	value, ok := AsFloat(input)
	if !ok {
		return 0, false
	}
	return int(value), true
}

// AsStrings flattens a scalar or an array of scalars. Objects inside arrays are
// read through field when it is non-empty.
func AsStrings(input any, field string) []string {
	switch value := input.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if field != "" {
				item = Lookup(item, field)
			}
			if text, ok := AsString(item); ok && strings.TrimSpace(text) != "" {
				out = append(out, strings.TrimSpace(text))
			}
		}
		return out
	default:
		if field != "" {
			value = Lookup(value, field)
		}
		if text, ok := AsString(value); ok && strings.TrimSpace(text) != "" {
			return []string{strings.TrimSpace(text)}
		}
		return nil
	}
}
