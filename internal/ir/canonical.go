package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
)

// Member is one key/value pair of a canonical Object.
type Member struct {
	Key   string
	Value any
}

// Object is a JSON object whose members are held in canonical key order.
type Object []Member

// MarshalJSON implements json.Marshaler with canonical output.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Canonicalize converts v into a plain JSON tree in which every object is an
// Object with keys sorted by UTF-16 code units, the ordering JavaScript's
// default sort produces. Lists keep their order, primitives pass through.
//
// Struct values are first rendered through their JSON tags, so fields
// dropped by omitempty are absent from the result. An explicit null stays.
//
// The returned tree contains only Object, []any, json.Number, string, bool
// and nil.
func Canonicalize(v any) (any, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}
	return canonicalizeTree(tree)
}

// MarshalCanonical produces the canonical JSON serialization of v.
// CRITICAL: This is the ONLY serialization that may be used for
// content-addressed identity.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units, at every depth
//  2. No HTML escaping (< > & are NOT escaped)
//  3. U+2028 and U+2029 are emitted literally
//  4. Numbers use the shortest round-trip form (1.50 becomes 1.5)
func MarshalCanonical(v any) ([]byte, error) {
	c, err := Canonicalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toTree renders v to a generic JSON tree with numbers kept as json.Number.
func toTree(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, json.Number, Object:
		return v, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return tree, nil
}

func canonicalizeTree(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool:
		return val, nil
	case json.Number:
		return normalizeNumber(val)
	case Object:
		out := make(map[string]any, len(val))
		for _, m := range val {
			out[m.Key] = m.Value
		}
		return canonicalizeTree(out)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			c, err := canonicalizeTree(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysUTF16)

		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			c, err := canonicalizeTree(val[k])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj = append(obj, Member{Key: k, Value: c})
		}
		return obj, nil
	default:
		// Anything else (typed slices, nested structs) goes back through JSON.
		tree, err := toTree(val)
		if err != nil {
			return nil, err
		}
		return canonicalizeTree(tree)
	}
}

// normalizeNumber rewrites n in the shortest round-trip form json.Marshal
// uses for float64, which matches ECMAScript number serialization.
func normalizeNumber(n json.Number) (json.Number, error) {
	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("invalid number %q: %w", n, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number %q", n)
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return json.Number(b), nil
}

// compareKeysUTF16 orders strings by UTF-16 code units.
// CRITICAL: Go's native string comparison is UTF-8 byte order, which differs
// for characters above U+FFFF.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(string(val))
	case string:
		s, err := marshalCanonicalString(val)
		if err != nil {
			return err
		}
		buf.Write(s)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := marshalCanonicalString(m.Key)
			if err != nil {
				return fmt.Errorf("key %q: %w", m.Key, err)
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, m.Value); err != nil {
				return fmt.Errorf("value for key %q: %w", m.Key, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// marshalCanonicalString escapes only quote, backslash and control
// characters, matching JSON.stringify.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(s); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline
	result := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes Go's encoder
// emits back into literal characters. Escaped backslashes (\\u2028 in the
// output) are copied through untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+5 < len(data) && string(data[i+2:i+5]) == "202" {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		// Any other escape pair, including \\, is copied whole.
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
