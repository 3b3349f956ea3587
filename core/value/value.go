// Package value provides the dynamic value that flows through pipelines.
// A Value is immutable: transformations always produce a new Value.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindDictionary
	KindRegexp
)

var kindNames = map[Kind]string{
	KindNull:       "null",
	KindBool:       "bool",
	KindInt:        "int",
	KindFloat:      "float",
	KindString:     "string",
	KindArray:      "array",
	KindDictionary: "dictionary",
	KindRegexp:     "regexp",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Value is a dynamically typed, immutable value.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	a    []Value
	d    *dict
	re   *regexp.Regexp
}

// dict keeps insertion order so serialized output is stable.
type dict struct {
	keys    []string
	entries map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Regexp wraps a compiled regular expression.
func Regexp(re *regexp.Regexp) Value {
	if re == nil {
		return Null()
	}
	return Value{kind: KindRegexp, re: re}
}

// Array wraps a list of values. The slice is copied.
func Array(items ...Value) Value {
	a := make([]Value, len(items))
	copy(a, items)
	return Value{kind: KindArray, a: a}
}

// Strings builds an array of string values.
func Strings(items []string) Value {
	a := make([]Value, len(items))
	for i, s := range items {
		a[i] = String(s)
	}
	return Value{kind: KindArray, a: a}
}

// Entry is a key/value pair used to build dictionaries.
type Entry struct {
	Key   string
	Value Value
}

// Dictionary builds an ordered dictionary. Later duplicate keys replace
// earlier ones but keep the original position.
func Dictionary(entries ...Entry) Value {
	d := &dict{entries: make(map[string]Value, len(entries))}
	for _, e := range entries {
		if _, exists := d.entries[e.Key]; !exists {
			d.keys = append(d.keys, e.Key)
		}
		d.entries[e.Key] = e.Value
	}
	return Value{kind: KindDictionary, d: d}
}

// FromAny converts decoded YAML/JSON data (and common Go scalars) into a Value.
// Map keys are sorted since Go maps carry no order.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Int(int64(t)), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Null(), fmt.Errorf("integer %d overflows int64", t)
		}
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Null(), fmt.Errorf("invalid number %q", t.String())
		}
		return Float(f), nil
	case string:
		return String(t), nil
	case []string:
		return Strings(t), nil
	case *regexp.Regexp:
		return Regexp(t), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			iv, err := FromAny(item)
			if err != nil {
				return Null(), fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, iv)
		}
		return Value{kind: KindArray, a: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			iv, err := FromAny(t[k])
			if err != nil {
				return Null(), fmt.Errorf("%s: %w", k, err)
			}
			entries = append(entries, Entry{Key: k, Value: iv})
		}
		return Dictionary(entries...), nil
	case map[any]any:
		converted := make(map[string]any, len(t))
		for k, item := range t {
			converted[fmt.Sprint(k)] = item
		}
		return FromAny(converted)
	default:
		return Null(), fmt.Errorf("unsupported value type %T", v)
	}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Len returns the length of strings (in runes), arrays and dictionaries.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len([]rune(v.s))
	case KindArray:
		return len(v.a)
	case KindDictionary:
		return len(v.d.keys)
	default:
		return 0
	}
}

// Keys returns dictionary keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindDictionary {
		return nil
	}
	keys := make([]string, len(v.d.keys))
	copy(keys, v.d.keys)
	return keys
}

// Field returns a dictionary entry.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindDictionary {
		return Null(), false
	}
	item, ok := v.d.entries[key]
	return item, ok
}

// Interface converts the value back into plain Go data.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindRegexp:
		return v.re.String()
	case KindArray:
		out := make([]any, len(v.a))
		for i, item := range v.a {
			out[i] = item.Interface()
		}
		return out
	case KindDictionary:
		out := make(map[string]any, len(v.d.keys))
		for _, k := range v.d.keys {
			out[k] = v.d.entries[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality. Regexps compare by source.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindRegexp:
		return v.re.String() == other.re.String()
	case KindArray:
		if len(v.a) != len(other.a) {
			return false
		}
		for i := range v.a {
			if !v.a[i].Equal(other.a[i]) {
				return false
			}
		}
		return true
	case KindDictionary:
		if len(v.d.keys) != len(other.d.keys) {
			return false
		}
		for _, k := range v.d.keys {
			o, ok := other.d.entries[k]
			if !ok || !v.d.entries[k].Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for logs and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindRegexp:
		return "/" + v.re.String() + "/"
	case KindArray:
		parts := make([]string, len(v.a))
		for i, item := range v.a {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindDictionary:
		parts := make([]string, len(v.d.keys))
		for i, k := range v.d.keys {
			parts[i] = strconv.Quote(k) + ": " + v.d.entries[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "unknown"
}

// MarshalJSON encodes the value, keeping dictionary order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.a {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindDictionary:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range v.d.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			b, err := v.d.entries[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v.Interface())
	}
}

// UnmarshalJSON decodes any JSON document. Integral numbers become ints and
// objects keep their document key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	decoded, err := decodeJSON(dec)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return FromAny(tok)
	}
	switch delim {
	case '[':
		items := make([]Value, 0)
		for dec.More() {
			item, err := decodeJSON(dec)
			if err != nil {
				return Null(), err
			}
			items = append(items, item)
		}
		if _, err := dec.Token(); err != nil {
			return Null(), err
		}
		return Value{kind: KindArray, a: items}, nil
	case '{':
		var entries []Entry
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return Null(), err
			}
			key, ok := kt.(string)
			if !ok {
				return Null(), fmt.Errorf("value: object key %v is not a string", kt)
			}
			item, err := decodeJSON(dec)
			if err != nil {
				return Null(), err
			}
			entries = append(entries, Entry{Key: key, Value: item})
		}
		if _, err := dec.Token(); err != nil {
			return Null(), err
		}
		return Dictionary(entries...), nil
	}
	return Null(), fmt.Errorf("value: unexpected JSON delimiter %q", delim)
}

// MarshalYAML encodes the value as a YAML node, keeping dictionary order.
func (v Value) MarshalYAML() (any, error) {
	return v.yamlNode()
}

func (v Value) yamlNode() (*yaml.Node, error) {
	switch v.kind {
	case KindArray:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.a {
			child, err := item.yamlNode()
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case KindDictionary:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.d.keys {
			child, err := v.d.entries[k].yamlNode()
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, child)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(v.Interface()); err != nil {
			return nil, err
		}
		return node, nil
	}
}
