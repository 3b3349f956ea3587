package value

import (
	"fmt"
	"math"
	"regexp"
)

// ConversionError reports that a value does not have the requested shape.
type ConversionError struct {
	Want Kind
	Got  Kind
	// Detail is optional extra context, e.g. a regexp compile failure.
	Detail string
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func mismatch(want Kind, v Value) error {
	return &ConversionError{Want: want, Got: v.kind}
}

// AsString returns the string payload.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", mismatch(KindString, v)
	}
	return v.s, nil
}

// AsBool returns the bool payload.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, mismatch(KindBool, v)
	}
	return v.b, nil
}

// AsInt returns the integer payload. Floats without a fractional part convert.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindFloat:
		if v.f != math.Trunc(v.f) {
			return 0, &ConversionError{Want: KindInt, Got: KindFloat, Detail: "has fractional part"}
		}
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
		if v.f < math.MinInt64 || v.f >= math.MaxInt64 {
			return 0, &ConversionError{Want: KindInt, Got: KindFloat, Detail: "out of range"}
		}
		return int64(v.f), nil
	}
	return 0, mismatch(KindInt, v)
}

// AsUint returns a non-negative integer, for widths and counts.
func (v Value) AsUint() (int, error) {
	i, err := v.AsInt()
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, &ConversionError{Want: KindInt, Got: KindInt, Detail: "negative"}
	}
	if i > math.MaxInt32 {
		return 0, &ConversionError{Want: KindInt, Got: KindInt, Detail: "too large"}
	}
	return int(i), nil
}

// AsFloat returns the numeric payload as float64.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	}
	return 0, mismatch(KindFloat, v)
}

// AsArray returns a copy of the array items.
func (v Value) AsArray() ([]Value, error) {
	if v.kind != KindArray {
		return nil, mismatch(KindArray, v)
	}
	out := make([]Value, len(v.a))
	copy(out, v.a)
	return out, nil
}

// AsStrings returns the array items as strings.
func (v Value) AsStrings() ([]string, error) {
	items, err := v.AsArray()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, err := item.AsString()
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// AsDictionary returns a copy of the dictionary entries in order.
func (v Value) AsDictionary() ([]Entry, error) {
	if v.kind != KindDictionary {
		return nil, mismatch(KindDictionary, v)
	}
	out := make([]Entry, len(v.d.keys))
	for i, k := range v.d.keys {
		out[i] = Entry{Key: k, Value: v.d.entries[k]}
	}
	return out, nil
}

// AsRegexp returns the regexp payload. Strings are compiled.
func (v Value) AsRegexp() (*regexp.Regexp, error) {
	switch v.kind {
	case KindRegexp:
		return v.re, nil
	case KindString:
		re, err := regexp.Compile(v.s)
		if err != nil {
			return nil, &ConversionError{Want: KindRegexp, Got: KindString, Detail: err.Error()}
		}
		return re, nil
	}
	return nil, mismatch(KindRegexp, v)
}
