package value

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"bool", true, Bool(true)},
		{"int", 5, Int(5)},
		{"uint8", uint8(7), Int(7)},
		{"float", 1.5, Float(1.5)},
		{"string", "abc", String("abc")},
		{"strings", []string{"a", "b"}, Array(String("a"), String("b"))},
		{"nested", []any{"a", 1}, Array(String("a"), Int(1))},
		{"map sorted", map[string]any{"b": 2, "a": 1}, Dictionary(Entry{"a", Int(1)}, Entry{"b", Int(2)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			if err != nil {
				t.Fatalf("FromAny() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("FromAny() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFromAny_Unsupported(t *testing.T) {
	if _, err := FromAny(struct{}{}); err == nil {
		t.Error("expected error for struct input")
	}
}

func TestAsInt_FloatRange(t *testing.T) {
	tests := []struct {
		name    string
		in      float64
		want    int64
		wantErr string
	}{
		{"min int64", math.MinInt64, math.MinInt64, ""},
		{"largest exact below 2^63", math.Nextafter(math.MaxInt64, 0), 1<<63 - 1024, ""},
		{"2^63", math.Pow(2, 63), 0, "out of range"},
		{"below min", -math.Pow(2, 64), 0, "out of range"},
		{"infinity", math.Inf(1), 0, "out of range"},
		{"nan", math.NaN(), 0, "fractional part"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Float(tt.in).AsInt()
			if tt.wantErr != "" {
				var cerr *ConversionError
				if !errors.As(err, &cerr) || cerr.Detail != tt.wantErr {
					t.Fatalf("AsInt() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("AsInt() = %d, %v, want %d", got, err, tt.want)
			}
		})
	}
}

func TestConversions(t *testing.T) {
	if s, err := String("x").AsString(); err != nil || s != "x" {
		t.Errorf("AsString() = %q, %v", s, err)
	}
	if i, err := Float(3).AsInt(); err != nil || i != 3 {
		t.Errorf("AsInt() on integral float = %d, %v", i, err)
	}
	if _, err := Float(3.5).AsInt(); err == nil {
		t.Error("AsInt() on fractional float should fail")
	}
	if _, err := Int(-1).AsUint(); err == nil {
		t.Error("AsUint() on negative should fail")
	}
	if f, err := Int(2).AsFloat(); err != nil || f != 2 {
		t.Errorf("AsFloat() = %v, %v", f, err)
	}
	if re, err := String(`\d+`).AsRegexp(); err != nil || !re.MatchString("42") {
		t.Errorf("AsRegexp() from string = %v, %v", re, err)
	}
	if _, err := String(`(`).AsRegexp(); err == nil {
		t.Error("AsRegexp() on invalid pattern should fail")
	}
	if ss, err := Strings([]string{"a", "b"}).AsStrings(); err != nil || len(ss) != 2 {
		t.Errorf("AsStrings() = %v, %v", ss, err)
	}
}

func TestConversionError(t *testing.T) {
	_, err := Int(1).AsString()
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %T", err)
	}
	if convErr.Want != KindString || convErr.Got != KindInt {
		t.Errorf("ConversionError = %+v", convErr)
	}
	if err.Error() != "expected string, got int" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestLen(t *testing.T) {
	if n := String("héllo").Len(); n != 5 {
		t.Errorf("Len() = %d, want 5 runes", n)
	}
	if n := Array(Int(1), Int(2)).Len(); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}

func TestDictionary_Order(t *testing.T) {
	d := Dictionary(Entry{"z", Int(1)}, Entry{"a", Int(2)}, Entry{"z", Int(3)})
	keys := d.Keys()
	if len(keys) != 2 || keys[0] != "z" || keys[1] != "a" {
		t.Errorf("Keys() = %v", keys)
	}
	v, ok := d.Field("z")
	if !ok || !v.Equal(Int(3)) {
		t.Errorf("Field(z) = %s, %v", v, ok)
	}
}

func TestMarshalJSON(t *testing.T) {
	v := Dictionary(
		Entry{"name", String("a")},
		Entry{"tags", Array(String("x"), Int(1))},
		Entry{"re", Regexp(regexp.MustCompile(`\s+`))},
	)
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"name":"a","tags":["x",1],"re":"\\s+"}`
	if string(b) != want {
		t.Errorf("Marshal() = %s, want %s", b, want)
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"n": 3, "f": 1.5, "list": ["a"]}`), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	n, _ := v.Field("n")
	if !n.Equal(Int(3)) {
		t.Errorf("n = %s, want int 3", n)
	}
	f, _ := v.Field("f")
	if !f.Equal(Float(1.5)) {
		t.Errorf("f = %s, want 1.5", f)
	}
}

func TestUnmarshalJSON_KeyOrder(t *testing.T) {
	in := `{"zeta":1,"alpha":{"y":true,"b":null},"mid":[{"k2":"v","k1":2.5}],"empty":[]}`
	var v Value
	if err := json.Unmarshal([]byte(in), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := strings.Join(v.Keys(), ","); got != "zeta,alpha,mid,empty" {
		t.Errorf("Keys() = %s", got)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != in {
		t.Errorf("Marshal() = %s, want %s", out, in)
	}
}

func TestMarshalYAML(t *testing.T) {
	v := Dictionary(Entry{"b", Int(1)}, Entry{"a", Strings([]string{"x"})})
	b, err := yaml.Marshal(v)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	want := "b: 1\na:\n    - x\n"
	if string(b) != want {
		t.Errorf("yaml.Marshal() = %q, want %q", b, want)
	}
}
