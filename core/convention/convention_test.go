package convention

import (
	"reflect"
	"testing"
)

func TestWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"foo_bar", []string{"foo", "bar"}},
		{"fooBar", []string{"foo", "Bar"}},
		{"HTTPServer_id", []string{"HTTP", "Server", "id"}},
		{"  spaced   out ", []string{"spaced", "out"}},
		{"kebab-case.dot", []string{"kebab", "case", "dot"}},
		{"v2Api", []string{"v2", "Api"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Words(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Words(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCases(t *testing.T) {
	tests := []struct {
		in                    string
		word, title, sentence string
		snake                 string
	}{
		{"fooBar", "foo bar", "Foo Bar", "Foo bar", "foo_bar"},
		{"user_first_name", "user first name", "User First Name", "User first name", "user_first_name"},
		{"HELLO world", "hello world", "Hello World", "Hello world", "hello_world"},
		{"", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := WordCase(tt.in); got != tt.word {
				t.Errorf("WordCase() = %q, want %q", got, tt.word)
			}
			if got := TitleCase(tt.in); got != tt.title {
				t.Errorf("TitleCase() = %q, want %q", got, tt.title)
			}
			if got := SentenceCase(tt.in); got != tt.sentence {
				t.Errorf("SentenceCase() = %q, want %q", got, tt.sentence)
			}
			if got := SnakeCase(tt.in); got != tt.snake {
				t.Errorf("SnakeCase() = %q, want %q", got, tt.snake)
			}
		})
	}
}

func TestPluralize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"user", "users"},
		{"box", "boxes"},
		{"category", "categories"},
		{"day", "days"},
		{"knife", "knives"},
		{"leaf", "leaves"},
		{"Person", "People"},
		{"status", "statuses"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Pluralize(tt.in); got != tt.want {
			t.Errorf("Pluralize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSingularize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"users", "user"},
		{"boxes", "box"},
		{"categories", "category"},
		{"people", "person"},
		{"Children", "Child"},
		{"class", "class"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Singularize(tt.in); got != tt.want {
			t.Errorf("Singularize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
