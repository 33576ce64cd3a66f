package tokeniser

import (
	"reflect"
	"testing"
)

func TestLabeled(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "tabs and lines",
			input: "Поїзд\t743 К\nВагон\t05 П",
			want:  []string{"Поїзд", "743 К", "Вагон", "05 П"},
		},
		{
			name:  "empty cells and blank lines dropped",
			input: "Відправлення\t\t2200001\tКИЇВ\n\n\tМісце\t017\t",
			want:  []string{"Відправлення", "2200001", "КИЇВ", "Місце", "017"},
		},
		{
			name:  "whitespace-only cells kept",
			input: "a\t \tb",
			want:  []string{"a", " ", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Labeled(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Labeled() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPositional(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"keeps empty lines", "a\n\nb\n", []string{"a", "", "b", ""}},
		{"tabs are not separators", "a\tb\nc", []string{"a\tb", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Positional(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Positional() = %q, want %q", got, tt.want)
			}
		})
	}
}
