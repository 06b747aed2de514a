package loader

import (
	"errors"
	"testing"
	"testing/fstest"
)

type sample struct {
	Name  string   `toml:"name" yaml:"name"`
	Count int      `toml:"count" yaml:"count"`
	Tags  []string `toml:"tags" yaml:"tags"`
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"hookmap.toml", TOML, false},
		{"dir/hookmap.TOML", TOML, false},
		{"hookmap.yaml", YAML, false},
		{"hookmap.yml", YAML, false},
		{"hookmap.json", TOML, true},
		{"hookmap", TOML, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatOf() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("FormatOf() error = %v, want ErrUnsupportedFormat", err)
			}
			if got != tt.want {
				t.Errorf("FormatOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"a.toml": {Data: []byte("name = \"x\"\ncount = 3\ntags = [\"p\", \"q\"]\n")},
		"a.yaml": {Data: []byte("name: x\ncount: 3\ntags: [p, q]\n")},
		"e.yaml": {Data: []byte("")},
	}
	l := NewWithFS(fsys)

	for _, path := range []string{"a.toml", "a.yaml"} {
		t.Run(path, func(t *testing.T) {
			var s sample
			if err := l.Load(path, &s); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if s.Name != "x" || s.Count != 3 || len(s.Tags) != 2 || s.Tags[1] != "q" {
				t.Errorf("Load() = %+v", s)
			}
		})
	}

	t.Run("empty yaml", func(t *testing.T) {
		s := sample{Name: "keep"}
		if err := l.Load("e.yaml", &s); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if s.Name != "keep" {
			t.Errorf("Name = %q, want keep", s.Name)
		}
	})

	t.Run("missing", func(t *testing.T) {
		var s sample
		if err := l.Load("nope.toml", &s); err == nil {
			t.Fatal("Load() error = nil, want error")
		}
		if l.Exists("nope.toml") {
			t.Error("Exists() = true for missing file")
		}
		if !l.Exists("a.toml") {
			t.Error("Exists() = false for present file")
		}
	})
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		data     string
		wantLine int
	}{
		{"toml syntax", TOML, "name = \"x\"\ncount = \n", 2},
		{"toml unknown field", TOML, "name = \"x\"\ncolour = \"red\"\n", 2},
		{"yaml syntax", YAML, "name: [x\n", 0},
		{"yaml unknown field", YAML, "colour: red\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s sample
			err := Decode(tt.format, "test", []byte(tt.data), &s)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Decode() error = %v, want *ParseError", err)
			}
			if tt.wantLine > 0 && perr.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (%v)", perr.Line, tt.wantLine, perr)
			}
		})
	}
}
