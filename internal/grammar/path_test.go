package grammar

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gopkg.in/yaml.v3"

	"github.com/solatis/wordloom/internal/types"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []types.PathSegment
		wantErr bool
	}{
		{name: "empty selects document", path: "", want: nil},
		{name: "single key", path: "grammar", want: []types.PathSegment{{Key: "grammar"}}},
		{
			name: "nested keys",
			path: "services.story.grammar",
			want: []types.PathSegment{{Key: "services"}, {Key: "story"}, {Key: "grammar"}},
		},
		{
			name: "key with index",
			path: "grammars[1]",
			want: []types.PathSegment{{Key: "grammars"}, {Index: 1, IsIndex: true}},
		},
		{
			name: "multiple indices",
			path: "a[0][2].b",
			want: []types.PathSegment{{Key: "a"}, {Index: 0, IsIndex: true}, {Index: 2, IsIndex: true}, {Key: "b"}},
		},
		{
			name: "leading index",
			path: "[3].x",
			want: []types.PathSegment{{Index: 3, IsIndex: true}, {Key: "x"}},
		},
		{name: "empty segment", path: "a..b", wantErr: true},
		{name: "trailing dot", path: "a.", wantErr: true},
		{name: "unclosed index", path: "a[1", wantErr: true},
		{name: "negative index", path: "a[-1]", wantErr: true},
		{name: "non-numeric index", path: "a[x]", wantErr: true},
		{name: "garbage after index", path: "a[1]b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParsePath(%q) = %v, want %v", tt.path, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParsePath(%q)[%d] = %+v, want %+v", tt.path, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParsePath_TooDeep(t *testing.T) {
	parts := make([]string, types.MaxPathDepth+1)
	for i := range parts {
		parts[i] = "k"
	}
	_, err := ParsePath(strings.Join(parts, "."))
	if !errors.Is(err, types.ErrPathTooDeep) {
		t.Errorf("ParsePath() error = %v, want ErrPathTooDeep", err)
	}

	_, err = ParsePath(strings.Join(parts[:types.MaxPathDepth], "."))
	if err != nil {
		t.Errorf("ParsePath() at the limit error = %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	doc := `
app:
  grammars:
    - rules: {start: [one]}
    - rules: {start: [two]}
  name: demo
`
	var data any
	if err := yaml.Unmarshal([]byte(doc), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		want    any
		wantErr error
	}{
		{name: "scalar", path: "app.name", want: "demo"},
		{name: "through list", path: "app.grammars[1].rules.start[0]", want: "two"},
		{name: "missing key", path: "app.missing", wantErr: types.ErrFieldNotFound},
		{name: "index out of range", path: "app.grammars[5]", wantErr: types.ErrFieldNotFound},
		{name: "index into object", path: "app[0]", wantErr: types.ErrFieldNotFound},
		{name: "key into list", path: "app.grammars.rules", wantErr: types.ErrFieldNotFound},
		{name: "past a scalar", path: "app.name.first", wantErr: types.ErrFieldNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("ParsePath(%q) error = %v", tt.path, err)
			}
			got, err := ResolvePath(path, data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolvePath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.want {
				t.Errorf("ResolvePath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolvePath_EmptySelectsRoot(t *testing.T) {
	data := map[string]any{"a": 1}
	got, err := ResolvePath(nil, data)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if m, ok := got.(map[string]any); !ok || m["a"] != 1 {
		t.Errorf("ResolvePath(nil) = %v, want the document", got)
	}
}

// Property-based test: formatting a parsed path yields the original text
func TestPath_PropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatPath inverts ParsePath", prop.ForAll(
		func(keys []string, index int, withIndex bool) bool {
			if len(keys) == 0 {
				return true
			}
			text := strings.Join(keys, ".")
			if withIndex {
				text = fmt.Sprintf("%s[%d]", text, index)
			}
			path, err := ParsePath(text)
			if err != nil {
				return len(keys) >= types.MaxPathDepth
			}
			return FormatPath(path) == text
		},
		gen.SliceOfN(5, gen.Identifier()),
		gen.IntRange(0, 1000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
