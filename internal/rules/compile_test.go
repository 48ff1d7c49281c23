// internal/rules/compile_test.go
package rules

import (
	"errors"
	"testing"

	"github.com/solatis/wordloom/internal/types"
)

func TestKind_ResolutionOrder(t *testing.T) {
	want := []Kind{KindFunction, KindConditional, KindSequential, KindRange, KindTemplate, KindWeighted, KindStatic}
	got := Kinds()
	if len(got) != len(want) {
		t.Fatalf("len(Kinds()) = %v, want %v", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Kinds()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindFunction, "function"},
		{KindConditional, "conditional"},
		{KindSequential, "sequential"},
		{KindRange, "range"},
		{KindTemplate, "template"},
		{KindWeighted, "weighted"},
		{KindStatic, "static"},
		{KindUnspecified, "unspecified"},
		{Kind(99), "unspecified"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestNewStaticRule(t *testing.T) {
	r, err := NewStaticRule("color", []string{"red", "blue"})
	if err != nil {
		t.Fatalf("NewStaticRule() error = %v, want nil", err)
	}
	if r.Name() != "color" {
		t.Errorf("Name() = %v, want color", r.Name())
	}
	if r.Kind() != KindStatic {
		t.Errorf("Kind() = %v, want static", r.Kind())
	}

	empty, err := NewStaticRule("later", nil)
	if err != nil {
		t.Fatalf("NewStaticRule(nil values) error = %v, want nil", err)
	}
	if empty.Values == nil || len(empty.Values) != 0 {
		t.Errorf("Values = %#v, want empty non-nil slice", empty.Values)
	}

	if _, err := NewStaticRule("", []string{"x"}); !errors.Is(err, types.ErrEmptyRuleName) {
		t.Errorf("NewStaticRule(\"\") error = %v, want ErrEmptyRuleName", err)
	}
}

func TestNewStaticRule_CopiesValues(t *testing.T) {
	values := []string{"a", "b"}
	r, err := NewStaticRule("x", values)
	if err != nil {
		t.Fatalf("NewStaticRule() error = %v", err)
	}
	values[0] = "mutated"
	if r.Values[0] != "a" {
		t.Errorf("Values[0] = %v, want a (caller mutation leaked)", r.Values[0])
	}
}

func TestNewFunctionRule(t *testing.T) {
	gen := GeneratorFunc(func() ([]string, error) { return []string{"x"}, nil })
	if _, err := NewFunctionRule("f", gen); err != nil {
		t.Fatalf("NewFunctionRule() error = %v, want nil", err)
	}
	if _, err := NewFunctionRule("f", nil); !errors.Is(err, types.ErrNilGenerator) {
		t.Errorf("NewFunctionRule(nil) error = %v, want ErrNilGenerator", err)
	}
	if _, err := NewFunctionRule("", gen); !errors.Is(err, types.ErrEmptyRuleName) {
		t.Errorf("NewFunctionRule(\"\") error = %v, want ErrEmptyRuleName", err)
	}
}

func TestNewWeightedRule(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		weights []float64
		wantErr error
	}{
		{"valid", []string{"a", "b"}, []float64{0.3, 0.7}, nil},
		{"within tolerance", []string{"a", "b"}, []float64{0.33333, 0.66666}, nil},
		{"zero weight allowed", []string{"a", "b"}, []float64{0, 1}, nil},
		{"sum too low", []string{"a", "b"}, []float64{0.4, 0.4}, types.ErrWeightSum},
		{"sum too high", []string{"a", "b"}, []float64{0.6, 0.6}, types.ErrWeightSum},
		{"negative", []string{"a", "b"}, []float64{-0.5, 1.5}, types.ErrNegativeWeight},
		{"count mismatch", []string{"a", "b"}, []float64{1.0}, types.ErrWeightCount},
		{"no values", []string{}, []float64{}, types.ErrEmptyValues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewWeightedRule("w", tt.values, tt.weights)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewWeightedRule() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewWeightedRule() error = %v, want nil", err)
			}
			if len(r.Cumulative) != len(tt.values) {
				t.Fatalf("len(Cumulative) = %v, want %v", len(r.Cumulative), len(tt.values))
			}
			last := r.Cumulative[len(r.Cumulative)-1]
			if last < 1-types.WeightTolerance || last > 1+types.WeightTolerance {
				t.Errorf("final cumulative = %v, want ~1.0", last)
			}
		})
	}
}

func TestNewConditionalRule(t *testing.T) {
	always := func(*Context) bool { return true }

	tests := []struct {
		name       string
		conditions []Condition
		wantErr    error
	}{
		{
			name:       "predicate and default",
			conditions: []Condition{{When: always, Values: []string{"a"}}, {Default: true, Values: []string{"b"}}},
		},
		{
			name:       "no conditions",
			conditions: nil,
			wantErr:    types.ErrInvalidCondition,
		},
		{
			name:       "two defaults",
			conditions: []Condition{{Default: true, Values: []string{"a"}}, {Default: true, Values: []string{"b"}}},
			wantErr:    types.ErrMultipleDefaults,
		},
		{
			name:       "predicate and default on one record",
			conditions: []Condition{{When: always, Default: true, Values: []string{"a"}}},
			wantErr:    types.ErrInvalidCondition,
		},
		{
			name:       "neither predicate nor default",
			conditions: []Condition{{Values: []string{"a"}}},
			wantErr:    types.ErrInvalidCondition,
		},
		{
			name:       "empty values",
			conditions: []Condition{{When: always}},
			wantErr:    types.ErrEmptyValues,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConditionalRule("c", tt.conditions)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("NewConditionalRule() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("NewConditionalRule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSequentialRule(t *testing.T) {
	if _, err := NewSequentialRule("d", []string{"Mon"}, true); err != nil {
		t.Fatalf("NewSequentialRule() error = %v, want nil", err)
	}
	if _, err := NewSequentialRule("d", nil, true); !errors.Is(err, types.ErrEmptyValues) {
		t.Errorf("NewSequentialRule(nil) error = %v, want ErrEmptyValues", err)
	}
}

func TestSequentialRule_CycleAndPin(t *testing.T) {
	tests := []struct {
		name  string
		cycle bool
		want  []string
	}{
		{"cycle", true, []string{"Mon", "Tue", "Wed", "Mon", "Tue"}},
		{"pin", false, []string{"Mon", "Tue", "Wed", "Wed", "Wed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewSequentialRule("d", []string{"Mon", "Tue", "Wed"}, tt.cycle)
			if err != nil {
				t.Fatalf("NewSequentialRule() error = %v", err)
			}
			for i, want := range tt.want {
				if got := r.next(); got != want {
					t.Errorf("next() #%d = %v, want %v", i, got, want)
				}
			}
			r.Reset()
			if r.Index() != 0 {
				t.Errorf("Index() after Reset = %v, want 0", r.Index())
			}
			if got := r.next(); got != "Mon" {
				t.Errorf("next() after Reset = %v, want Mon", got)
			}
		})
	}
}

func TestNewRangeRule(t *testing.T) {
	tests := []struct {
		name    string
		lo, hi  float64
		opts    RangeOptions
		wantErr error
	}{
		{"integer", 1, 10, RangeOptions{}, nil},
		{"stepped float", 0, 1, RangeOptions{Step: 0.25, Numeric: NumericFloat}, nil},
		{"min equals max", 5, 5, RangeOptions{}, types.ErrInvalidRange},
		{"min above max", 6, 5, RangeOptions{}, types.ErrInvalidRange},
		{"negative step", 0, 10, RangeOptions{Step: -1}, types.ErrInvalidStep},
		{"integer span beyond addressable steps", 0, 1e19, RangeOptions{}, types.ErrInvalidRange},
		{"step too fine for span", 0, 1e10, RangeOptions{Step: 1e-9, Numeric: NumericFloat}, types.ErrInvalidRange},
		{"integer span at the limit", 0, types.MaxRangeSteps - 1, RangeOptions{}, nil},
		{"wide continuous float", 0, 1e19, RangeOptions{Numeric: NumericFloat}, nil},
		{"zero decimals", 0, 1, RangeOptions{Numeric: NumericFloat, Decimals: intPtr(0)}, nil},
		{"negative decimals", 0, 1, RangeOptions{Numeric: NumericFloat, Decimals: intPtr(-1)}, types.ErrInvalidDecimals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRangeRule("r", tt.lo, tt.hi, tt.opts)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("NewRangeRule() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("NewRangeRule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func TestRangeRule_Steps(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi float64
		opts   RangeOptions
		want   int
	}{
		{"unit integer", 1, 10, RangeOptions{}, 10},
		{"step 2", 0, 10, RangeOptions{Step: 2}, 6},
		{"step does not divide", 0, 10, RangeOptions{Step: 3}, 4},
		{"float step absorbs rounding", 0, 0.3, RangeOptions{Step: 0.1, Numeric: NumericFloat}, 4},
		{"unstepped float sized as unit step", 0, 2.5, RangeOptions{Numeric: NumericFloat}, 3},
		{"wide continuous float saturates", 0, 1e19, RangeOptions{Numeric: NumericFloat}, types.MaxRangeSteps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRangeRule("r", tt.lo, tt.hi, tt.opts)
			if err != nil {
				t.Fatalf("NewRangeRule() error = %v", err)
			}
			if got := r.Steps(); got != tt.want {
				t.Errorf("Steps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRangeRule_Format(t *testing.T) {
	tests := []struct {
		name string
		opts RangeOptions
		v    float64
		want string
	}{
		{"integer rounds", RangeOptions{}, 3.6, "4"},
		{"float from step", RangeOptions{Step: 0.25, Numeric: NumericFloat}, 0.5, "0.50"},
		{"float default decimals", RangeOptions{Numeric: NumericFloat}, 1.23456, "1.23"},
		{"explicit decimals", RangeOptions{Numeric: NumericFloat, Decimals: intPtr(4)}, 1.23456, "1.2346"},
		{"explicit zero decimals", RangeOptions{Numeric: NumericFloat, Decimals: intPtr(0)}, 2.4, "2"},
		{"zero decimals overrides step", RangeOptions{Step: 0.25, Numeric: NumericFloat, Decimals: intPtr(0)}, 7.75, "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRangeRule("r", 0, 10, tt.opts)
			if err != nil {
				t.Fatalf("NewRangeRule() error = %v", err)
			}
			if got := r.format(tt.v); got != tt.want {
				t.Errorf("format(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestNewTemplateRule(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string][]string
		wantErr  error
	}{
		{"complete", "%adj% %noun%", map[string][]string{"adj": {"big"}, "noun": {"cat"}}, nil},
		{"back-reference needs no variable", "%adj% %@noun%", map[string][]string{"adj": {"big"}}, nil},
		{"missing variable", "%adj% %noun%", map[string][]string{"adj": {"big"}}, types.ErrMissingTemplateVariable},
		{"empty variable", "%adj%", map[string][]string{"adj": {}}, types.ErrEmptyValues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTemplateRule("t", tt.template, tt.vars)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("NewTemplateRule() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("NewTemplateRule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTemplateRule_VariableNamesSorted(t *testing.T) {
	r, err := NewTemplateRule("t", "%b% %a%", map[string][]string{"b": {"1"}, "a": {"2"}})
	if err != nil {
		t.Fatalf("NewTemplateRule() error = %v", err)
	}
	got := r.VariableNames()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("VariableNames() = %v, want [a b]", got)
	}
}
