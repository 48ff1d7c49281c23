package grammar

import (
	"errors"
	"strings"
	"testing"

	"github.com/solatis/wordloom/internal/types"
)

func TestToText(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr error
	}{
		{name: "string passthrough", value: "dragon", want: "dragon"},
		{name: "empty string", value: "", want: ""},
		{name: "int", value: 42, want: "42"},
		{name: "int64", value: int64(-7), want: "-7"},
		{name: "uint64", value: uint64(18446744073709551615), want: "18446744073709551615"},
		{name: "float64 shortest form", value: 2.5, want: "2.5"},
		{name: "float64 whole number", value: 3.0, want: "3"},
		{name: "float32", value: float32(0.25), want: "0.25"},
		{name: "bool", value: true, want: "true"},
		{name: "null rejected", value: nil, wantErr: types.ErrCoercionFailed},
		{name: "map rejected", value: map[string]any{"a": 1}, wantErr: types.ErrCoercionFailed},
		{name: "list rejected", value: []any{"a"}, wantErr: types.ErrCoercionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toText(tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("toText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.want {
				t.Errorf("toText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToTexts_NamesIndex(t *testing.T) {
	_, err := toTexts([]any{"a", 1, nil})
	if !errors.Is(err, types.ErrCoercionFailed) {
		t.Fatalf("toTexts() error = %v, want ErrCoercionFailed", err)
	}
	if got := err.Error(); !strings.HasPrefix(got, "value 2") {
		t.Errorf("toTexts() error = %q, want it to name value 2", got)
	}

	got, err := toTexts([]any{"a", 1, false})
	if err != nil {
		t.Fatalf("toTexts() error = %v", err)
	}
	want := []string{"a", "1", "false"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("toTexts()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   float64
		wantOK bool
	}{
		{name: "float64", value: 42.5, want: 42.5, wantOK: true},
		{name: "int", value: 100, want: 100, wantOK: true},
		{name: "int64", value: int64(999), want: 999, wantOK: true},
		{name: "uint64", value: uint64(3), want: 3, wantOK: true},
		{name: "numeric string", value: "25", want: 25, wantOK: true},
		{name: "string with whitespace", value: "  42  ", want: 42, wantOK: true},
		{name: "whitespace only", value: "   ", wantOK: false},
		{name: "word", value: "dragon", wantOK: false},
		{name: "bool rejected", value: true, wantOK: false},
		{name: "null rejected", value: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toNumber(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("toNumber() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("toNumber() = %v, want %v", got, tt.want)
			}
		})
	}
}
