package api

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/wordloom/internal/core/auth"
	"github.com/solatis/wordloom/internal/core/config"
	"github.com/solatis/wordloom/internal/core/grammars"
	"github.com/solatis/wordloom/internal/grammar"
	"github.com/solatis/wordloom/internal/types"
)

const testGrammar = `{
  "rules": {
    "hero": ["Ada"],
    "place": ["Rome"],
    "loop": ["%loop%"],
    "color": ["red", "blue", "green"]
  },
  "weighted": {
    "mood": {"values": ["glad", "sad"], "weights": [0.75, 0.25]}
  }
}`

// fakeStore serves grammars from memory, keyed by tenant then name.
type fakeStore struct {
	grammars map[types.TenantID]map[string]*grammar.Document
	err      error
}

func (f *fakeStore) Load(_ context.Context, tenant types.TenantID, name string) (*grammars.Grammar, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.grammars[tenant][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrGrammarNotFound, name)
	}
	return &grammars.Grammar{
		Summary:  grammars.Summary{Name: name, TenantID: tenant, RuleCount: doc.RuleCount()},
		Document: doc,
	}, nil
}

func (f *fakeStore) List(_ context.Context, tenant types.TenantID) ([]grammars.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out := []grammars.Summary{}
	for name, doc := range f.grammars[tenant] {
		out = append(out, grammars.Summary{
			ID: types.GrammarID("g-" + name), Name: name, RuleCount: doc.RuleCount(),
			CreatedAt: now, ModifiedAt: now,
		})
	}
	return out, nil
}

func newTestService(t *testing.T, store GrammarStore) *GrammarService {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.MaxDepth = 20
	cfg.Server.MaxBatchSize = 3
	cfg.Server.MaxVariations = 5
	svc, err := NewGrammarService(store, cfg, nil)
	require.NoError(t, err)
	return svc
}

func request(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

// withGrammar attaches the test grammar as an inline document.
func withGrammar(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	doc, err := grammar.Parse([]byte(testGrammar), "")
	require.NoError(t, err)
	data, err := doc.Marshal(grammar.FormatJSON)
	require.NoError(t, err)
	v := &structpb.Struct{}
	require.NoError(t, v.UnmarshalJSON(data))
	m["grammar"] = v.AsMap()
	return request(t, m)
}

func results(t *testing.T, resp *structpb.Struct) []string {
	t.Helper()
	var out []string
	for _, v := range resp.Fields["results"].GetListValue().GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out
}

func TestNewGrammarService_RequiresConfig(t *testing.T) {
	_, err := NewGrammarService(nil, nil, nil)
	assert.Error(t, err)
}

func TestGenerate_InlineGrammar(t *testing.T) {
	svc := newTestService(t, nil)

	resp, err := svc.Generate(context.Background(), withGrammar(t, map[string]any{
		"text": "%hero% went to %place%.",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada went to Rome."}, results(t, resp))
}

func TestGenerate_Batch(t *testing.T) {
	svc := newTestService(t, nil)

	resp, err := svc.Generate(context.Background(), withGrammar(t, map[string]any{
		"texts": []any{"%hero%", "%place%", "%unknown%"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Rome", "%unknown%"}, results(t, resp))
}

func TestGenerate_SeededVariationsAreDeterministic(t *testing.T) {
	svc := newTestService(t, nil)
	req := func() *structpb.Struct {
		return withGrammar(t, map[string]any{"text": "%color% %mood%", "count": 5, "seed": 42})
	}

	first, err := svc.Generate(context.Background(), req())
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), req())
	require.NoError(t, err)

	assert.Len(t, results(t, first), 5)
	assert.Equal(t, results(t, first), results(t, second))
	assert.Equal(t, float64(42), first.Fields["seed"].GetNumberValue())
}

func TestGenerate_SafeReportsFailures(t *testing.T) {
	svc := newTestService(t, nil)

	resp, err := svc.Generate(context.Background(), withGrammar(t, map[string]any{
		"texts": []any{"%hero%", "%loop%"},
		"safe":  true,
	}))
	require.NoError(t, err)

	list := resp.Fields["safe_results"].GetListValue().GetValues()
	require.Len(t, list, 2)

	ok := list[0].GetStructValue().Fields
	assert.True(t, ok["success"].GetBoolValue())
	assert.Equal(t, "Ada", ok["result"].GetStringValue())
	assert.Equal(t, float64(1), ok["attempts"].GetNumberValue())

	failed := list[1].GetStructValue().Fields
	assert.False(t, failed["success"].GetBoolValue())
	assert.Equal(t, float64(types.DefaultSafeParseAttempts), failed["attempts"].GetNumberValue())
	assert.Contains(t, failed["error"].GetStringValue(), "recursion")
	assert.NotEmpty(t, failed["hint"].GetStringValue())
}

func TestGenerate_Errors(t *testing.T) {
	svc := newTestService(t, nil)

	tests := []struct {
		name string
		req  *structpb.Struct
		code codes.Code
	}{
		{"no text", withGrammar(t, map[string]any{}), codes.InvalidArgument},
		{"text and texts", withGrammar(t, map[string]any{"text": "a", "texts": []any{"b"}}), codes.InvalidArgument},
		{"batch too large", withGrammar(t, map[string]any{"texts": []any{"a", "b", "c", "d"}}), codes.InvalidArgument},
		{"too many variations", withGrammar(t, map[string]any{"text": "a", "count": 6}), codes.InvalidArgument},
		{"negative count", withGrammar(t, map[string]any{"text": "a", "count": -1}), codes.InvalidArgument},
		{"unknown field", withGrammar(t, map[string]any{"text": "a", "bogus": true}), codes.InvalidArgument},
		{"no grammar", request(t, map[string]any{"text": "a"}), codes.InvalidArgument},
		{"both grammar refs", withGrammar(t, map[string]any{"text": "a", "grammar_name": "x"}), codes.InvalidArgument},
		{"bad inline grammar", request(t, map[string]any{"text": "a", "grammar": map[string]any{"nonsense": 1}}), codes.InvalidArgument},
		{"recursion", withGrammar(t, map[string]any{"text": "%loop%"}), codes.FailedPrecondition},
		{"named without store", request(t, map[string]any{"text": "a", "grammar_name": "x"}), codes.FailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err), err.Error())
		})
	}
}

func TestGenerate_RecursionCarriesHint(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Generate(context.Background(), withGrammar(t, map[string]any{"text": "%loop%"}))
	require.Error(t, err)
	msg := status.Convert(err).Message()
	assert.Contains(t, msg, "recursion")
	assert.Contains(t, msg, "loop")
}

func TestGenerate_StoredGrammar(t *testing.T) {
	doc, err := grammar.Parse([]byte(testGrammar), "")
	require.NoError(t, err)
	store := &fakeStore{grammars: map[types.TenantID]map[string]*grammar.Document{
		"tenant-a": {"story": doc},
	}}
	svc := newTestService(t, store)

	ctx := auth.WithTenantID(context.Background(), "tenant-a")
	resp, err := svc.Generate(ctx, request(t, map[string]any{"text": "%hero%", "grammar_name": "story"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada"}, results(t, resp))

	// other tenants never see it
	other := auth.WithTenantID(context.Background(), "tenant-b")
	_, err = svc.Generate(other, request(t, map[string]any{"text": "%hero%", "grammar_name": "story"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	store.err = fmt.Errorf("%w: connection refused", types.ErrStorage)
	_, err = svc.Generate(ctx, request(t, map[string]any{"text": "%hero%", "grammar_name": "story"}))
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestValidate(t *testing.T) {
	svc := newTestService(t, nil)

	resp, err := svc.Validate(context.Background(), withGrammar(t, map[string]any{}))
	require.NoError(t, err)

	assert.False(t, resp.Fields["is_valid"].GetBoolValue())
	var circular []string
	for _, v := range resp.Fields["circular_references"].GetListValue().GetValues() {
		circular = append(circular, v.GetStringValue())
	}
	assert.Contains(t, strings.Join(circular, ","), "loop")
}

func TestAnalyze(t *testing.T) {
	svc := newTestService(t, nil)

	t.Run("rule", func(t *testing.T) {
		resp, err := svc.Analyze(context.Background(), withGrammar(t, map[string]any{"rule": "mood"}))
		require.NoError(t, err)

		complexity := resp.Fields["complexity"].GetStructValue().Fields
		assert.Equal(t, float64(2), complexity["count"].GetNumberValue())
		assert.True(t, complexity["is_finite"].GetBoolValue())

		probs := resp.Fields["probabilities"].GetStructValue().Fields
		most := probs["most_probable"].GetStructValue().Fields
		assert.Equal(t, "glad", most["text"].GetStringValue())
		assert.InDelta(t, 0.75, most["probability"].GetNumberValue(), 1e-9)
	})

	t.Run("total", func(t *testing.T) {
		resp, err := svc.Analyze(context.Background(), withGrammar(t, map[string]any{}))
		require.NoError(t, err)
		total := resp.Fields["total_complexity"].GetStructValue().Fields
		assert.Equal(t, float64(5), total["rule_count"].GetNumberValue())
	})

	t.Run("unknown rule", func(t *testing.T) {
		_, err := svc.Analyze(context.Background(), withGrammar(t, map[string]any{"rule": "nope"}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestListGrammars(t *testing.T) {
	doc, err := grammar.Parse([]byte(testGrammar), "")
	require.NoError(t, err)
	store := &fakeStore{grammars: map[types.TenantID]map[string]*grammar.Document{
		"tenant-a": {"story": doc},
	}}
	svc := newTestService(t, store)

	resp, err := svc.ListGrammars(auth.WithTenantID(context.Background(), "tenant-a"), &structpb.Struct{})
	require.NoError(t, err)
	list := resp.Fields["grammars"].GetListValue().GetValues()
	require.Len(t, list, 1)
	g := list[0].GetStructValue().Fields
	assert.Equal(t, "story", g["name"].GetStringValue())
	assert.Equal(t, float64(5), g["rule_count"].GetNumberValue())
	assert.Equal(t, "2026-01-02T03:04:05Z", g["created_at"].GetStringValue())

	_, err = svc.ListGrammars(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Internal, status.Code(err))

	_, err = newTestService(t, nil).ListGrammars(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(status.Error(codes.InvalidArgument, "x")))
	assert.True(t, IsClientError(status.Error(codes.NotFound, "x")))
	assert.False(t, IsClientError(status.Error(codes.Unavailable, "x")))
	assert.False(t, IsClientError(fmt.Errorf("boom")))
}
