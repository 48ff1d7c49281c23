// Package api provides the gRPC grammar service.
//
// Every call builds a fresh rules.Engine from the referenced grammar, so no
// engine state (sequential positions, parse context, seed) survives between
// calls or leaks across tenants. Engines are not safe for concurrent use;
// per-request engines sidestep that entirely.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/wordloom/internal/core/auth"
	"github.com/solatis/wordloom/internal/core/config"
	"github.com/solatis/wordloom/internal/core/grammars"
	"github.com/solatis/wordloom/internal/grammar"
	"github.com/solatis/wordloom/internal/rules"
	"github.com/solatis/wordloom/internal/types"
)

// GrammarStore is the subset of *grammars.Repository the service reads.
type GrammarStore interface {
	Load(ctx context.Context, tenant types.TenantID, name string) (*grammars.Grammar, error)
	List(ctx context.Context, tenant types.TenantID) ([]grammars.Summary, error)
}

// GrammarService implements GrammarServer.
type GrammarService struct {
	store  GrammarStore
	cfg    *config.Config
	logger *slog.Logger
}

var _ GrammarServer = (*GrammarService)(nil)

// NewGrammarService creates the service. store may be nil, in which case
// only inline grammars are accepted.
func NewGrammarService(store GrammarStore, cfg *config.Config, logger *slog.Logger) (*GrammarService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GrammarService{store: store, cfg: cfg, logger: logger}, nil
}

// engineFor resolves the grammar reference and returns a fresh engine loaded with it.
func (s *GrammarService) engineFor(ctx context.Context, ref GrammarRef) (*rules.Engine, error) {
	var doc *grammar.Document

	switch {
	case ref.GrammarName != "" && len(ref.Grammar) > 0:
		return nil, status.Error(codes.InvalidArgument, "set grammar_name or grammar, not both")

	case ref.GrammarName != "":
		if s.store == nil {
			return nil, status.Error(codes.FailedPrecondition, "no grammar store configured")
		}
		tenant := auth.TenantIDFromContext(ctx)
		if tenant == "" {
			return nil, status.Error(codes.Internal, "missing tenant_id in context")
		}
		stored, err := s.store.Load(ctx, tenant, ref.GrammarName)
		if err != nil {
			return nil, err
		}
		doc = stored.Document

	case len(ref.Grammar) > 0:
		parsed, err := grammar.Parse(ref.Grammar, "")
		if err != nil {
			return nil, err
		}
		doc = parsed

	default:
		return nil, status.Error(codes.InvalidArgument, "grammar_name or grammar is required")
	}

	opts := append(s.cfg.EngineOptions(), rules.WithLogger(s.logger))
	e := rules.NewEngine(opts...)
	if err := doc.Apply(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Generate expands text against a grammar.
func (s *GrammarService) Generate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req GenerateRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.checkGenerate(&req); err != nil {
		return nil, err
	}

	e, err := s.engineFor(ctx, req.GrammarRef)
	if err != nil {
		return nil, toStatus(err, nil, "")
	}
	if req.Seed != nil {
		e.SetRandomSeed(*req.Seed)
	}

	texts := req.Texts
	if req.Text != "" {
		texts = []string{req.Text}
	}

	resp := map[string]any{}
	if seed, ok := e.RandomSeed(); ok {
		resp["seed"] = float64(seed)
	}

	switch {
	case req.Safe:
		results := make([]any, 0, len(texts)*req.Count)
		for _, text := range texts {
			for i := 0; i < req.Count; i++ {
				results = append(results, safeResultMap(e.SafeParse(text, rules.SafeParseOptions{
					PreserveContext: req.PreserveContext,
					MaxAttempts:     s.cfg.Engine.SafeAttempts,
				}), e, text))
			}
		}
		resp["safe_results"] = results

	case req.Count > 1:
		var out []string
		if req.Seed != nil {
			out, err = e.GenerateSeededVariations(req.Text, req.Count, *req.Seed)
		} else {
			out, err = e.GenerateVariations(req.Text, req.Count)
		}
		if err != nil {
			return nil, toStatus(err, e, req.Text)
		}
		resp["results"] = anyList(out)

	default:
		out, err := e.ParseBatch(texts, req.PreserveContext)
		if err != nil {
			return nil, toStatus(err, e, texts[len(out)])
		}
		resp["results"] = anyList(out)
	}

	return structpb.NewStruct(resp)
}

// checkGenerate validates request shape and applies the configured limits.
func (s *GrammarService) checkGenerate(req *GenerateRequest) error {
	if req.Text == "" && len(req.Texts) == 0 {
		return status.Error(codes.InvalidArgument, "text or texts is required")
	}
	if req.Text != "" && len(req.Texts) > 0 {
		return status.Error(codes.InvalidArgument, "set text or texts, not both")
	}
	if len(req.Texts) > s.cfg.Server.MaxBatchSize {
		return status.Errorf(codes.InvalidArgument, "batch of %d texts exceeds limit %d", len(req.Texts), s.cfg.Server.MaxBatchSize)
	}
	if req.Count < 0 {
		return status.Errorf(codes.InvalidArgument, "count must be positive, got %d", req.Count)
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if req.Count > 1 && len(req.Texts) > 0 && !req.Safe {
		return status.Error(codes.InvalidArgument, "count applies to text, not texts")
	}
	if req.Count > s.cfg.Server.MaxVariations {
		return status.Errorf(codes.InvalidArgument, "count %d exceeds limit %d", req.Count, s.cfg.Server.MaxVariations)
	}
	if req.Safe && len(req.Texts)*req.Count > s.cfg.Server.MaxVariations*s.cfg.Server.MaxBatchSize {
		return status.Error(codes.InvalidArgument, "safe request too large")
	}
	return nil
}

func safeResultMap(r rules.SafeParseResult, e *rules.Engine, text string) map[string]any {
	m := map[string]any{
		"success":  r.Success,
		"result":   r.Result,
		"attempts": r.Attempts,
	}
	if r.Err != nil {
		m["error"] = r.Err.Error()
		m["hint"] = e.HelpfulError(r.Err, text)
	}
	return m
}

// Validate reports missing, circular, empty and unreachable rules.
func (s *GrammarService) Validate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ValidateRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	e, err := s.engineFor(ctx, req.GrammarRef)
	if err != nil {
		return nil, toStatus(err, nil, "")
	}
	return structpb.NewStruct(validationMap(e.Validate()))
}

// Analyze reports complexity and probabilities for one rule, or the total
// complexity of the grammar when no rule is named.
func (s *GrammarService) Analyze(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req AnalyzeRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	e, err := s.engineFor(ctx, req.GrammarRef)
	if err != nil {
		return nil, toStatus(err, nil, "")
	}

	if req.Rule == "" {
		return structpb.NewStruct(map[string]any{
			"total_complexity": totalComplexityMap(e.TotalComplexity()),
		})
	}

	complexity, err := e.RuleComplexity(req.Rule)
	if err != nil {
		return nil, toStatus(err, e, "")
	}
	probabilities, err := e.Probabilities(req.Rule)
	if err != nil {
		return nil, toStatus(err, e, "")
	}
	return structpb.NewStruct(map[string]any{
		"complexity":    complexityMap(complexity),
		"probabilities": probabilityMap(probabilities),
	})
}

// ListGrammars lists the caller's stored grammars.
func (s *GrammarService) ListGrammars(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if len(in.GetFields()) > 0 {
		return nil, status.Error(codes.InvalidArgument, "ListGrammars takes no fields")
	}
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "no grammar store configured")
	}
	tenant := auth.TenantIDFromContext(ctx)
	if tenant == "" {
		return nil, status.Error(codes.Internal, "missing tenant_id in context")
	}

	summaries, err := s.store.List(ctx, tenant)
	if err != nil {
		return nil, toStatus(err, nil, "")
	}

	list := make([]any, len(summaries))
	for i, g := range summaries {
		list[i] = map[string]any{
			"id":          string(g.ID),
			"name":        g.Name,
			"rule_count":  g.RuleCount,
			"created_at":  g.CreatedAt.UTC().Format(timeFormat),
			"modified_at": g.ModifiedAt.UTC().Format(timeFormat),
		}
	}
	return structpb.NewStruct(map[string]any{"grammars": list})
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

// IsClientError reports whether err is the caller's fault; the server logs
// these at info rather than error.
func IsClientError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition,
		codes.Unauthenticated, codes.PermissionDenied:
		return true
	}
	return errors.Is(err, context.Canceled)
}
