package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/wordloom/internal/rules"
)

/*
 * Request and response shapes.
 *
 * Messages travel as google.protobuf.Struct. Requests are decoded by
 * round-tripping the struct through JSON into the types below (unknown
 * fields rejected); responses are built as map[string]any and converted
 * with structpb.NewStruct, which only accepts []any for lists.
 *
 * Every request names its grammar one of two ways:
 *   grammar_name: a grammar stored for the caller's tenant
 *   grammar:      an inline grammar document (same shape as a YAML file)
 */

// GrammarRef selects the grammar a request runs against.
type GrammarRef struct {
	GrammarName string          `json:"grammar_name,omitempty"`
	Grammar     json.RawMessage `json:"grammar,omitempty"`
}

// GenerateRequest expands text, or each of texts, against a grammar.
//
// count > 1 returns that many variations of text. seed makes the output
// deterministic; with count > 1 variation i uses seed+i. safe runs each
// expansion through SafeParse and reports failures in the response instead
// of failing the call.
type GenerateRequest struct {
	GrammarRef
	Text            string   `json:"text,omitempty"`
	Texts           []string `json:"texts,omitempty"`
	Count           int      `json:"count,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`
	PreserveContext bool     `json:"preserve_context,omitempty"`
	Safe            bool     `json:"safe,omitempty"`
}

// ValidateRequest validates a grammar.
type ValidateRequest struct {
	GrammarRef
}

// AnalyzeRequest analyzes one rule, or the whole grammar when rule is empty.
type AnalyzeRequest struct {
	GrammarRef
	Rule string `json:"rule,omitempty"`
}

// decodeRequest converts a Struct into dst.
func decodeRequest(in *structpb.Struct, dst any) error {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed request: %w", err)
	}
	return nil
}

func anyList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// number keeps non-finite values out of responses; clients see null.
func number(f float64) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return f
}

func validationMap(r rules.ValidationReport) map[string]any {
	return map[string]any{
		"is_valid":            r.IsValid,
		"missing_rules":       anyList(r.MissingRules),
		"circular_references": anyList(r.CircularReferences),
		"empty_rules":         anyList(r.EmptyRules),
		"unreachable_rules":   anyList(r.UnreachableRules),
		"warnings":            anyList(r.Warnings),
	}
}

func complexityMap(c rules.ComplexityResult) map[string]any {
	return map[string]any{
		"rule":      c.Rule,
		"kind":      c.Kind.String(),
		"count":     number(c.Count),
		"is_finite": c.IsFinite,
		"variables": anyList(c.Variables),
		"warnings":  anyList(c.Warnings),
		"cycles":    anyList(c.Cycles),
	}
}

func totalComplexityMap(t rules.TotalComplexityResult) map[string]any {
	top := make([]any, len(t.Top))
	for i, rc := range t.Top {
		top[i] = map[string]any{"rule": rc.Rule, "count": number(rc.Count)}
	}
	perRule := make(map[string]any, len(t.PerRule))
	for name, count := range t.PerRule {
		perRule[name] = number(count)
	}
	return map[string]any{
		"total":      number(t.Total),
		"is_finite":  t.IsFinite,
		"rule_count": t.RuleCount,
		"per_rule":   perRule,
		"average":    number(t.Average),
		"top":        top,
		"warnings":   anyList(t.Warnings),
		"cycles":     anyList(t.Cycles),
	}
}

func probabilityMap(p rules.ProbabilityResult) map[string]any {
	outcomes := make([]any, len(p.Outcomes))
	for i, o := range p.Outcomes {
		outcomes[i] = map[string]any{"text": o.Text, "probability": o.Probability}
	}
	m := map[string]any{
		"rule":                p.Rule,
		"kind":                p.Kind.String(),
		"outcomes":            outcomes,
		"total_outcomes":      p.TotalOutcomes,
		"average_probability": p.AverageProbability,
		"entropy":             p.Entropy,
		"truncated":           p.Truncated,
		"warnings":            anyList(p.Warnings),
	}
	if p.TotalOutcomes > 0 {
		m["most_probable"] = map[string]any{"text": p.MostProbable.Text, "probability": p.MostProbable.Probability}
		m["least_probable"] = map[string]any{"text": p.LeastProbable.Text, "probability": p.LeastProbable.Probability}
	}
	return m
}
