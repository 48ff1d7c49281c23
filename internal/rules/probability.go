// internal/rules/probability.go
package rules

import (
	"fmt"
	"math"
	"sort"

	"github.com/solatis/wordloom/internal/types"
)

/*
 * Probability model: the distribution of final strings a rule can produce.
 *
 * Per-kind base probability of each value:
 *   - static, sequential: 1/n
 *   - weighted: its weight (weights already sum to 1); zero weights vanish
 *   - conditional: 1/branches * 1/values-in-branch, over every branch
 *   - range: 1/steps over each discrete value
 *   - template: each token occurrence picks 1/n from its local variable
 *
 * A value's distribution is the cross product of its literal segments and
 * the distributions of its tokens, multiplying probabilities. Outcomes that
 * render to the same string are merged by summing their mass, so the result
 * is a proper distribution over distinct strings.
 *
 * Degradation mirrors complexity.go, substituting sentinels into the text:
 *   [function:x]   generators are never invoked during analysis
 *   [missing:x]    x is not registered
 *   [circular:x]   x is already on the in-progress path
 *   [max-depth:x]  the path reached MaxDepth
 *   [range:x]      an unstepped float range with ContinuousRangesInfinite
 *
 * Back-references (%@x%) stay literal: the replayed value depends on the
 * parse, not on the rule.
 *
 * MaxOutcomes bounds every intermediate distribution. When exceeded, the
 * most probable outcomes are kept, the result is marked Truncated and a
 * warning is recorded; probabilities then sum to less than 1. Crosses never
 * build the full product: both sides are walked in probability order and
 * only pairs (i, j) with (i+1)*(j+1) <= MaxOutcomes are combined, since any
 * other pair has at least MaxOutcomes pairs at least as probable.
 *
 * Distributions are memoized the same way complexity counts are.
 */

// Outcome is one distinct output string and its probability.
type Outcome struct {
	Text        string
	Probability float64
}

// ProbabilityResult describes one rule's output distribution.
type ProbabilityResult struct {
	Rule               string
	Kind               Kind
	Outcomes           []Outcome // most probable first, ties by text
	TotalOutcomes      int
	MostProbable       Outcome
	LeastProbable      Outcome
	AverageProbability float64
	Entropy            float64 // Shannon entropy in bits
	Truncated          bool
	Warnings           []string
}

// distribution maps output text to probability mass.
type distribution map[string]float64

func single(text string) distribution {
	return distribution{text: 1}
}

// Probabilities computes the output distribution of a registered rule.
func Probabilities(store *Store, name string, opts AnalysisOptions) (ProbabilityResult, error) {
	rule, ok := store.Lookup(name)
	if !ok {
		return ProbabilityResult{}, fmt.Errorf("%w: %q", types.ErrRuleNotFound, name)
	}

	p := &probabilityAnalyzer{
		analyzer: newAnalyzer(store, opts),
		memo:     make(map[memoKey]distribution),
	}
	dist := p.tokenDistribution(name, "%"+name+"%", make(map[string]bool))
	if rule.Kind() == KindStatic && len(rule.(*StaticRule).Values) == 0 {
		p.warn("rule %q has no values", name)
		dist = distribution{}
	}

	result := ProbabilityResult{
		Rule:      name,
		Kind:      rule.Kind(),
		Outcomes:  dist.sorted(),
		Truncated: p.truncated,
		Warnings:  nonNil(p.warnings),
	}
	result.TotalOutcomes = len(result.Outcomes)
	if result.TotalOutcomes > 0 {
		result.MostProbable = result.Outcomes[0]
		result.LeastProbable = result.Outcomes[result.TotalOutcomes-1]
		sum := 0.0
		for _, o := range result.Outcomes {
			sum += o.Probability
		}
		result.AverageProbability = sum / float64(result.TotalOutcomes)
	}
	result.Entropy = Entropy(result.Outcomes)
	return result, nil
}

// Entropy returns -sum(p*log2(p)) over outcomes with positive probability.
func Entropy(outcomes []Outcome) float64 {
	h := 0.0
	for _, o := range outcomes {
		if o.Probability > 0 {
			h -= o.Probability * math.Log2(o.Probability)
		}
	}
	// -0 reads badly in reports
	if h == 0 {
		return 0
	}
	return h
}

type probabilityAnalyzer struct {
	*analyzer
	truncated bool

	memo map[memoKey]distribution
}

// tokenDistribution is the distribution a forward token for name expands to.
// raw is the token text, used when the rule leaves it in place.
func (p *probabilityAnalyzer) tokenDistribution(name, raw string, path map[string]bool) distribution {
	rule, ok := p.store.Lookup(name)
	if !ok {
		p.warn("missing rule %q", name)
		return single("[missing:" + name + "]")
	}
	if path[name] {
		p.warn("circular reference to %q", name)
		p.cycles[name] = true
		p.pathHits++
		return single("[circular:" + name + "]")
	}
	if len(path) >= p.opts.MaxDepth {
		p.warn("max depth %d reached at %q", p.opts.MaxDepth, name)
		p.pathHits++
		return single("[max-depth:" + name + "]")
	}
	if d, ok := cachedResult(p.analyzer, p.memo, name, path); ok {
		return d
	}

	hits := p.pathHits
	path[name] = true
	d := p.expand(name, rule, raw, path)
	delete(path, name)
	rememberResult(p.analyzer, p.memo, name, path, p.pathHits != hits, d)
	return d
}

func (p *probabilityAnalyzer) expand(name string, rule Rule, raw string, path map[string]bool) distribution {
	switch r := rule.(type) {
	case *FunctionRule:
		p.warn("function rule %q: exact probabilities cannot be determined", name)
		return single("[function:" + name + "]")
	case *StaticRule:
		if len(r.Values) == 0 {
			return single(raw)
		}
		return p.uniform(r.Values, path)
	case *SequentialRule:
		return p.uniform(r.Values, path)
	case *WeightedRule:
		out := distribution{}
		for i, v := range r.Values {
			if r.Weights[i] == 0 {
				continue
			}
			out.mix(p.valueDistribution(v, path), r.Weights[i])
		}
		return p.capped(out)
	case *ConditionalRule:
		out := distribution{}
		branch := 1 / float64(len(r.Conditions))
		for _, c := range r.Conditions {
			out.mix(p.uniform(c.Values, path), branch)
		}
		return p.capped(out)
	case *RangeRule:
		return p.rangeDistribution(r)
	case *TemplateRule:
		return p.templateDistribution(r, path)
	default:
		return single(raw)
	}
}

// uniform mixes the distributions of values with equal weight.
func (p *probabilityAnalyzer) uniform(values []string, path map[string]bool) distribution {
	out := distribution{}
	w := 1 / float64(len(values))
	for _, v := range values {
		out.mix(p.valueDistribution(v, path), w)
	}
	return p.capped(out)
}

// valueDistribution crosses the literal segments and token distributions of v.
func (p *probabilityAnalyzer) valueDistribution(v string, path map[string]bool) distribution {
	out := single("")
	last := 0
	for _, tok := range scanTokens(v) {
		out = out.appendLiteral(v[last:tok.start])
		if tok.backref {
			out = out.appendLiteral(tok.raw)
		} else {
			out = p.cross(out, p.tokenDistribution(tok.name, tok.raw, path))
		}
		last = tok.end
	}
	return out.appendLiteral(v[last:])
}

// templateDistribution crosses each local variable occurrence independently,
// then expands whatever the chosen values reference.
func (p *probabilityAnalyzer) templateDistribution(r *TemplateRule, path map[string]bool) distribution {
	out := single("")
	last := 0
	for _, tok := range scanTokens(r.Template) {
		out = out.appendLiteral(r.Template[last:tok.start])
		values, ok := r.Variables[tok.name]
		if tok.backref || !ok {
			out = out.appendLiteral(tok.raw)
		} else {
			out = p.cross(out, p.uniform(values, path))
		}
		last = tok.end
	}
	return out.appendLiteral(r.Template[last:])
}

func (p *probabilityAnalyzer) rangeDistribution(r *RangeRule) distribution {
	if p.opts.ContinuousRangesInfinite && !r.HasStep() && r.Numeric == NumericFloat {
		p.warn("range rule %q is continuous", r.name)
		return single("[range:" + r.name + "]")
	}
	steps := r.StepCount()
	n := p.opts.MaxOutcomes
	if steps > float64(n) {
		p.truncate(r.name)
	} else {
		n = int(steps)
	}
	out := make(distribution, n)
	w := 1 / steps
	for i := 0; i < n; i++ {
		out[r.valueAt(i)] += w
	}
	return out
}

// capped trims d to the MaxOutcomes most probable entries.
func (p *probabilityAnalyzer) capped(d distribution) distribution {
	if len(d) <= p.opts.MaxOutcomes {
		return d
	}
	p.truncate("")
	kept := d.sorted()[:p.opts.MaxOutcomes]
	out := make(distribution, len(kept))
	for _, o := range kept {
		out[o.Text] = o.Probability
	}
	return out
}

func (p *probabilityAnalyzer) cross(a, b distribution) distribution {
	out, truncated := a.cross(b, p.opts.MaxOutcomes)
	if truncated {
		p.truncate("")
	}
	return p.capped(out)
}

func (p *probabilityAnalyzer) truncate(name string) {
	p.truncated = true
	if name == "" {
		p.warn("outcome limit %d reached; distribution truncated", p.opts.MaxOutcomes)
		return
	}
	p.warn("outcome limit %d reached at %q; distribution truncated", p.opts.MaxOutcomes, name)
}

// mix adds other into d scaled by w.
func (d distribution) mix(other distribution, w float64) {
	for text, prob := range other {
		d[text] += prob * w
	}
}

// cross concatenates pairs of outcomes, multiplying probabilities. When the
// full product would exceed limit pairs, only pairs that can rank among the
// limit most probable are combined and truncated is true.
func (d distribution) cross(other distribution, limit int) (out distribution, truncated bool) {
	if len(d) <= limit && len(other) <= limit && len(d)*len(other) <= limit {
		out = make(distribution, len(d)*len(other))
		for a, pa := range d {
			for b, pb := range other {
				out[a+b] += pa * pb
			}
		}
		return out, false
	}

	left, right := d.sorted(), other.sorted()
	out = make(distribution, limit)
	for i := 0; i < len(left) && i < limit; i++ {
		for j := 0; j < len(right) && (i+1)*(j+1) <= limit; j++ {
			out[left[i].Text+right[j].Text] += left[i].Probability * right[j].Probability
		}
	}
	return out, true
}

func (d distribution) appendLiteral(s string) distribution {
	if s == "" {
		return d
	}
	out := make(distribution, len(d))
	for text, prob := range d {
		out[text+s] += prob
	}
	return out
}

// sorted returns outcomes by descending probability, ties by text.
func (d distribution) sorted() []Outcome {
	out := make([]Outcome, 0, len(d))
	for text, prob := range d {
		if prob <= 0 {
			continue
		}
		out = append(out, Outcome{Text: text, Probability: prob})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Probability != out[j].Probability {
			return out[i].Probability > out[j].Probability
		}
		return out[i].Text < out[j].Text
	})
	return out
}
