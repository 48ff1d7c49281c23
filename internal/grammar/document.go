// Package grammar loads and exports grammar documents.
//
// A document is YAML (or JSON, which yaml.v3 also reads) describing every
// data-expressible rule kind plus built-in modifiers and engine settings:
//
//	rules:
//	  start: ["%hero% met %creature%."]
//	  hero: [Ada, Grace]
//	weighted:
//	  creature: {values: [a dragon, a cat], weights: [0.1, 0.9]}
//	conditional:
//	  greeting:
//	    - when: {rule: hero, op: eq, value: Ada}
//	      values: [Hello Ada]
//	    - default: true
//	      values: [Hi]
//	sequential:
//	  day: {values: [Mon, Tue], cycle: true}
//	ranges:
//	  age: {min: 18, max: 90}
//	templates:
//	  title: {template: "%adj% %noun%", variables: {adj: [Big], noun: [Tale]}}
//	modifiers:
//	  - name: sentence-case
//	settings:
//	  max_depth: 50
//	  seed: 42
//
// Function rules and Go predicates have no data form; Export reports them.
package grammar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solatis/wordloom/internal/english"
	"github.com/solatis/wordloom/internal/rules"
	"github.com/solatis/wordloom/internal/types"
)

// Format selects the encoding used by Marshal.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Document is the data form of a grammar.
type Document struct {
	Rules       map[string][]any                       `yaml:"rules,omitempty" json:"rules,omitempty"`
	Weighted    map[string]types.WeightedDefinition    `yaml:"weighted,omitempty" json:"weighted,omitempty"`
	Conditional map[string][]types.ConditionDefinition `yaml:"conditional,omitempty" json:"conditional,omitempty"`
	Sequential  map[string]types.SequentialDefinition  `yaml:"sequential,omitempty" json:"sequential,omitempty"`
	Ranges      map[string]types.RangeDefinition       `yaml:"ranges,omitempty" json:"ranges,omitempty"`
	Templates   map[string]types.TemplateDefinition    `yaml:"templates,omitempty" json:"templates,omitempty"`
	Modifiers   []types.ModifierDefinition             `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	Settings    *types.Settings                        `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// RuleCount returns the number of rule definitions across all sections.
func (d *Document) RuleCount() int {
	return len(d.Rules) + len(d.Weighted) + len(d.Conditional) +
		len(d.Sequential) + len(d.Ranges) + len(d.Templates)
}

// Load reads a document from a file. root optionally selects an embedded grammar.
func Load(path, root string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grammar %s: %w", path, err)
	}
	doc, err := Parse(data, root)
	if err != nil {
		return nil, fmt.Errorf("grammar %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a YAML or JSON document. Unknown sections are rejected.
// root optionally selects an embedded grammar, e.g. "app.grammars[0]".
func Parse(data []byte, root string) (*Document, error) {
	if root != "" {
		sub, err := selectRoot(data, root)
		if err != nil {
			return nil, err
		}
		data = sub
	}

	doc := &Document{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidGrammar, err)
	}
	return doc, nil
}

// selectRoot decodes data generically, walks root and re-encodes the subtree.
func selectRoot(data []byte, root string) ([]byte, error) {
	path, err := ParsePath(root)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidGrammar, err)
	}
	sub, err := ResolvePath(path, tree)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", root, err)
	}
	if _, ok := sub.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: root %q is not a mapping", types.ErrInvalidGrammar, root)
	}
	return yaml.Marshal(sub)
}

// Marshal encodes the document.
func (d *Document) Marshal(format Format) ([]byte, error) {
	if format == FormatJSON {
		return json.MarshalIndent(d, "", "  ")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Compile validates every definition and returns the rules and modifiers
// it describes. Nothing is registered anywhere.
func (d *Document) Compile() ([]rules.Rule, []rules.Modifier, error) {
	if d.Settings != nil && d.Settings.MaxDepth != 0 && d.Settings.MaxDepth < types.MinMaxDepth {
		return nil, nil, fmt.Errorf("%w: settings max_depth is %d", types.ErrInvalidMaxDepth, d.Settings.MaxDepth)
	}

	var out []rules.Rule

	for _, name := range sortedKeys(d.Rules) {
		values, err := toTexts(d.Rules[name])
		if err != nil {
			return nil, nil, fmt.Errorf("rule %q: %w", name, err)
		}
		r, err := rules.NewStaticRule(name, values)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, r)
	}

	for _, name := range sortedKeys(d.Weighted) {
		def := d.Weighted[name]
		values, err := toTexts(def.Values)
		if err != nil {
			return nil, nil, fmt.Errorf("weighted rule %q: %w", name, err)
		}
		r, err := rules.NewWeightedRule(name, values, def.Weights)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, r)
	}

	for _, name := range sortedKeys(d.Conditional) {
		r, err := compileConditional(name, d.Conditional[name])
		if err != nil {
			return nil, nil, err
		}
		out = append(out, r)
	}

	for _, name := range sortedKeys(d.Sequential) {
		def := d.Sequential[name]
		values, err := toTexts(def.Values)
		if err != nil {
			return nil, nil, fmt.Errorf("sequential rule %q: %w", name, err)
		}
		cycle := def.Cycle == nil || *def.Cycle
		r, err := rules.NewSequentialRule(name, values, cycle)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, r)
	}

	for _, name := range sortedKeys(d.Ranges) {
		r, err := compileRange(name, d.Ranges[name])
		if err != nil {
			return nil, nil, err
		}
		out = append(out, r)
	}

	for _, name := range sortedKeys(d.Templates) {
		def := d.Templates[name]
		vars := make(map[string][]string, len(def.Variables))
		for v, values := range def.Variables {
			texts, err := toTexts(values)
			if err != nil {
				return nil, nil, fmt.Errorf("template rule %q variable %q: %w", name, v, err)
			}
			vars[v] = texts
		}
		r, err := rules.NewTemplateRule(name, def.Template, vars)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, r)
	}

	mods := make([]rules.Modifier, 0, len(d.Modifiers))
	for _, def := range d.Modifiers {
		m, err := english.Lookup(def.Name)
		if err != nil {
			return nil, nil, err
		}
		if def.Priority != nil {
			m.Priority = *def.Priority
		}
		mods = append(mods, m)
	}

	return out, mods, nil
}

func compileConditional(name string, defs []types.ConditionDefinition) (*rules.ConditionalRule, error) {
	conditions := make([]rules.Condition, 0, len(defs))
	for i, def := range defs {
		values, err := toTexts(def.Values)
		if err != nil {
			return nil, fmt.Errorf("conditional rule %q branch %d: %w", name, i, err)
		}
		c := rules.Condition{Default: def.Default, Values: values}
		if def.When != nil {
			pred, err := CompilePredicate(def.When)
			if err != nil {
				return nil, fmt.Errorf("conditional rule %q branch %d: %w", name, i, err)
			}
			when := *def.When
			c.When = pred
			c.Definition = &when
		}
		conditions = append(conditions, c)
	}
	return rules.NewConditionalRule(name, conditions)
}

func compileRange(name string, def types.RangeDefinition) (*rules.RangeRule, error) {
	opts := rules.RangeOptions{}
	switch strings.ToLower(def.Type) {
	case "", "integer", "int":
		opts.Numeric = rules.NumericInteger
	case "float":
		opts.Numeric = rules.NumericFloat
	default:
		return nil, fmt.Errorf("%w: range rule %q has type %q", types.ErrInvalidRange, name, def.Type)
	}
	if def.Step != nil {
		if *def.Step <= 0 {
			return nil, fmt.Errorf("%w: range rule %q has step %v", types.ErrInvalidStep, name, *def.Step)
		}
		opts.Step = *def.Step
	}
	opts.Decimals = def.Decimals
	return rules.NewRangeRule(name, def.Min, def.Max, opts)
}

// Apply compiles the document and registers it on e. A document that fails
// to compile leaves e untouched: no rules, modifiers or settings.
func (d *Document) Apply(e *rules.Engine) error {
	compiled, mods, err := d.Compile()
	if err != nil {
		return err
	}
	if err := e.LoadModifiers(mods); err != nil {
		return err
	}
	e.Register(compiled...)

	// Compile already checked max_depth, so settings cannot fail past here
	if d.Settings != nil && d.Settings.MaxDepth != 0 {
		if err := e.SetMaxDepth(d.Settings.MaxDepth); err != nil {
			return err
		}
	}
	if d.Settings != nil && d.Settings.Seed != nil {
		e.SetRandomSeed(*d.Settings.Seed)
	}
	return nil
}

// Export builds a document from the rules registered on e. The second
// return value names registrations that have no data form: function rules,
// conditional rules with Go predicates and non built-in modifiers.
func Export(e *rules.Engine) (*Document, []string) {
	doc := &Document{}
	var skipped []string

	for _, name := range e.RuleNames(rules.KindStatic) {
		r, _ := e.Rule(rules.KindStatic, name)
		if doc.Rules == nil {
			doc.Rules = make(map[string][]any)
		}
		doc.Rules[name] = fromTexts(r.(*rules.StaticRule).Values)
	}

	for _, name := range e.RuleNames(rules.KindWeighted) {
		r, _ := e.Rule(rules.KindWeighted, name)
		w := r.(*rules.WeightedRule)
		if doc.Weighted == nil {
			doc.Weighted = make(map[string]types.WeightedDefinition)
		}
		doc.Weighted[name] = types.WeightedDefinition{
			Values:  fromTexts(w.Values),
			Weights: append([]float64(nil), w.Weights...),
		}
	}

	for _, name := range e.RuleNames(rules.KindConditional) {
		r, _ := e.Rule(rules.KindConditional, name)
		defs, ok := exportConditional(r.(*rules.ConditionalRule))
		if !ok {
			skipped = append(skipped, "conditional:"+name)
			continue
		}
		if doc.Conditional == nil {
			doc.Conditional = make(map[string][]types.ConditionDefinition)
		}
		doc.Conditional[name] = defs
	}

	for _, name := range e.RuleNames(rules.KindSequential) {
		r, _ := e.Rule(rules.KindSequential, name)
		s := r.(*rules.SequentialRule)
		cycle := s.Cycle
		if doc.Sequential == nil {
			doc.Sequential = make(map[string]types.SequentialDefinition)
		}
		doc.Sequential[name] = types.SequentialDefinition{Values: fromTexts(s.Values), Cycle: &cycle}
	}

	for _, name := range e.RuleNames(rules.KindRange) {
		r, _ := e.Rule(rules.KindRange, name)
		if doc.Ranges == nil {
			doc.Ranges = make(map[string]types.RangeDefinition)
		}
		doc.Ranges[name] = exportRange(r.(*rules.RangeRule))
	}

	for _, name := range e.RuleNames(rules.KindTemplate) {
		r, _ := e.Rule(rules.KindTemplate, name)
		tr := r.(*rules.TemplateRule)
		vars := make(map[string][]any, len(tr.Variables))
		for v, values := range tr.Variables {
			vars[v] = fromTexts(values)
		}
		if doc.Templates == nil {
			doc.Templates = make(map[string]types.TemplateDefinition)
		}
		doc.Templates[name] = types.TemplateDefinition{Template: tr.Template, Variables: vars}
	}

	for _, name := range e.RuleNames(rules.KindFunction) {
		skipped = append(skipped, "function:"+name)
	}

	for _, m := range e.Modifiers() {
		if !english.IsBuiltin(m.Name) {
			skipped = append(skipped, "modifier:"+m.Name)
			continue
		}
		def := types.ModifierDefinition{Name: m.Name}
		if builtin, _ := english.Lookup(m.Name); builtin.Priority != m.Priority {
			p := m.Priority
			def.Priority = &p
		}
		doc.Modifiers = append(doc.Modifiers, def)
	}

	settings := &types.Settings{}
	if e.MaxDepth() != types.DefaultMaxDepth {
		settings.MaxDepth = e.MaxDepth()
	}
	if seed, ok := e.RandomSeed(); ok {
		settings.Seed = &seed
	}
	if settings.MaxDepth != 0 || settings.Seed != nil {
		doc.Settings = settings
	}

	sort.Strings(skipped)
	return doc, skipped
}

func exportConditional(r *rules.ConditionalRule) ([]types.ConditionDefinition, bool) {
	defs := make([]types.ConditionDefinition, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		def := types.ConditionDefinition{Default: c.Default, Values: fromTexts(c.Values)}
		if !c.Default {
			if c.Definition == nil {
				return nil, false
			}
			when := *c.Definition
			def.When = &when
		}
		defs = append(defs, def)
	}
	return defs, true
}

func exportRange(r *rules.RangeRule) types.RangeDefinition {
	def := types.RangeDefinition{Min: r.Min, Max: r.Max, Type: "integer"}
	if r.Numeric == rules.NumericFloat {
		def.Type = "float"
	}
	if r.HasStep() {
		step := r.Step
		def.Step = &step
	}
	if r.Decimals != nil {
		decimals := *r.Decimals
		def.Decimals = &decimals
	}
	return def
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
