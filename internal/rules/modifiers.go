// internal/rules/modifiers.go
package rules

import (
	"fmt"
	"sort"

	"github.com/solatis/wordloom/internal/types"
)

/*
 * Modifier pipeline.
 *
 * Modifiers post-process expanded text. Apply folds the text through every
 * modifier in descending priority; equal priorities keep registration order
 * (stable sort). Each modifier sees the cumulative output of the ones before
 * it and fires at most once per pass.
 *
 * Re-adding a name replaces the modifier but keeps its original registration
 * slot for tie-breaking.
 */

// ModifierContext is the side channel passed to modifiers.
type ModifierContext struct {
	Input  string            // raw text given to Parse, before expansion
	Values map[string]string // parse context snapshot
}

// Modifier transforms expanded text when its condition holds.
// A nil Condition always matches.
type Modifier struct {
	Name      string
	Priority  int
	Condition func(text string, mc ModifierContext) bool
	Transform func(text string, mc ModifierContext) string
}

type registeredModifier struct {
	Modifier
	order int
}

// Pipeline holds named modifiers. Not safe for concurrent use.
type Pipeline struct {
	modifiers map[string]*registeredModifier
	nextOrder int
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{modifiers: make(map[string]*registeredModifier)}
}

func validateModifier(m Modifier) error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is empty", types.ErrInvalidModifier)
	}
	if m.Transform == nil {
		return fmt.Errorf("%w: %q has no transform", types.ErrInvalidModifier, m.Name)
	}
	return nil
}

// Add registers m, replacing a modifier of the same name.
func (p *Pipeline) Add(m Modifier) error {
	if err := validateModifier(m); err != nil {
		return err
	}
	if existing, ok := p.modifiers[m.Name]; ok {
		existing.Modifier = m
		return nil
	}
	p.modifiers[m.Name] = &registeredModifier{Modifier: m, order: p.nextOrder}
	p.nextOrder++
	return nil
}

// Load registers every modifier or none: all are validated before any is added.
func (p *Pipeline) Load(ms []Modifier) error {
	for _, m := range ms {
		if err := validateModifier(m); err != nil {
			return err
		}
	}
	for _, m := range ms {
		_ = p.Add(m)
	}
	return nil
}

// Remove deletes the named modifier. Reports whether it existed.
func (p *Pipeline) Remove(name string) bool {
	if _, ok := p.modifiers[name]; !ok {
		return false
	}
	delete(p.modifiers, name)
	return true
}

// Has reports whether a modifier is registered under name.
func (p *Pipeline) Has(name string) bool {
	_, ok := p.modifiers[name]
	return ok
}

// Clear removes every modifier.
func (p *Pipeline) Clear() {
	clear(p.modifiers)
}

// Len returns the number of registered modifiers.
func (p *Pipeline) Len() int {
	return len(p.modifiers)
}

// Ordered returns the modifiers in application order.
func (p *Pipeline) Ordered() []Modifier {
	regs := make([]*registeredModifier, 0, len(p.modifiers))
	for _, m := range p.modifiers {
		regs = append(regs, m)
	}
	// Map iteration is random; sort by registration order first so the
	// stable priority sort has a deterministic base.
	sort.Slice(regs, func(i, j int) bool { return regs[i].order < regs[j].order })
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].Priority > regs[j].Priority })

	out := make([]Modifier, len(regs))
	for i, r := range regs {
		out[i] = r.Modifier
	}
	return out
}

// Apply folds text through every matching modifier.
func (p *Pipeline) Apply(text string, mc ModifierContext) string {
	current := text
	for _, m := range p.Ordered() {
		if m.Condition != nil && !m.Condition(current, mc) {
			continue
		}
		current = m.Transform(current, mc)
	}
	return current
}
