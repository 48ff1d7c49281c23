package rules

import "sort"

// slot holds at most one rule per kind for a single name, indexed by Kind.
type slot [kindCount]Rule

// empty reports whether no kind occupies the slot.
func (s *slot) empty() bool {
	for _, r := range s {
		if r != nil {
			return false
		}
	}
	return true
}

// Store is the rule table: name -> slot. A name may back several kinds;
// Lookup and Resolve only ever see the highest-priority one, while Has and
// Remove address each kind individually.
//
// Not safe for concurrent use.
type Store struct {
	slots  map[string]*slot
	counts [kindCount]int
}

// NewStore returns an empty rule table.
func NewStore() *Store {
	return &Store{slots: make(map[string]*slot)}
}

// Add registers r, replacing any rule of the same kind and name.
func (s *Store) Add(r Rule) {
	sl, ok := s.slots[r.Name()]
	if !ok {
		sl = &slot{}
		s.slots[r.Name()] = sl
	}
	if sl[r.Kind()] == nil {
		s.counts[r.Kind()]++
	}
	sl[r.Kind()] = r
}

// Get returns the rule of the given kind registered under name.
func (s *Store) Get(kind Kind, name string) (Rule, bool) {
	if kind <= KindUnspecified || kind >= kindCount {
		return nil, false
	}
	sl, ok := s.slots[name]
	if !ok || sl[kind] == nil {
		return nil, false
	}
	return sl[kind], true
}

// Has reports whether name is registered under kind.
func (s *Store) Has(kind Kind, name string) bool {
	_, ok := s.Get(kind, name)
	return ok
}

// Remove deletes the rule of kind under name. Reports whether one existed.
func (s *Store) Remove(kind Kind, name string) bool {
	if !s.Has(kind, name) {
		return false
	}
	sl := s.slots[name]
	sl[kind] = nil
	s.counts[kind]--
	if sl.empty() {
		delete(s.slots, name)
	}
	return true
}

// Clear deletes every rule of kind and returns how many were removed.
func (s *Store) Clear(kind Kind) int {
	removed := 0
	for _, name := range s.NamesOf(kind) {
		if s.Remove(kind, name) {
			removed++
		}
	}
	return removed
}

// HasAny reports whether name is registered under any kind.
func (s *Store) HasAny(name string) bool {
	_, ok := s.slots[name]
	return ok
}

// RemoveAny deletes name from every kind. Reports whether anything was removed.
func (s *Store) RemoveAny(name string) bool {
	sl, ok := s.slots[name]
	if !ok {
		return false
	}
	for k, r := range sl {
		if r != nil {
			s.counts[k]--
		}
	}
	delete(s.slots, name)
	return true
}

// ClearAll deletes every rule.
func (s *Store) ClearAll() {
	clear(s.slots)
	s.counts = [kindCount]int{}
}

// Lookup returns the rule Resolve would dispatch to for name.
func (s *Store) Lookup(name string) (Rule, bool) {
	sl, ok := s.slots[name]
	if !ok {
		return nil, false
	}
	for _, k := range resolutionOrder {
		if sl[k] != nil {
			return sl[k], true
		}
	}
	return nil, false
}

// KindOf returns the kind Resolve would dispatch to for name.
func (s *Store) KindOf(name string) (Kind, bool) {
	r, ok := s.Lookup(name)
	if !ok {
		return KindUnspecified, false
	}
	return r.Kind(), true
}

// KindsOf returns every kind registered under name, in resolution order.
func (s *Store) KindsOf(name string) []Kind {
	sl, ok := s.slots[name]
	if !ok {
		return nil
	}
	var kinds []Kind
	for _, k := range resolutionOrder {
		if sl[k] != nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Names returns every registered name in sorted order.
// Sorted for deterministic analysis and export output.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.slots))
	for name := range s.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamesOf returns the names registered under kind in sorted order.
func (s *Store) NamesOf(kind Kind) []string {
	var names []string
	for name, sl := range s.slots {
		if kind > KindUnspecified && kind < kindCount && sl[kind] != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Count returns the number of rules of kind.
func (s *Store) Count(kind Kind) int {
	if kind <= KindUnspecified || kind >= kindCount {
		return 0
	}
	return s.counts[kind]
}

// Len returns the number of distinct registered names.
func (s *Store) Len() int {
	return len(s.slots)
}

// staticRules returns every static rule, sorted by name.
func (s *Store) staticRules() []*StaticRule {
	names := s.NamesOf(KindStatic)
	out := make([]*StaticRule, 0, len(names))
	for _, name := range names {
		out = append(out, s.slots[name][KindStatic].(*StaticRule))
	}
	return out
}
