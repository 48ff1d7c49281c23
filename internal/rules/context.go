package rules

import "sort"

// Context records the most recently resolved value of each rule name during a
// parse. Conditional predicates read it and %@name% tokens replay from it.
type Context struct {
	values map[string]string
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{values: make(map[string]string)}
}

// NewContextFrom returns a context seeded with values, for evaluating
// predicates outside a parse.
func NewContextFrom(values map[string]string) *Context {
	c := NewContext()
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Get returns the recorded value for name.
func (c *Context) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Set records value under name, replacing any earlier value.
func (c *Context) Set(name, value string) {
	c.values[name] = value
}

// Has reports whether name has been resolved.
func (c *Context) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Len returns the number of recorded names.
func (c *Context) Len() int {
	return len(c.values)
}

// Clear drops every recorded value.
func (c *Context) Clear() {
	clear(c.values)
}

// Names returns the recorded names in sorted order.
func (c *Context) Names() []string {
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the recorded values.
func (c *Context) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
