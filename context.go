package dmn

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Context is an ordered set of named values, visible to the expressions
// evaluated in it. Values are scalars, []any lists, nested *Context values or nil.
//
// Names are case sensitive. A Context obtained from Clone is an independent
// snapshot: bindings made on the copy are never visible in the original.
//
// A nil *Context behaves as an empty context for reads.
type Context struct {
	names  []string
	values map[string]any
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{values: map[string]any{}}
}

// ContextFrom returns a context holding the entries of m, bound in name order.
// Nested map[string]any values are converted to contexts.
func ContextFrom(m map[string]any) *Context {
	c := &Context{
		names:  make([]string, 0, len(m)),
		values: make(map[string]any, len(m)),
	}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		c.Set(k, fromNative(m[k]))
	}
	return c
}

// Clone returns a copy of the context. Values are shared with the original;
// bindings are not.
func (c *Context) Clone() *Context {
	if c == nil {
		return NewContext()
	}
	return &Context{
		names:  slices.Clone(c.names),
		values: maps.Clone(c.values),
	}
}

// Set binds the value to the name, replacing any existing binding.
// Set must not be called on a nil Context.
func (c *Context) Set(name string, value any) {
	if c.values == nil {
		c.values = map[string]any{}
	}
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] = value
}

// Get returns the value bound to the name, and whether a binding exists.
func (c *Context) Get(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[name]
	return v, ok
}

// Has reports whether the name is bound.
func (c *Context) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Names returns the bound names in the order they were first bound.
func (c *Context) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.names)
}

// Len is the number of bindings.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Map returns the bindings as a map. Nested contexts, including contexts
// inside lists, are converted to maps as well.
func (c *Context) Map() map[string]any {
	m := make(map[string]any, c.Len())
	if c == nil {
		return m
	}
	for _, k := range c.names {
		m[k] = PlainValue(c.values[k])
	}
	return m
}

func (c *Context) String() string {
	if c == nil {
		return "{}"
	}
	s := strings.Builder{}
	s.WriteString("{")
	for i, k := range c.names {
		if i > 0 {
			s.WriteString(", ")
		}
		fmt.Fprintf(&s, "%s: %v", k, c.values[k])
	}
	s.WriteString("}")
	return s.String()
}

// PlainValue converts nested *Context values inside v to map[string]any,
// leaving every other value unchanged. Expression languages use it to present
// decision values in their native collection types.
func PlainValue(v any) any {
	switch t := v.(type) {
	case *Context:
		return t.Map()
	case []any:
		l := make([]any, len(t))
		for i := range t {
			l[i] = PlainValue(t[i])
		}
		return l
	default:
		return v
	}
}

// fromNative is the reverse of PlainValue.
func fromNative(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return ContextFrom(t)
	case []any:
		l := make([]any, len(t))
		for i := range t {
			l[i] = fromNative(t[i])
		}
		return l
	default:
		return v
	}
}
