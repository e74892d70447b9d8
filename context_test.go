package dmn_test

import (
	"testing"

	"github.com/ezachrisen/dmn"
	"github.com/google/go-cmp/cmp"
	"github.com/matryer/is"
)

func TestContextCloneIsolation(t *testing.T) {
	is := is.New(t)

	c := dmn.NewContext()
	c.Set("a", 1)
	clone := c.Clone()
	clone.Set("b", 2)
	clone.Set("a", 10)

	is.Equal(c.Len(), 1)
	a, _ := c.Get("a")
	is.Equal(a, 1)
	is.True(!c.Has("b"))

	a, _ = clone.Get("a")
	is.Equal(a, 10)
	is.Equal(clone.Names(), []string{"a", "b"})
}

func TestContextFrom(t *testing.T) {
	is := is.New(t)

	c := dmn.ContextFrom(map[string]any{
		"z": 1,
		"a": map[string]any{"x": true},
		"m": []any{map[string]any{"k": "v"}},
	})
	is.Equal(c.Names(), []string{"a", "m", "z"})

	a, _ := c.Get("a")
	nested, ok := a.(*dmn.Context)
	is.True(ok)
	x, _ := nested.Get("x")
	is.Equal(x, true)

	want := map[string]any{
		"z": 1,
		"a": map[string]any{"x": true},
		"m": []any{map[string]any{"k": "v"}},
	}
	if diff := cmp.Diff(want, c.Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
}

func TestNilContext(t *testing.T) {
	is := is.New(t)
	var c *dmn.Context

	_, ok := c.Get("x")
	is.True(!ok)
	is.Equal(c.Len(), 0)
	is.Equal(len(c.Names()), 0)
	is.Equal(len(c.Map()), 0)
	is.Equal(c.String(), "{}")
	is.Equal(c.Clone().Len(), 0)
}

func TestContextString(t *testing.T) {
	is := is.New(t)
	c := dmn.NewContext()
	c.Set("b", 2)
	c.Set("a", "x")
	is.Equal(c.String(), "{b: 2, a: x}")
}

func TestZeroContextSet(t *testing.T) {
	is := is.New(t)
	var c dmn.Context
	c.Set("a", 1)
	is.True(c.Has("a"))
}
