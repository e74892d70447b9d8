package dmn_test

import (
	"errors"
	"testing"

	"github.com/ezachrisen/dmn"
	"github.com/matryer/is"
)

func TestNewModel(t *testing.T) {
	is := is.New(t)

	a := dmn.NewDecision("A", "a", constant("a.v", 1))
	b := dmn.NewDecision("B", "b", constant("b.v", 2)).WithRequires("A")
	f := dmn.NewBKM("F", "f", []string{"x"}, variable("f.x", "x"))

	m, err := dmn.NewModel("m", b, f, a)
	is.NoErr(err)
	is.Equal(m.Name(), "m")
	is.Equal(m.Decision("A"), a)
	is.Equal(m.BKM("F"), f)
	is.Equal(m.Decision("F"), nil)
	is.Equal(m.Decisions(), []*dmn.DecisionNode{b, a})

	// The returned slice is a copy
	m.Decisions()[0] = nil
	is.Equal(m.Decisions()[0], b)
}

func TestNilModel(t *testing.T) {
	is := is.New(t)
	var m *dmn.Model
	is.Equal(m.Name(), "")
	is.Equal(m.Decision("A"), nil)
	is.Equal(m.BKM("F"), nil)
	is.Equal(len(m.Decisions()), 0)
}

func TestNewModelErrors(t *testing.T) {
	shared := constant("shared", 1)

	cases := map[string]struct {
		nodes []dmn.Node
		err   error
	}{
		"nil node": {
			nodes: []dmn.Node{nil},
			err:   dmn.ErrNilNode,
		},
		"nil child": {
			nodes: []dmn.Node{dmn.NewDecision("A", "a", nil)},
			err:   dmn.ErrNilNode,
		},
		"missing id": {
			nodes: []dmn.Node{dmn.NewDecision("A", "a", dmn.NewConstant("v", "", 1))},
			err:   dmn.ErrMissingID,
		},
		"duplicate id": {
			nodes: []dmn.Node{
				dmn.NewDecision("A", "a", constant("v", 1)),
				dmn.NewDecision("B", "b", constant("v", 2)),
			},
			err: dmn.ErrDuplicateID,
		},
		"duplicate decision": {
			nodes: []dmn.Node{
				dmn.NewDecision("A", "a1", constant("a1.v", 1)),
				dmn.NewDecision("A", "a2", constant("a2.v", 2)),
			},
			err: dmn.ErrDuplicateName,
		},
		"duplicate bkm": {
			nodes: []dmn.Node{
				dmn.NewBKM("F", "f1", nil, constant("f1.v", 1)),
				dmn.NewBKM("F", "f2", nil, constant("f2.v", 2)),
			},
			err: dmn.ErrDuplicateName,
		},
		"shared node": {
			nodes: []dmn.Node{
				dmn.NewDecision("A", "a", shared),
				dmn.NewDecision("B", "b", dmn.NewList("l", "b.l", shared)),
			},
			err: dmn.ErrSharedNode,
		},
		"not top level": {
			nodes: []dmn.Node{constant("v", 1)},
			err:   dmn.ErrNotTopLevel,
		},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			m, err := dmn.NewModel("bad", c.nodes...)
			is.True(errors.Is(err, c.err))
			is.Equal(m, nil)
		})
	}
}
