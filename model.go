package dmn

import (
	"errors"
	"fmt"
)

var (
	ErrNilNode       = errors.New("nil node")
	ErrMissingID     = errors.New("missing node id")
	ErrDuplicateID   = errors.New("duplicate node id")
	ErrDuplicateName = errors.New("duplicate name")
	ErrSharedNode    = errors.New("node has more than one parent")
	ErrNotTopLevel   = errors.New("node cannot be declared at the top level of a model")
)

// Model is a registry of the decisions and business knowledge models of a
// decision model, by name. A Model is immutable once created and can be shared
// by concurrent evaluations.
//
// A nil *Model has no decisions and no business knowledge models.
type Model struct {
	name      string
	decisions map[string]*DecisionNode
	order     []*DecisionNode
	bkms      map[string]*BKMNode
}

// NewModel registers the decisions and business knowledge models, in order,
// and validates their trees: every node must be non-nil and have a unique,
// non-empty ID, and no node may appear in more than one place. The names of
// decisions and business knowledge models must be unique.
//
// References between nodes, such as required decisions and invoked business knowledge
// models, are resolved when the model is evaluated.
func NewModel(name string, nodes ...Node) (*Model, error) {
	m := &Model{
		name:      name,
		decisions: map[string]*DecisionNode{},
		bkms:      map[string]*BKMNode{},
	}

	ids := map[string]bool{}
	seen := map[Node]bool{}

	for i, n := range nodes {
		switch t := n.(type) {
		case nil:
			return nil, fmt.Errorf("model %s: node on position %d: %w", name, i+1, ErrNilNode)
		case *DecisionNode:
			if _, ok := m.decisions[t.name]; ok {
				return nil, fmt.Errorf("model %s: decision %s: %w", name, t.name, ErrDuplicateName)
			}
			m.decisions[t.name] = t
			m.order = append(m.order, t)
		case *BKMNode:
			if _, ok := m.bkms[t.name]; ok {
				return nil, fmt.Errorf("model %s: business knowledge model %s: %w", name, t.name, ErrDuplicateName)
			}
			m.bkms[t.name] = t
		default:
			return nil, fmt.Errorf("model %s: %s node %s: %w", name, n.Kind(), n.ID(), ErrNotTopLevel)
		}

		err := Walk(n, func(c Node, _ int) error {
			if c == nil {
				return fmt.Errorf("model %s: in %s: %w", name, n.ID(), ErrNilNode)
			}
			if seen[c] {
				return fmt.Errorf("model %s: node %s: %w", name, c.ID(), ErrSharedNode)
			}
			seen[c] = true
			if c.ID() == "" {
				return fmt.Errorf("model %s: %s node %q: %w", name, c.Kind(), c.Name(), ErrMissingID)
			}
			if ids[c.ID()] {
				return fmt.Errorf("model %s: %s: %w", name, c.ID(), ErrDuplicateID)
			}
			ids[c.ID()] = true
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Name returns the name of the model.
func (m *Model) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

// Decision returns the decision with the name, or nil.
func (m *Model) Decision(name string) *DecisionNode {
	if m == nil {
		return nil
	}
	return m.decisions[name]
}

// BKM returns the business knowledge model with the name, or nil.
func (m *Model) BKM(name string) *BKMNode {
	if m == nil {
		return nil
	}
	return m.bkms[name]
}

// Decisions returns the decisions, in the order they were declared.
func (m *Model) Decisions() []*DecisionNode {
	if m == nil {
		return nil
	}
	out := make([]*DecisionNode, len(m.order))
	copy(out, m.order)
	return out
}
