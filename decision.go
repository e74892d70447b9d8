package dmn

import "fmt"

// DecisionNode is a named decision. Before its body is evaluated, the decision
// binds its required inputs and the values of the decisions it requires into
// its own scope. The value of the body is recorded in the Result under the
// decision's name.
type DecisionNode struct {
	base

	// Names of the input data the body refers to. A missing input is bound to
	// nil and reported with a WARN message, or an ERROR in strict mode.
	InputData []string

	// Names of the decisions that must be evaluated before this one. They are
	// resolved through the model and evaluated in the input context of the
	// request.
	Requires []string

	Body Node
}

// NewDecision returns a decision node with the body.
func NewDecision(name, id string, body Node) *DecisionNode {
	return &DecisionNode{base: base{name: name, id: id}, Body: body}
}

// WithInputs sets the required input data and returns the node.
func (n *DecisionNode) WithInputs(names ...string) *DecisionNode {
	n.InputData = names
	return n
}

// WithRequires sets the required decisions and returns the node.
func (n *DecisionNode) WithRequires(names ...string) *DecisionNode {
	n.Requires = names
	return n
}

func (n *DecisionNode) Kind() Kind { return KindDecision }

func (n *DecisionNode) Evaluate(em *EventManager, r *Result) (res EvaluatorResult) {
	em.beforeDecision(n, r)
	defer func() {
		if r.DecisionStatus(n.name) == StatusEvaluating {
			r.setStatus(n.name, StatusFailed)
		}
		em.afterDecision(n, r, res)
	}()

	s := r.session
	if !s.descend(r, n) {
		r.setStatus(n.name, StatusFailed)
		return Failure(nil)
	}
	defer s.ascend()

	r.setStatus(n.name, StatusEvaluating)
	defer r.enterScope(r.Context().Clone())()

	for _, name := range n.InputData {
		if r.Context().Has(name) {
			continue
		}
		text := fmt.Sprintf("Required input '%s' not found on decision '%s'", name, n.name)
		if s.opts.StrictInputs {
			r.fail(n.id, text, nil)
			return Failure(nil)
		}
		r.warn(n.id, text)
		r.Context().Set(name, nil)
	}

	for i, name := range n.Requires {
		er, fault := s.requireDecision(em, r, name, n)
		if fault != nil || !er.Succeeded() {
			r.fail(n.id, fmt.Sprintf("Required dependency '%s' on position '%d' failed for decision '%s'", name, i+1, n.name), fault)
			r.setStatus(n.name, StatusSkipped)
			return Failure(nil)
		}
		r.Context().Set(name, er.Value)
	}

	er, fault := evalChild(n.Body, em, r)
	if fault != nil || !er.Succeeded() {
		r.fail(n.id, fmt.Sprintf("Error evaluating expression of decision '%s'", n.name), fault)
		r.setStatus(n.name, StatusFailed)
		return Failure(er.Value)
	}
	r.RecordDecision(n.name, er.Value)
	return Success(er.Value)
}
