package dmn

import "fmt"

// RelationNode evaluates a table of cells. Each row produces a *Context binding
// the column names to the row's cell values; the relation produces the rows as
// a []any.
type RelationNode struct {
	base
	Columns []string
	Rows    [][]Node
}

// NewRelation returns a relation node with the columns and rows.
func NewRelation(name, id string, columns []string, rows ...[]Node) *RelationNode {
	return &RelationNode{base: base{name: name, id: id}, Columns: columns, Rows: rows}
}

func (n *RelationNode) Kind() Kind { return KindRelation }

// Evaluate stops at the first cell that fails, and returns a failure carrying
// the rows completed before it.
func (n *RelationNode) Evaluate(em *EventManager, r *Result) EvaluatorResult {
	defer r.enterScope(r.Context().Clone())()

	rows := make([]any, 0, len(n.Rows))
	for ri, row := range n.Rows {
		if len(row) != len(n.Columns) {
			r.fail(n.id, fmt.Sprintf("Row '%d' on relation '%s' has %d elements, expected %d", ri+1, n.name, len(row), len(n.Columns)), nil)
			return Failure(rows)
		}
		rc := NewContext()
		for ci, cell := range row {
			er, fault := evalChild(cell, em, r)
			if fault != nil || !er.Succeeded() {
				r.fail(n.id, fmt.Sprintf("Error evaluating relation element on position '%d' of row '%d' on relation '%s'", ci+1, ri+1, n.name), fault)
				return Failure(rows)
			}
			rc.Set(n.Columns[ci], er.Value)
		}
		rows = append(rows, rc)
	}
	return Success(rows)
}
