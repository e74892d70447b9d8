package dmn

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DecisionStatus is the evaluation state of a decision within one Result.
type DecisionStatus int

const (
	StatusNotEvaluated DecisionStatus = iota
	StatusEvaluating
	StatusSucceeded
	StatusFailed
	// The decision was not evaluated because a decision it requires failed.
	StatusSkipped
)

func (s DecisionStatus) String() string {
	switch s {
	case StatusNotEvaluated:
		return "NOT_EVALUATED"
	case StatusEvaluating:
		return "EVALUATING"
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusFailed:
		return "FAILED"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return fmt.Sprintf("DecisionStatus(%d)", int(s))
	}
}

// Result accumulates the outcome of one top-level evaluation: the current
// context, the decision values, and the diagnostic messages in the order
// they were produced.
//
// A Result is owned by a single evaluation and must not be shared between
// goroutines while the evaluation is running.
type Result struct {
	id string

	// The context that expressions are currently evaluated in.
	// Composite nodes replace it while they evaluate their children.
	context *Context

	decisions map[string]any
	// Names of the recorded decisions, in the order they were first recorded
	order  []string
	status map[string]DecisionStatus

	messages []Message

	// Outcome of the root node
	outcome EvaluatorResult

	// Number of nodes evaluated
	evaluated int

	session *session
}

// NewResult returns a Result whose current context is c. The Engine creates
// one Result per evaluation; NewResult is useful when evaluating a node
// directly.
func NewResult(c *Context) *Result {
	if c == nil {
		c = NewContext()
	}
	return newResult(c, newSession(nil, c, defaultEngineOptions()))
}

func newResult(c *Context, s *session) *Result {
	return &Result{
		id:        uuid.NewString(),
		context:   c,
		decisions: map[string]any{},
		status:    map[string]DecisionStatus{},
		session:   s,
	}
}

// RequestID uniquely identifies the evaluation that produced the Result.
func (r *Result) RequestID() string {
	return r.id
}

// Context returns the current context.
func (r *Result) Context() *Context {
	return r.context
}

// SetContext installs c as the current context.
func (r *Result) SetContext(c *Context) {
	r.context = c
}

// enterScope installs c as the current context, and returns a function that
// reinstates the context that was current before. Call it deferred:
//
//	defer r.enterScope(r.Context().Clone())()
func (r *Result) enterScope(c *Context) (restore func()) {
	previous := r.context
	r.context = c
	return func() {
		r.context = previous
	}
}

// AddMessage appends a diagnostic message.
func (r *Result) AddMessage(severity Severity, text string, nodeID string, cause error) {
	r.messages = append(r.messages, Message{
		Severity: severity,
		Text:     text,
		SourceID: nodeID,
		Cause:    cause,
	})
}

// fail appends an ERROR message and logs it.
func (r *Result) fail(nodeID string, text string, cause error) {
	r.AddMessage(SeverityError, text, nodeID, cause)
	attrs := []any{"request", r.id, "node", nodeID}
	if cause != nil {
		attrs = append(attrs, "cause", cause)
	}
	r.session.logger.Error(text, attrs...)
}

// warn appends a WARN message and logs it.
func (r *Result) warn(nodeID string, text string) {
	r.AddMessage(SeverityWarn, text, nodeID, nil)
	r.session.logger.Warn(text, "request", r.id, "node", nodeID)
}

// RecordDecision stores the value of the decision. Recording a decision that
// already has a value replaces it.
func (r *Result) RecordDecision(name string, value any) {
	if _, ok := r.decisions[name]; !ok {
		r.order = append(r.order, name)
	}
	r.decisions[name] = value
	r.status[name] = StatusSucceeded
}

func (r *Result) setStatus(name string, s DecisionStatus) {
	r.status[name] = s
}

// Decision returns the value of the decision, if it was successfully evaluated.
func (r *Result) Decision(name string) (any, bool) {
	v, ok := r.decisions[name]
	return v, ok
}

// Decisions returns a copy of the decision values, keyed by decision name.
func (r *Result) Decisions() map[string]any {
	return maps.Clone(r.decisions)
}

// DecisionNames returns the names of the recorded decisions, in the order they
// were first recorded.
func (r *Result) DecisionNames() []string {
	return slices.Clone(r.order)
}

// DecisionStatus returns the evaluation status of the decision.
func (r *Result) DecisionStatus(name string) DecisionStatus {
	return r.status[name]
}

// Messages returns a copy of the messages, in the order they were added.
func (r *Result) Messages() []Message {
	return slices.Clone(r.messages)
}

// MessagesWith returns the messages with the severity, in the order they were added.
func (r *Result) MessagesWith(s Severity) []Message {
	var l []Message
	for _, m := range r.messages {
		if m.Severity == s {
			l = append(l, m)
		}
	}
	return l
}

// HasErrors reports whether any ERROR message was added.
func (r *Result) HasErrors() bool {
	return slices.ContainsFunc(r.messages, func(m Message) bool {
		return m.Severity == SeverityError
	})
}

// Outcome is the result of evaluating the root node.
func (r *Result) Outcome() EvaluatorResult {
	return r.outcome
}

// NodesEvaluated is the number of nodes evaluated.
func (r *Result) NodesEvaluated() int {
	return r.evaluated
}

// String produces a table of the decisions evaluated and their values, followed
// by a table of the messages.
func (r *Result) String() string {
	style := table.StyleLight
	style.Format.Header = text.FormatDefault

	dt := table.NewWriter()
	dt.SetTitle("\nDMN RESULT SUMMARY\n")
	dt.AppendHeader(table.Row{"Decision", "Status", "Value"})
	for _, name := range r.decisionRows() {
		v, ok := r.decisions[name]
		value := ""
		if ok {
			value = fmt.Sprintf("%v", v)
		}
		dt.AppendRow(table.Row{name, r.status[name].String(), value})
	}
	dt.SetStyle(style)

	mt := table.NewWriter()
	mt.SetTitle("\nMESSAGES\n")
	mt.AppendHeader(table.Row{"#", "Severity", "Node", "Message", "Cause"})
	for i, m := range r.messages {
		mt.AppendRow(table.Row{i + 1, m.Severity.String(), m.SourceID, m.Text, m.CauseText()})
	}
	mt.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 60},
		{Number: 5, WidthMax: 40},
	})
	mt.SetStyle(style)

	return dt.Render() + "\n" + mt.Render()
}

// decisionRows lists the recorded decisions, followed by decisions that have a
// status but no value, sorted by name.
func (r *Result) decisionRows() []string {
	rows := slices.Clone(r.order)
	var rest []string
	for name := range r.status {
		if _, ok := r.decisions[name]; !ok {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(rows, rest...)
}
