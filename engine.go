package dmn

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Engine evaluates the nodes of decision models. An Engine holds no state
// about individual evaluations and can be used by many goroutines at once.
type Engine struct {

	// Listeners notified of every evaluation run by this engine
	events *EventManager

	// Options used by the engine during evaluation
	opts EngineOptions
}

const defaultMaxDepth = 64

// See the functional definitions below for the meaning.
type EngineOptions struct {
	Memoize      bool
	MaxDepth     int
	StrictInputs bool
	Logger       *slog.Logger
	Listeners    []Listener
}

type EngineOption func(f *EngineOptions)

func defaultEngineOptions() EngineOptions {
	return EngineOptions{
		Memoize:  true,
		MaxDepth: defaultMaxDepth,
		Logger:   slog.New(slog.DiscardHandler),
	}
}

// Given an array of EngineOption functions, apply their effect
// on the EngineOptions struct.
func applyEngineOptions(o *EngineOptions, opts ...EngineOption) {
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaultMaxDepth
	}
}

// Register listeners with the engine's event manager, after any listeners
// registered by earlier options.
func WithListeners(l ...Listener) EngineOption {
	return func(f *EngineOptions) {
		f.Listeners = append(f.Listeners, l...)
	}
}

// Log evaluation failures, and listener faults, to the logger.
// Default: discard
func WithLogger(l *slog.Logger) EngineOption {
	return func(f *EngineOptions) {
		f.Logger = l
	}
}

// Remember the outcome of each decision for the rest of the request, so that
// a decision required by several others is evaluated once.
// Default: on
func WithMemoization(b bool) EngineOption {
	return func(f *EngineOptions) {
		f.Memoize = b
	}
}

// Limit the nesting of decisions and invocations. A limit of zero or less
// selects the default; the nesting is always limited.
// Default: 64
func WithMaxDepth(n int) EngineOption {
	return func(f *EngineOptions) {
		f.MaxDepth = n
	}
}

// Report a missing required input as an ERROR that fails the decision,
// rather than as a WARN.
// Default: off
func WithStrictInputs(b bool) EngineOption {
	return func(f *EngineOptions) {
		f.StrictInputs = b
	}
}

// Initialize a new engine
func NewEngine(opts ...EngineOption) *Engine {
	e := Engine{opts: defaultEngineOptions()}
	applyEngineOptions(&e.opts, opts...)
	e.events = NewEventManager(e.opts.Listeners...)
	return &e
}

// Events returns the engine's event manager. Listeners added to it are
// notified by evaluations that start afterwards.
func (e *Engine) Events() *EventManager {
	return e.events
}

// Options returns the options the engine was created with.
func (e *Engine) Options() EngineOptions {
	return e.opts
}

// Evaluate evaluates the root node against the input and returns the Result.
// The input is not modified. Model may be nil if the tree neither requires
// decisions nor invokes business knowledge models.
//
// Evaluate never panics and always returns a Result; failures are reported
// as messages in the Result.
func (e *Engine) Evaluate(m *Model, root Node, input *Context) *Result {
	c := input.Clone()
	s := newSession(m, c, e.opts)
	r := newResult(c, s)

	if root == nil {
		r.fail("", "Missing root node", nil)
		return r
	}

	r.outcome = e.evaluateRoot(root, r)
	return r
}

// evaluateRoot evaluates the root node, recovering a fault that escaped it.
func (e *Engine) evaluateRoot(root Node, r *Result) (res EvaluatorResult) {
	previous := r.Context()
	defer func() {
		if p := recover(); p != nil {
			r.SetContext(previous)
			r.fail(root.ID(), fmt.Sprintf("Unexpected fault evaluating '%s'", root.Name()), errors.WithStack(&Fault{Value: p}))
			res = Failure(nil)
		}
	}()
	r.evaluated++
	return root.Evaluate(e.events, r)
}

// EvaluateDecision evaluates the decision of the model with the name.
func (e *Engine) EvaluateDecision(m *Model, name string, input *Context) *Result {
	d := m.Decision(name)
	if d == nil {
		r := newResult(input.Clone(), newSession(m, input.Clone(), e.opts))
		r.fail("", fmt.Sprintf("Decision '%s' not found in model '%s'", name, m.Name()), nil)
		return r
	}
	return e.Evaluate(m, d, input)
}

// EvaluateAll evaluates every decision of the model, in declared order, into
// one Result. Decisions that were already evaluated as a requirement of an
// earlier decision are not evaluated again when memoization is on.
// The outcome is a success holding the decision values if no decision failed.
func (e *Engine) EvaluateAll(m *Model, input *Context) *Result {
	c := input.Clone()
	s := newSession(m, c, e.opts)
	r := newResult(c, s)

	ok := true
	for i, d := range m.Decisions() {
		er, fault := s.requireDecision(e.events, r, d.Name(), d)
		if fault != nil {
			r.fail(d.ID(), fmt.Sprintf("Error evaluating decision '%s' on position '%d' of model '%s'", d.Name(), i+1, m.Name()), fault)
		}
		if fault != nil || !er.Succeeded() {
			ok = false
		}
	}

	if ok {
		r.outcome = Success(r.Decisions())
	} else {
		r.outcome = Failure(r.Decisions())
	}
	return r
}

// EvaluateBatch evaluates the root node against each of the inputs
// concurrently, running at most limit evaluations at a time. A limit of zero
// or less runs all evaluations at once.
//
// The results are in the order of the inputs. If ctx is cancelled before all
// evaluations have started, EvaluateBatch returns the context's error; the
// results of evaluations that never started are nil.
func (e *Engine) EvaluateBatch(ctx context.Context, m *Model, root Node, inputs []*Context, limit int) ([]*Result, error) {
	results := make([]*Result, len(inputs))

	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = e.Evaluate(m, root, in)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		for _, r := range results {
			if r == nil {
				return results, err
			}
		}
	}
	return results, nil
}

// session holds the engine state of one request.
type session struct {
	model *Model

	// The input context of the request; required decisions are evaluated in it
	input *Context

	opts   EngineOptions
	logger *slog.Logger

	// Current nesting of decisions and invocations
	depth int
}

func newSession(m *Model, input *Context, opts EngineOptions) *session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	return &session{
		model:  m,
		input:  input,
		opts:   opts,
		logger: logger,
	}
}

// descend enters one level of nesting. If that exceeds the maximum depth, it
// reports an ERROR on the node and returns false without entering.
func (s *session) descend(r *Result, n Node) bool {
	if s.depth >= s.opts.MaxDepth {
		r.fail(n.ID(), fmt.Sprintf("Maximum evaluation depth of %d exceeded on node '%s'", s.opts.MaxDepth, n.Name()), nil)
		return false
	}
	s.depth++
	return true
}

func (s *session) ascend() {
	s.depth--
}

// requireDecision resolves the named decision on behalf of the node and
// returns its outcome. A decision that was already evaluated in this request
// is not evaluated again when memoization is on, and fires no events.
func (s *session) requireDecision(em *EventManager, r *Result, name string, from Node) (EvaluatorResult, error) {
	d := s.model.Decision(name)
	if d == nil {
		r.fail(from.ID(), fmt.Sprintf("Required decision '%s' not found for node '%s'", name, from.Name()), nil)
		return Failure(nil), nil
	}

	switch r.DecisionStatus(name) {
	case StatusEvaluating:
		r.fail(from.ID(), fmt.Sprintf("Circular dependency on decision '%s' detected while evaluating '%s'", name, from.Name()), nil)
		return Failure(nil), nil
	case StatusSucceeded:
		if s.opts.Memoize {
			v, _ := r.Decision(name)
			return Success(v), nil
		}
	case StatusFailed, StatusSkipped:
		if s.opts.Memoize {
			return Failure(nil), nil
		}
	}

	defer r.enterScope(s.input.Clone())()
	return evalChild(d, em, r)
}
