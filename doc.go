// Package dmn provides the execution core of a decision model runtime. An Engine
// evaluates a tree of evaluator nodes (decisions, business knowledge models,
// decision tables, literal expressions, lists, contexts and relations) against an
// input Context, and returns a Result holding the decision outputs and an ordered
// list of diagnostic messages.
//
// dmn itself does not specify an expression language. Literal expressions and
// decision table input entries are evaluated through the Expression and UnaryTest
// interfaces; the cel and starlark sub-packages provide implementations.
//
// Typical use is as follows:
//
//  1. Build the evaluator nodes for your decisions and business knowledge models
//  2. Register them in a Model
//  3. Create an Engine, optionally with listeners observing the evaluation
//  4. Use the engine to evaluate a decision against an input Context
//  5. Inspect the decisions and messages in the Result
//
// # Failures
//
// Evaluation never fails with a Go error or a panic. A node that cannot produce a
// value appends an ERROR message to the Result and reports a failure to its parent,
// which stops evaluating its remaining children and reports its own failure in
// turn. A panic raised while evaluating a node is recovered by the node that owns
// it and reported the same way. The Engine always returns a Result; a decision
// without a value in Result.Decisions failed, and the messages say why.
//
// # Scoping
//
// Composite nodes evaluate their children in a private copy of the current
// context. Bindings made inside a composite are never visible to its caller, and
// the caller's context is reinstated on every exit path.
//
// # Model Ownership
//
// The calling application is responsible for the lifecycle of the nodes in a
// model. Once a node is part of a Model it must not be modified. A node must not
// be a child of more than one parent. An Engine never writes to a model, so any
// number of evaluations may run concurrently against the same Model.
package dmn
