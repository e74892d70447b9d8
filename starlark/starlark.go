// Package starlark provides the expressions and unary tests of decision models,
// written in Starlark (https://github.com/google/starlark-go).
//
// An expression is a single Starlark expression. It sees the bindings of the
// context it is evaluated in as global variables, along with the json, math and
// time modules. Unary tests see the tested value as the variable named by
// TestInput, and, as in the cel package, a test starting with a comparison
// operator compares the input.
package starlark

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/ezachrisen/dmn"
	starlarkJSON "go.starlark.net/lib/json"
	starlarkMath "go.starlark.net/lib/math"
	starlarkTime "go.starlark.net/lib/time"
	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// TestInput is the name of the variable holding the tested value in unary tests.
const TestInput = "input"

// Module namespaces available to every expression
const (
	namespaceJSON = "json"
	namespaceMath = "math"
	namespaceTime = "time"
)

// standardModules returns a copy of the Starlark universe with additional modules.
func standardModules() starlarkLib.StringDict {
	universe := maps.Clone(starlarkLib.Universe)
	universe[namespaceJSON] = starlarkJSON.Module
	universe[namespaceMath] = starlarkMath.Module
	universe[namespaceTime] = starlarkTime.Module
	return universe
}

// Compiler parses Starlark source into expressions and unary tests.
// A Compiler is safe for concurrent use.
type Compiler struct {
	opts     *syntax.FileOptions
	globals  starlarkLib.StringDict
	logger   *slog.Logger
	maxSteps uint64
}

// CompilerOption configures a Compiler.
type CompilerOption func(c *Compiler)

// Send the output of the Starlark print function to the logger, at info level.
// Default: discard
func WithLogger(l *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = l
	}
}

// Add global values, such as Starlark builtins, visible to all expressions.
// Context bindings take precedence over them.
func WithGlobals(g starlarkLib.StringDict) CompilerOption {
	return func(c *Compiler) {
		maps.Copy(c.globals, g)
	}
}

// Cancel an evaluation after the number of computation steps. Zero means no limit.
func WithMaxSteps(n uint64) CompilerOption {
	return func(c *Compiler) {
		c.maxSteps = n
	}
}

// NewCompiler returns a compiler with the options.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		opts:    &syntax.FileOptions{},
		globals: standardModules(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Expression is a parsed Starlark expression.
type Expression struct {
	source string
	expr   syntax.Expr
	c      *Compiler
}

var _ dmn.Expression = (*Expression)(nil)

// Compile parses the source into an expression.
func (c *Compiler) Compile(source string) (*Expression, error) {
	expr, err := c.opts.ParseExpr("expression", source, 0)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", source, err)
	}
	return &Expression{source: source, expr: expr, c: c}, nil
}

func (e *Expression) String() string {
	return e.source
}

// Eval evaluates the expression with the bindings of the context as globals.
func (e *Expression) Eval(c *dmn.Context) (any, error) {
	env, err := e.c.env(c)
	if err != nil {
		return nil, err
	}
	return e.c.eval(e.source, e.expr, env)
}

// env merges the compiler globals with the converted context bindings.
func (c *Compiler) env(ctx *dmn.Context) (starlarkLib.StringDict, error) {
	env := maps.Clone(c.globals)
	for _, name := range ctx.Names() {
		v, _ := ctx.Get(name)
		sv, err := toStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("converting variable %s: %w", name, err)
		}
		env[name] = sv
	}
	return env, nil
}

func (c *Compiler) eval(source string, expr syntax.Expr, env starlarkLib.StringDict) (any, error) {
	thread := &starlarkLib.Thread{
		Name: "dmn",
		Print: func(thread *starlarkLib.Thread, msg string) {
			c.logger.Info(msg, "starlark-thread", thread.Name)
		},
	}
	if c.maxSteps > 0 {
		thread.SetMaxExecutionSteps(c.maxSteps)
	}

	v, err := starlarkLib.EvalExprOptions(c.opts, thread, expr, env)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", source, err)
	}
	return fromStarlark(v)
}

// Test is a parsed Starlark unary test.
type Test struct {
	source   string
	matchAll bool
	expr     syntax.Expr
	c        *Compiler
}

var _ dmn.UnaryTest = (*Test)(nil)

// CompileTest parses the source into a unary test.
func (c *Compiler) CompileTest(source string) (*Test, error) {
	src := strings.TrimSpace(source)
	if src == "-" || src == "" {
		return &Test{source: source, matchAll: true, c: c}, nil
	}
	for _, op := range []string{"<=", ">=", "==", "!=", "<", ">"} {
		if strings.HasPrefix(src, op) {
			src = TestInput + " " + src
			break
		}
	}
	expr, err := c.opts.ParseExpr("test", src, 0)
	if err != nil {
		return nil, fmt.Errorf("parsing test %q: %w", source, err)
	}
	return &Test{source: source, expr: expr, c: c}, nil
}

func (t *Test) String() string {
	return t.source
}

// Test reports whether the input passes the test.
func (t *Test) Test(input any, c *dmn.Context) (bool, error) {
	if t.matchAll {
		return true, nil
	}
	env, err := t.c.env(c)
	if err != nil {
		return false, err
	}
	in, err := toStarlark(input)
	if err != nil {
		return false, fmt.Errorf("converting input: %w", err)
	}
	env[TestInput] = in

	v, err := t.c.eval(t.source, t.expr, env)
	if err != nil {
		return false, err
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return dmn.EqualTo(v).Test(input, c)
}

var defaultCompiler = NewCompiler()

// Compile parses the source into an expression with the default compiler.
func Compile(source string) (*Expression, error) {
	return defaultCompiler.Compile(source)
}

// MustCompile is like Compile but panics if the source cannot be parsed.
func MustCompile(source string) *Expression {
	e, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return e
}

// CompileTest parses the source into a unary test with the default compiler.
func CompileTest(source string) (*Test, error) {
	return defaultCompiler.CompileTest(source)
}

// MustCompileTest is like CompileTest but panics if the source cannot be parsed.
func MustCompileTest(source string) *Test {
	t, err := CompileTest(source)
	if err != nil {
		panic(err)
	}
	return t
}
