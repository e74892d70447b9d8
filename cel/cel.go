package cel

import (
	"fmt"
	"strings"

	"github.com/ezachrisen/dmn"
	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

// TestInput is the name of the variable holding the tested value in unary tests.
const TestInput = "input"

// Compiler compiles CEL source into expressions and unary tests.
// A Compiler is safe for concurrent use.
type Compiler struct {
	env *celgo.Env

	// Whether variables are declared, and expressions are type checked
	checked bool
}

type options struct {
	vars     []celgo.EnvOption
	env      []celgo.EnvOption
	noStdExt bool
}

// CompilerOption configures a Compiler.
type CompilerOption func(o *options)

// Declare a variable, and type check expressions against the declared
// variables. When any variable is declared, all variables an expression refers
// to must be declared. Unary tests declare TestInput themselves.
func WithVariable(name string, t *celgo.Type) CompilerOption {
	return func(o *options) {
		o.vars = append(o.vars, celgo.Variable(name, t))
	}
}

// Add CEL environment options, such as functions or extension libraries.
func WithEnvOptions(opts ...celgo.EnvOption) CompilerOption {
	return func(o *options) {
		o.env = append(o.env, opts...)
	}
}

// Do not add the CEL string extensions to the environment.
func WithoutStringExtensions() CompilerOption {
	return func(o *options) {
		o.noStdExt = true
	}
}

// Add a function of two arguments, implemented in Go. The arguments are
// passed, and the result returned, as plain Go values.
func WithBinaryFunction(name string, lhs, rhs, ret *celgo.Type, fn func(lhs, rhs any) (any, error)) CompilerOption {
	return WithEnvOptions(celgo.Function(name,
		celgo.Overload(fmt.Sprintf("%s_%s_%s", name, lhs, rhs),
			[]*celgo.Type{lhs, rhs},
			ret,
			celgo.BinaryBinding(binaryWrapper(name, fn)))))
}

// binaryWrapper converts the arguments and result of a host function between
// CEL values and Go values.
func binaryWrapper(name string, fn func(lhs, rhs any) (any, error)) func(lhs, rhs ref.Val) ref.Val {
	return func(lhs, rhs ref.Val) ref.Val {
		l, err := goValue(lhs)
		if err != nil {
			return types.NewErr("function %s: %v", name, err)
		}
		r, err := goValue(rhs)
		if err != nil {
			return types.NewErr("function %s: %v", name, err)
		}
		x, err := fn(l, r)
		if err != nil {
			return types.NewErr("function %s: %v", name, err)
		}
		return types.DefaultTypeAdapter.NativeToValue(celValue(x))
	}
}

// NewCompiler returns a compiler with the options.
func NewCompiler(opts ...CompilerOption) (*Compiler, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	envOpts := []celgo.EnvOption{}
	if !o.noStdExt {
		envOpts = append(envOpts, ext.Strings())
	}
	envOpts = append(envOpts, o.vars...)
	envOpts = append(envOpts, o.env...)

	env, err := celgo.NewEnv(envOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}
	return &Compiler{env: env, checked: len(o.vars) > 0}, nil
}

// Expression is a compiled CEL expression.
type Expression struct {
	source string
	prg    celgo.Program
}

var _ dmn.Expression = (*Expression)(nil)

// Compile compiles the source into an expression.
func (c *Compiler) Compile(source string) (*Expression, error) {
	prg, err := c.program(c.env, source)
	if err != nil {
		return nil, err
	}
	return &Expression{source: source, prg: prg}, nil
}

func (c *Compiler) program(env *celgo.Env, source string) (celgo.Program, error) {
	var ast *celgo.Ast
	var iss *celgo.Issues
	if c.checked {
		ast, iss = env.Compile(source)
	} else {
		ast, iss = env.Parse(source)
	}
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compiling %q: %w", source, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("generating program for %q: %w", source, err)
	}
	return prg, nil
}

// Source returns the CEL source of the expression.
func (e *Expression) Source() string {
	return e.source
}

func (e *Expression) String() string {
	return e.source
}

// Eval evaluates the expression with the bindings of the context as variables.
func (e *Expression) Eval(c *dmn.Context) (any, error) {
	out, _, err := e.prg.Eval(c.Map())
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", e.source, err)
	}
	return goValue(out)
}

// Test is a compiled CEL unary test.
type Test struct {
	source   string
	matchAll bool
	prg      celgo.Program
}

var _ dmn.UnaryTest = (*Test)(nil)

// CompileTest compiles the source into a unary test.
func (c *Compiler) CompileTest(source string) (*Test, error) {
	src := strings.TrimSpace(source)
	if src == "-" || src == "" {
		return &Test{source: source, matchAll: true}, nil
	}

	env := c.env
	if c.checked {
		var err error
		env, err = c.env.Extend(celgo.Variable(TestInput, celgo.DynType))
		if err != nil {
			return nil, fmt.Errorf("declaring %s: %w", TestInput, err)
		}
	}

	prg, err := c.program(env, testSource(src))
	if err != nil {
		return nil, err
	}
	return &Test{source: source, prg: prg}, nil
}

// comparisons are the operators a unary test may start with, longest first.
var comparisons = []string{"<=", ">=", "==", "!=", "<", ">"}

// testSource rewrites a test starting with a comparison to compare the input.
func testSource(src string) string {
	for _, op := range comparisons {
		if strings.HasPrefix(src, op) {
			return TestInput + " " + src
		}
	}
	return src
}

func (t *Test) String() string {
	return t.source
}

// Test reports whether the input passes the test.
func (t *Test) Test(input any, c *dmn.Context) (bool, error) {
	if t.matchAll {
		return true, nil
	}
	vars := c.Map()
	vars[TestInput] = celValue(input)

	out, _, err := t.prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluating test %q: %w", t.source, err)
	}
	v, err := goValue(out)
	if err != nil {
		return false, err
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return dmn.EqualTo(v).Test(input, c)
}

// The default compiler declares no variables.
var defaultCompiler = func() *Compiler {
	c, err := NewCompiler()
	if err != nil {
		panic(err)
	}
	return c
}()

// Compile compiles the source into an expression with the default compiler.
func Compile(source string) (*Expression, error) {
	return defaultCompiler.Compile(source)
}

// MustCompile is like Compile but panics if the source cannot be compiled.
func MustCompile(source string) *Expression {
	e, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return e
}

// CompileTest compiles the source into a unary test with the default compiler.
func CompileTest(source string) (*Test, error) {
	return defaultCompiler.CompileTest(source)
}

// MustCompileTest is like CompileTest but panics if the source cannot be compiled.
func MustCompileTest(source string) *Test {
	t, err := CompileTest(source)
	if err != nil {
		panic(err)
	}
	return t
}
