// Package cel provides the expressions and unary tests of decision models, backed by
// Google's cel-go.
//
// See https://github.com/google/cel-go and https://opensource.google/projects/cel for more information
// about CEL. The expressions you write must conform to the CEL spec: https://github.com/google/cel-spec.
//
// # Variables
//
// An expression sees the bindings of the context it is evaluated in as CEL variables. Nested
// contexts are CEL maps, lists are CEL lists. By default variables are not declared, and expressions
// are only parsed when they are compiled; references to unknown variables are reported when the
// expression is evaluated. Declare the variables with WithVariable to have expressions type checked
// when they are compiled.
//
// # Unary Tests
//
// A unary test is an expression with access to the tested value through the variable named by
// TestInput. A test that starts with a comparison operator is compared with the input:
//
//	< 18          is   input < 18
//	"gold"        is   input == "gold"
//	input in [1, 2, 3]
//	-             matches any input
//
// A test whose value is not a boolean matches inputs equal to that value.
//
// # Results
//
// CEL values are converted to plain Go values: bool, int64, uint64, float64, string, []byte,
// time.Time, time.Duration, []any and *dmn.Context for maps. Null is nil.
package cel
