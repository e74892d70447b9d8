package dmn

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// Expression is the interface implemented by types that can evaluate an
// expression of a decision model's expression language against a context.
// Implementations must not modify the context.
type Expression interface {
	Eval(c *Context) (any, error)
}

// UnaryTest is the interface implemented by types that test a decision table
// input value, such as the input entries of a rule.
// Implementations must not modify the context.
type UnaryTest interface {
	Test(input any, c *Context) (bool, error)
}

// ErrUnboundVariable is returned by Variable expressions whose name is not bound.
var ErrUnboundVariable = errors.New("unbound variable")

// ExpressionFunc adapts a function to the Expression interface.
type ExpressionFunc func(c *Context) (any, error)

func (f ExpressionFunc) Eval(c *Context) (any, error) {
	return f(c)
}

// TestFunc adapts a function to the UnaryTest interface.
type TestFunc func(input any, c *Context) (bool, error)

func (f TestFunc) Test(input any, c *Context) (bool, error) {
	return f(input, c)
}

// Constant returns an expression producing v.
func Constant(v any) Expression {
	return ExpressionFunc(func(*Context) (any, error) {
		return v, nil
	})
}

// Variable returns an expression producing the value bound to the name.
func Variable(name string) Expression {
	return ExpressionFunc(func(c *Context) (any, error) {
		v, ok := c.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnboundVariable, name)
		}
		return v, nil
	})
}

// AnyInput returns a test that matches every input (the "-" entry of a decision table).
func AnyInput() UnaryTest {
	return TestFunc(func(any, *Context) (bool, error) {
		return true, nil
	})
}

// EqualTo returns a test that matches inputs equal to v. Numbers of different
// Go types are compared by value.
func EqualTo(v any) UnaryTest {
	return TestFunc(func(input any, _ *Context) (bool, error) {
		return valuesEqual(input, v), nil
	})
}

// OneOf returns a test that matches inputs equal to any of the values.
func OneOf(values ...any) UnaryTest {
	return TestFunc(func(input any, _ *Context) (bool, error) {
		for _, v := range values {
			if valuesEqual(input, v) {
				return true, nil
			}
		}
		return false, nil
	})
}

// valuesEqual compares decision values. Numbers compare by value regardless of
// their Go type; contexts compare by their bindings.
func valuesEqual(a, b any) bool {
	if x, ok := toInt(a); ok {
		if y, ok := toInt(b); ok {
			return x == y
		}
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y
		}
		return false
	}
	return reflect.DeepEqual(PlainValue(a), PlainValue(b))
}

// toFloat converts any Go number to a float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toInt converts an integer of any Go type to an int64. Unsigned values
// above math.MaxInt64 do not convert.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return fromUint64(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return fromUint64(n)
	default:
		return 0, false
	}
}

func fromUint64(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}
