package cel

// This file contains functions that convert values between CEL and Go.

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/ezachrisen/dmn"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"google.golang.org/protobuf/types/known/structpb"
)

// celValue converts a decision value to a value the CEL type adapter accepts.
func celValue(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	default:
		return dmn.PlainValue(v)
	}
}

// goValue converts the result of a CEL evaluation to a decision value.
func goValue(v ref.Val) (any, error) {
	switch t := v.(type) {
	case types.Null:
		return nil, nil
	case types.Bool:
		return bool(t), nil
	case types.Int:
		return int64(t), nil
	case types.Uint:
		return uint64(t), nil
	case types.Double:
		return float64(t), nil
	case types.String:
		return string(t), nil
	case types.Bytes:
		return []byte(t), nil
	case types.Timestamp:
		return t.Time, nil
	case types.Duration:
		return t.Duration, nil
	case *types.Err:
		return nil, fmt.Errorf("%v", t)
	}

	switch t := v.(type) {
	case traits.Mapper:
		return mapValue(t)
	case traits.Lister:
		return listValue(t)
	}

	// Anything else is converted through its JSON representation.
	pv, err := v.ConvertToNative(reflect.TypeOf(&structpb.Value{}))
	if err != nil {
		return nil, fmt.Errorf("unsupported CEL result type %s: %w", v.Type(), err)
	}
	return pv.(*structpb.Value).AsInterface(), nil
}

func listValue(l traits.Lister) (any, error) {
	n, ok := l.Size().(types.Int)
	if !ok {
		return nil, fmt.Errorf("list size is %T", l.Size())
	}
	out := make([]any, 0, int(n))
	for i := types.Int(0); i < n; i++ {
		x, err := goValue(l.Get(i))
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

// mapValue converts a CEL map to a context. Keys are converted to their
// string form and bound in sorted order.
func mapValue(m traits.Mapper) (any, error) {
	entries := map[string]any{}
	it := m.Iterator()
	for it.HasNext() == types.True {
		k := it.Next()
		key, err := goValue(k)
		if err != nil {
			return nil, err
		}
		x, err := goValue(m.Get(k))
		if err != nil {
			return nil, err
		}
		entries[fmt.Sprint(key)] = x
	}

	c := dmn.NewContext()
	for _, k := range slices.Sorted(maps.Keys(entries)) {
		c.Set(k, entries[k])
	}
	return c, nil
}
