package starlark

import (
	"fmt"

	"github.com/ezachrisen/dmn"
	starlarkLib "go.starlark.net/starlark"
)

// fromStarlark converts a Starlark value to a decision value. Dicts become
// contexts, with keys in insertion order.
func fromStarlark(v starlarkLib.Value) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch v := v.(type) {
	case starlarkLib.NoneType:
		return nil, nil
	case starlarkLib.Bool:
		return bool(v), nil
	case starlarkLib.Int:
		i, ok := v.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", v)
		}
		return i, nil
	case starlarkLib.Float:
		return float64(v), nil
	case starlarkLib.String:
		return string(v), nil
	case starlarkLib.Bytes:
		return []byte(v), nil
	case *starlarkLib.List:
		return fromIndexable(v)
	case starlarkLib.Tuple:
		return fromIndexable(v)
	case *starlarkLib.Dict:
		c := dmn.NewContext()
		for _, item := range v.Items() {
			key := item[0].String()
			if s, ok := item[0].(starlarkLib.String); ok {
				key = string(s)
			}
			x, err := fromStarlark(item[1])
			if err != nil {
				return nil, fmt.Errorf("failed to convert dict value: %w", err)
			}
			c.Set(key, x)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported Starlark type %s", v.Type())
	}
}

func fromIndexable(v starlarkLib.Indexable) (any, error) {
	list := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		elem, err := fromStarlark(v.Index(i))
		if err != nil {
			return nil, fmt.Errorf("failed to convert list element: %w", err)
		}
		list = append(list, elem)
	}
	return list, nil
}

// toStarlark converts a decision value to a Starlark value.
func toStarlark(v any) (starlarkLib.Value, error) {
	if v == nil {
		return starlarkLib.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlarkLib.Bool(val), nil
	case int:
		return starlarkLib.MakeInt(val), nil
	case int32:
		return starlarkLib.MakeInt64(int64(val)), nil
	case int64:
		return starlarkLib.MakeInt64(val), nil
	case uint64:
		return starlarkLib.MakeUint64(val), nil
	case float32:
		return starlarkLib.Float(val), nil
	case float64:
		return starlarkLib.Float(val), nil
	case string:
		return starlarkLib.String(val), nil
	case []byte:
		return starlarkLib.Bytes(val), nil
	case []any:
		elements := make([]starlarkLib.Value, len(val))
		for i, elem := range val {
			var err error
			elements[i], err = toStarlark(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to convert list element: %w", err)
			}
		}
		return starlarkLib.NewList(elements), nil
	case *dmn.Context:
		dict := starlarkLib.NewDict(val.Len())
		for _, k := range val.Names() {
			x, _ := val.Get(k)
			sv, err := toStarlark(x)
			if err != nil {
				return nil, fmt.Errorf("failed to convert dict value: %w", err)
			}
			if err := dict.SetKey(starlarkLib.String(k), sv); err != nil {
				return nil, fmt.Errorf("failed to set dict key: %w", err)
			}
		}
		return dict, nil
	case map[string]any:
		return toStarlark(dmn.ContextFrom(val))
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
