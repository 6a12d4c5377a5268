package stdlib

import (
	"reflect"
	"strings"

	"github.com/samber/lo"
)

// toList accepts []any as well as any other slice or array kind except bytes.
func toList(name string, v any) ([]any, error) {
	if l, ok := v.([]any); ok {
		return l, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if _, isBytes := v.([]byte); isBytes {
			break
		}
		l := make([]any, rv.Len())
		for i := range l {
			l[i] = rv.Index(i).Interface()
		}
		return l, nil
	}
	return nil, argError(name, "expected a list; got %T", v)
}

func listMap(args ...any) (any, error) {
	if err := arity("list.map", args, 2); err != nil {
		return nil, err
	}
	l, err := toList("list.map", args[0])
	if err != nil {
		return nil, err
	}
	f, err := callable("list.map", args[1])
	if err != nil {
		return nil, err
	}
	r := make([]any, len(l))
	for i, e := range l {
		v, err := f.Call(e)
		if err != nil {
			return nil, err
		}
		r[i] = v
	}
	return r, nil
}

func listFilter(args ...any) (any, error) {
	if err := arity("list.filter", args, 2); err != nil {
		return nil, err
	}
	l, err := toList("list.filter", args[0])
	if err != nil {
		return nil, err
	}
	f, err := callable("list.filter", args[1])
	if err != nil {
		return nil, err
	}
	r := []any{}
	for _, e := range l {
		v, err := f.Call(e)
		if err != nil {
			return nil, err
		}
		keep, err := boolean("list.filter", v)
		if err != nil {
			return nil, err
		}
		if keep {
			r = append(r, e)
		}
	}
	return r, nil
}

// listReduce folds from the left: reduce([a, b], f, init) = f(f(init, a), b).
func listReduce(args ...any) (any, error) {
	if err := arity("list.reduce", args, 3); err != nil {
		return nil, err
	}
	l, err := toList("list.reduce", args[0])
	if err != nil {
		return nil, err
	}
	f, err := callable("list.reduce", args[1])
	if err != nil {
		return nil, err
	}
	acc := args[2]
	for _, e := range l {
		acc, err = f.Call(acc, e)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func listLen(args ...any) (any, error) {
	if err := arity("list.len", args, 1); err != nil {
		return nil, err
	}
	l, err := toList("list.len", args[0])
	if err != nil {
		return nil, err
	}
	return int64(len(l)), nil
}

func listNth(args ...any) (any, error) {
	if err := arity("list.nth", args, 2); err != nil {
		return nil, err
	}
	l, err := toList("list.nth", args[0])
	if err != nil {
		return nil, err
	}
	n, ok := toNumber(args[1])
	if !ok || !n.isInt {
		return nil, argError("list.nth", "expected an integer index; got %v", args[1])
	}
	if n.i < 0 || n.i >= int64(len(l)) {
		return nil, argError("list.nth", "index %d out of range [0, %d)", n.i, len(l))
	}
	return l[n.i], nil
}

// mapGet returns the entry k of m, or nil when there is none.
func mapGet(args ...any) (any, error) {
	if err := arity("map.get", args, 2); err != nil {
		return nil, err
	}
	k, ok := args[1].(string)
	if !ok {
		return nil, argError("map.get", "expected a string key; got %T", args[1])
	}
	rv := reflect.ValueOf(args[0])
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, argError("map.get", "expected a map; got %T", args[0])
	}
	v := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func strConcat(args ...any) (any, error) {
	for i, a := range args {
		if _, ok := a.(string); !ok {
			return nil, argError("str.concat", "argument %d: expected a string; got %T", i, a)
		}
	}
	return strings.Join(lo.Map(args, func(a any, _ int) string { return a.(string) }), ""), nil
}
