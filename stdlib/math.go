package stdlib

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/ipfs/go-ipld-lambda/predicate"
)

var errDivisionByZero = errors.New("division by zero")

type number struct {
	i     int64
	f     float64
	isInt bool
}

func (n number) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

func toNumber(v any) (number, bool) {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return number{i: i, isInt: true}, true
		}
		f, err := v.Float64()
		return number{f: f}, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: rv.Int(), isInt: true}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return number{f: float64(u)}, true
		}
		return number{i: int64(u), isInt: true}, true
	case reflect.Float32, reflect.Float64:
		return number{f: rv.Float()}, true
	default:
		return number{}, false
	}
}

func numbers(name string, args []any) (number, number, error) {
	if err := arity(name, args, 2); err != nil {
		return number{}, number{}, err
	}
	a, ok := toNumber(args[0])
	if !ok {
		return number{}, number{}, argError(name, "expected a number; got %T", args[0])
	}
	b, ok := toNumber(args[1])
	if !ok {
		return number{}, number{}, argError(name, "expected a number; got %T", args[1])
	}
	return a, b, nil
}

func arith(name string, iop func(a, b int64) (int64, error), fop func(a, b float64) (float64, error)) predicate.Func {
	return func(args ...any) (any, error) {
		a, b, err := numbers(name, args)
		if err != nil {
			return nil, err
		}
		if a.isInt && b.isInt {
			r, err := iop(a.i, b.i)
			if err != nil {
				return nil, argError(name, "%s", err)
			}
			return r, nil
		}
		r, err := fop(a.float(), b.float())
		if err != nil {
			return nil, argError(name, "%s", err)
		}
		return r, nil
	}
}

func addInt(a, b int64) (int64, error)       { return a + b, nil }
func addFloat(a, b float64) (float64, error) { return a + b, nil }
func subInt(a, b int64) (int64, error)       { return a - b, nil }
func subFloat(a, b float64) (float64, error) { return a - b, nil }
func mulInt(a, b int64) (int64, error)       { return a * b, nil }
func mulFloat(a, b float64) (float64, error) { return a * b, nil }

func divInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, errDivisionByZero
	}
	return a / b, nil
}

func divFloat(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errDivisionByZero
	}
	return a / b, nil
}

func modInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, errDivisionByZero
	}
	return a % b, nil
}

func modFloat(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errDivisionByZero
	}
	return math.Mod(a, b), nil
}

func neg(args ...any) (any, error) {
	if err := arity("math.neg", args, 1); err != nil {
		return nil, err
	}
	n, ok := toNumber(args[0])
	if !ok {
		return nil, argError("math.neg", "expected a number; got %T", args[0])
	}
	if n.isInt {
		return -n.i, nil
	}
	return -n.f, nil
}

// eq compares numbers by value regardless of their Go type, and anything else
// structurally.
func eq(args ...any) (any, error) {
	if err := arity("cmp.eq", args, 2); err != nil {
		return nil, err
	}
	a, aok := toNumber(args[0])
	b, bok := toNumber(args[1])
	if aok && bok {
		if a.isInt && b.isInt {
			return a.i == b.i, nil
		}
		return a.float() == b.float(), nil
	}
	return reflect.DeepEqual(args[0], args[1]), nil
}

// compare orders two numbers or two strings.
func compare(name string, accept func(int) bool) predicate.Func {
	return func(args ...any) (any, error) {
		if err := arity(name, args, 2); err != nil {
			return nil, err
		}
		if sa, ok := args[0].(string); ok {
			sb, ok := args[1].(string)
			if !ok {
				return nil, argError(name, "cannot compare string with %T", args[1])
			}
			return accept(strings.Compare(sa, sb)), nil
		}

		a, b, err := numbers(name, args)
		if err != nil {
			return nil, err
		}
		var c int
		if a.isInt && b.isInt {
			switch {
			case a.i < b.i:
				c = -1
			case a.i > b.i:
				c = 1
			}
		} else {
			switch af, bf := a.float(), b.float(); {
			case af < bf:
				c = -1
			case af > bf:
				c = 1
			}
		}
		return accept(c), nil
	}
}
