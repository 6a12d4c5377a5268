// Package stdlib provides a standard set of predicates: arithmetic,
// comparison, boolean logic, control flow, a fixpoint for recursion, and list,
// map and string helpers.
//
// Numbers may be any Go integer or float kind, so that values decoded from
// DAG-CBOR (int64) and from plain JSON (float64) mix freely. Integer results
// are int64, anything involving a float is float64.
package stdlib

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-ipld-lambda/predicate"
)

// ErrInvalidArgument is wrapped by every argument error of this package.
var ErrInvalidArgument = errors.New("invalid argument")

// Set returns a new set holding the standard predicates. Callers may add
// their own entries to it.
func Set() predicate.Set {
	return predicate.Set{
		"math": predicate.Set{
			"add": arith("math.add", addInt, addFloat),
			"sub": arith("math.sub", subInt, subFloat),
			"mul": arith("math.mul", mulInt, mulFloat),
			"div": arith("math.div", divInt, divFloat),
			"mod": arith("math.mod", modInt, modFloat),
			"neg": predicate.Func(neg),
		},
		"cmp": predicate.Set{
			"eq": predicate.Func(eq),
			"lt": compare("cmp.lt", func(c int) bool { return c < 0 }),
			"le": compare("cmp.le", func(c int) bool { return c <= 0 }),
			"gt": compare("cmp.gt", func(c int) bool { return c > 0 }),
			"ge": compare("cmp.ge", func(c int) bool { return c >= 0 }),
		},
		"logic": predicate.Set{
			"not": predicate.Func(not),
			"and": predicate.Func(and),
			"or":  predicate.Func(or),
		},
		"if":  predicate.Func(ifThenElse),
		"id":  predicate.Func(id),
		"com": predicate.Func(com),
		"fix": predicate.Func(fix),
		"list": predicate.Set{
			"map":    predicate.Func(listMap),
			"filter": predicate.Func(listFilter),
			"reduce": predicate.Func(listReduce),
			"len":    predicate.Func(listLen),
			"nth":    predicate.Func(listNth),
		},
		"map": predicate.Set{
			"get": predicate.Func(mapGet),
		},
		"str": predicate.Set{
			"concat": predicate.Func(strConcat),
		},
	}
}

func argError(name, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", name, ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func arity(name string, args []any, n int) error {
	if len(args) != n {
		return argError(name, "expected %d arguments; got %d", n, len(args))
	}
	return nil
}

func callable(name string, v any) (predicate.Callable, error) {
	c, ok := predicate.AsCallable(v)
	if !ok {
		return nil, argError(name, "expected a function; got %T", v)
	}
	return c, nil
}

func boolean(name string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, argError(name, "expected a boolean; got %T", v)
	}
	return b, nil
}
