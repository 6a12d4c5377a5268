// Package predicate holds the host side of an evaluation: the nested set of
// named functions a term may invoke, and the resolution of dotted names
// against it.
package predicate

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Callable is a value that can be invoked with already evaluated arguments.
// Closures built by the evaluator are Callables too, so predicates can call
// them back.
type Callable interface {
	Call(args ...any) (any, error)
}

// Func adapts a plain function to Callable.
type Func func(args ...any) (any, error)

func (f Func) Call(args ...any) (any, error) {
	return f(args...)
}

// Set maps names to Callables or to nested sets. A nested level may be either
// a Set or a map[string]any. A Set must not be modified while an evaluation
// is using it.
type Set map[string]any

// ErrMissingPredicate is returned when a name does not resolve to a Callable.
// It will always be errors.As able.
type ErrMissingPredicate struct {
	Name string
}

func (e ErrMissingPredicate) Error() string {
	return "missing predicate " + e.Name
}

// Resolve walks set along the dot separated segments of name.
func Resolve(set Set, name string) (Callable, error) {
	var cur any = set
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return nil, ErrMissingPredicate{name}
		}
		level, ok := asSet(cur)
		if !ok {
			return nil, ErrMissingPredicate{name}
		}
		next, ok := level[seg]
		if !ok {
			return nil, ErrMissingPredicate{name}
		}
		cur = next
	}

	c, ok := AsCallable(cur)
	if !ok {
		return nil, ErrMissingPredicate{name}
	}
	return c, nil
}

// AsCallable returns v as a Callable. Besides Callable implementations it
// accepts plain func(...any) (any, error) values.
func AsCallable(v any) (Callable, bool) {
	switch v := v.(type) {
	case Callable:
		return v, true
	case func(...any) (any, error):
		return Func(v), true
	default:
		return nil, false
	}
}

func asSet(v any) (map[string]any, bool) {
	switch v := v.(type) {
	case Set:
		return v, true
	case map[string]any:
		return v, true
	default:
		return nil, false
	}
}

// Validate reports every entry of set that is neither a Callable nor a nested
// set. The returned error combines one error per bad entry.
func Validate(set Set) error {
	return validate("", set)
}

func validate(prefix string, level map[string]any) error {
	var err error
	keys := maps.Keys(level)
	slices.Sort(keys)
	for _, k := range keys {
		name := prefix + k
		if k == "" || strings.Contains(k, ".") {
			err = multierr.Append(err, fmt.Errorf("predicate %q: name segments must be non-empty and must not contain dots", name))
			continue
		}
		v := level[k]
		if _, ok := AsCallable(v); ok {
			continue
		}
		nested, ok := asSet(v)
		if !ok {
			err = multierr.Append(err, fmt.Errorf("predicate %q: expected a Callable or a nested set; got %T", name, v))
			continue
		}
		err = multierr.Append(err, validate(name+".", nested))
	}
	return err
}

// Names returns the sorted dotted names of every Callable in set.
func Names(set Set) []string {
	var r []string
	collect("", set, &r)
	slices.Sort(r)
	return r
}

func collect(prefix string, level map[string]any, r *[]string) {
	for k, v := range level {
		if _, ok := AsCallable(v); ok {
			*r = append(*r, prefix+k)
			continue
		}
		if nested, ok := asSet(v); ok {
			collect(prefix+k+".", nested, r)
		}
	}
}
