// Package dsl builds terms from Go code.
//
//	add := dsl.Require("add")
//	inc := dsl.Lambda([]string{"x"}, add(dsl.Var("x"), 1))
//	t := dsl.Apply(inc, 3) // (\x. add(x, 1))(3)
//
// Wherever a term is expected any Go value may be given: a term.Term is used
// as is and anything else becomes a meta data literal.
package dsl

import (
	"github.com/samber/lo"

	"github.com/ipfs/go-ipld-lambda/term"
)

// Lift returns v itself when it is a term and wraps it as meta data otherwise.
func Lift(v any) term.Term {
	if t, ok := v.(term.Term); ok {
		return t
	}
	return term.Data{Value: v}
}

func lift(vs []any) []term.Term {
	return lo.Map(vs, func(v any, _ int) term.Term { return Lift(v) })
}

// Data wraps v as meta data, even when v is itself a term.
func Data(v any) term.Term {
	return term.Data{Value: v}
}

func Var(name string) term.Term {
	return term.Var{Name: name}
}

// Lambda builds the abstraction \params. body.
func Lambda(params []string, body any) term.Term {
	return term.Lambda{Params: append([]string{}, params...), Body: Lift(body)}
}

// Require returns a constructor for invocations of the predicate name.
func Require(name string) func(args ...any) term.Term {
	return func(args ...any) term.Term {
		return term.Pred{Name: name, Args: lift(args)}
	}
}

// Ref references the predicate name as a value.
func Ref(name string) term.Term {
	return term.PredRef{Name: name}
}

// Apply builds the application fn(args...).
func Apply(fn any, args ...any) term.Term {
	return term.Apply{Fn: Lift(fn), Args: lift(args)}
}

// JSON returns the wire form of t, ready for encoding/json.
func JSON(t term.Term) []any {
	return term.Encode(t)
}
