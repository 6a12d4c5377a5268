// Package lambda evaluates terms against a set of host predicates.
//
// Evaluation is eager and call-by-value: arguments are evaluated left to
// right in the current scope before anything is invoked. Abstractions
// evaluate to closures over the scope they appear in, and invoking a closure
// evaluates its body in a fresh child of that scope. Closures implement
// predicate.Callable, so host predicates can take them as arguments and call
// them back.
package lambda

import (
	"context"
	"fmt"

	"go.uber.org/atomic"

	"github.com/ipfs/go-ipld-lambda/predicate"
	"github.com/ipfs/go-ipld-lambda/term"
)

// Evaluator runs terms against a fixed predicate set.
// The zero value is not usable, use New. An Evaluator is safe for concurrent
// use provided the predicates themselves are.
type Evaluator struct {
	resolver   *predicate.Resolver
	depthLimit int64
}

// New creates an Evaluator over set. set must not be modified while the
// Evaluator is in use.
func New(set predicate.Set, opts ...Option) (*Evaluator, error) {
	cfg := config{
		depthLimit: DefaultDepthLimit,
		metricsCtx: context.Background(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	r, err := predicate.NewResolver(cfg.metricsCtx, set, cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating predicate resolver: %w", err)
	}
	return &Evaluator{resolver: r, depthLimit: cfg.depthLimit}, nil
}

// MakeEvaluator returns a function evaluating encoded terms against set with
// the default options. Each call starts from an empty scope.
func MakeEvaluator(set predicate.Set) func(any) (any, error) {
	ev, err := New(set)
	if err != nil {
		// only caching can make New fail, and it is off here
		panic(err)
	}
	return func(wire any) (any, error) {
		return ev.Evaluate(context.Background(), wire)
	}
}

// Evaluate decodes an encoded term (see term.Decode) and evaluates it.
func (ev *Evaluator) Evaluate(ctx context.Context, wire any) (any, error) {
	t, err := term.Decode(wire)
	if err != nil {
		return nil, err
	}
	return ev.EvaluateTerm(ctx, t)
}

// EvaluateTerm evaluates t in an empty scope. ctx is checked before each node
// is evaluated; closures in the result keep using it when invoked later.
func (ev *Evaluator) EvaluateTerm(ctx context.Context, t term.Term) (any, error) {
	e := &evaluation{ctx: ctx, ev: ev}
	return e.eval(t, newRootFrame())
}

// evaluation is the state shared by one top-level call and every closure it
// creates. depth counts the frames currently active, in any goroutine.
type evaluation struct {
	ctx   context.Context
	ev    *Evaluator
	depth atomic.Int64
}

func (e *evaluation) eval(t term.Term, f *frame) (any, error) {
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}
	d := e.depth.Inc()
	defer e.depth.Dec()
	if limit := e.ev.depthLimit; limit > 0 && d > limit {
		return nil, ErrDepthLimitReached
	}

	switch t := t.(type) {
	case term.Data:
		return t.Value, nil
	case term.Var:
		return f.lookup(t.Name)
	case term.Lambda:
		return &Closure{params: t.Params, body: t.Body, frame: f, eval: e}, nil
	case term.PredRef:
		return e.ev.resolver.Resolve(t.Name)
	case term.Pred:
		args, err := e.evalArgs(t.Args, f)
		if err != nil {
			return nil, err
		}
		c, err := e.ev.resolver.Resolve(t.Name)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, ErrNotCallable{Value: c, Term: t}
		}
		return c.Call(args...)
	case term.Apply:
		fn, err := e.eval(t.Fn, f)
		if err != nil {
			return nil, err
		}
		args, err := e.evalArgs(t.Args, f)
		if err != nil {
			return nil, err
		}
		c, ok := predicate.AsCallable(fn)
		if !ok {
			return nil, ErrNotCallable{Value: fn, Term: t.Fn}
		}
		return c.Call(args...)
	default:
		return nil, term.ErrUnrecognizedTag{Node: t, Reason: fmt.Sprintf("unknown term type %T", t)}
	}
}

// evalArgs evaluates args strictly left to right in f.
func (e *evaluation) evalArgs(args []term.Term, f *frame) ([]any, error) {
	r := make([]any, len(args))
	for i, a := range args {
		v, err := e.eval(a, f)
		if err != nil {
			return nil, err
		}
		r[i] = v
	}
	return r, nil
}
