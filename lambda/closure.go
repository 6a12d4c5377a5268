package lambda

import (
	"github.com/ipfs/go-ipld-lambda/predicate"
	"github.com/ipfs/go-ipld-lambda/term"
)

// Closure is the value of an abstraction: its parameters and body along with
// the scope it was evaluated in.
type Closure struct {
	params []string
	body   term.Term
	frame  *frame
	eval   *evaluation
}

var _ predicate.Callable = (*Closure)(nil)

// Call evaluates the body in a new scope binding the parameters to args by
// position, on top of the captured scope. Missing arguments leave their
// parameters unbound.
func (c *Closure) Call(args ...any) (any, error) {
	return c.eval.eval(c.body, c.frame.extend(c.params, args))
}

// Term returns the abstraction the closure was built from.
func (c *Closure) Term() term.Lambda {
	return term.Lambda{Params: c.params, Body: c.body}
}

func (c *Closure) String() string {
	return term.String(c.Term())
}
