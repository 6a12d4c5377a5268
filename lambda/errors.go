package lambda

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-ipld-lambda/term"
)

// ErrDepthLimitReached is returned when an evaluation has more frames active
// than the limit set with WithDepthLimit.
var ErrDepthLimitReached = errors.New("safety depth limit reached")

// ErrUndefinedVariable is returned when a variable is bound in none of the
// enclosing scopes. It will always be errors.As able.
type ErrUndefinedVariable struct {
	Name string
}

func (e ErrUndefinedVariable) Error() string {
	return "undefined variable " + e.Name
}

// ErrNotCallable is returned when the value in function position of an
// application cannot be invoked. It will always be errors.As able.
type ErrNotCallable struct {
	Value any
	// Term is the term that produced Value.
	Term term.Term
}

func (e ErrNotCallable) Error() string {
	if e.Term == nil {
		return fmt.Sprintf("expected function; got %v (%T)", e.Value, e.Value)
	}
	return fmt.Sprintf("expected function; got %v (%T) from %s", e.Value, e.Value, term.String(e.Term))
}
