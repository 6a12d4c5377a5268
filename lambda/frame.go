package lambda

// frame is one lexical scope. It is built once when a closure is invoked and
// never modified afterwards, so any number of closures may share it.
type frame struct {
	vars   map[string]any
	parent *frame
}

func newRootFrame() *frame {
	return &frame{vars: map[string]any{}}
}

// lookup searches f and then its ancestors.
func (f *frame) lookup(name string) (any, error) {
	for cur := f; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, nil
		}
	}
	return nil, ErrUndefinedVariable{name}
}

// extend binds names to values by position in a new child of f.
// Names without a matching value stay unbound, extra values are dropped.
// When a name repeats, the later position wins.
func (f *frame) extend(names []string, values []any) *frame {
	vars := make(map[string]any, len(names))
	for i, name := range names {
		if i >= len(values) {
			break
		}
		vars[name] = values[i]
	}
	return &frame{vars: vars, parent: f}
}
