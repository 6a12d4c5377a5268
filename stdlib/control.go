package stdlib

import "github.com/ipfs/go-ipld-lambda/predicate"

func id(args ...any) (any, error) {
	if err := arity("id", args, 1); err != nil {
		return nil, err
	}
	return args[0], nil
}

// com applies its first argument to the second: com(f, x) = f(x).
func com(args ...any) (any, error) {
	if err := arity("com", args, 2); err != nil {
		return nil, err
	}
	f, err := callable("com", args[0])
	if err != nil {
		return nil, err
	}
	return f.Call(args[1])
}

// ifThenElse calls the second argument when the first is true and the third
// otherwise, both with no arguments. Since arguments are evaluated eagerly
// the branches have to be functions.
func ifThenElse(args ...any) (any, error) {
	if err := arity("if", args, 3); err != nil {
		return nil, err
	}
	cond, err := boolean("if", args[0])
	if err != nil {
		return nil, err
	}
	branch := args[2]
	if cond {
		branch = args[1]
	}
	f, err := callable("if", branch)
	if err != nil {
		return nil, err
	}
	return f.Call()
}

// fix is a strict fixpoint: fix(f) returns g such that g(xs...) = f(g)(xs...).
func fix(args ...any) (any, error) {
	if err := arity("fix", args, 1); err != nil {
		return nil, err
	}
	f, err := callable("fix", args[0])
	if err != nil {
		return nil, err
	}

	var g predicate.Func
	g = func(xs ...any) (any, error) {
		step, err := f.Call(g)
		if err != nil {
			return nil, err
		}
		h, err := callable("fix", step)
		if err != nil {
			return nil, err
		}
		return h.Call(xs...)
	}
	return g, nil
}

func not(args ...any) (any, error) {
	if err := arity("logic.not", args, 1); err != nil {
		return nil, err
	}
	b, err := boolean("logic.not", args[0])
	if err != nil {
		return nil, err
	}
	return !b, nil
}

// and and or take any number of booleans. All of them have been evaluated
// already, there is no short circuit.
func and(args ...any) (any, error) {
	r := true
	for _, a := range args {
		b, err := boolean("logic.and", a)
		if err != nil {
			return nil, err
		}
		r = r && b
	}
	return r, nil
}

func or(args ...any) (any, error) {
	r := false
	for _, a := range args {
		b, err := boolean("logic.or", a)
		if err != nil {
			return nil, err
		}
		r = r || b
	}
	return r, nil
}
