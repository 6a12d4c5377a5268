package term

import (
	"fmt"

	"github.com/samber/lo"
)

// Decode validates an encoded term tree and returns its typed form.
//
// Lists must be []any (as produced by encoding/json or NodeToValue); a
// parameter list may also be a []string, and an already decoded Term found in
// the tree is kept unchanged. Meta data literals are kept as they
// are, without looking inside them. The whole tree is checked, so a malformed
// node anywhere is reported before anything is evaluated.
func Decode(v any) (Term, error) {
	if t, ok := v.(Term); ok {
		return t, nil
	}

	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, ErrUnrecognizedTag{Node: v}
	}
	tagStr, ok := list[0].(string)
	if !ok {
		return nil, ErrUnrecognizedTag{Node: v}
	}
	tag := Tag(tagStr)
	want := tag.arity()
	if want == 0 {
		return nil, ErrUnrecognizedTag{Tag: tagStr, Node: v}
	}
	if len(list) != want {
		return nil, ErrUnrecognizedTag{Tag: tagStr, Node: v, Reason: fmt.Sprintf("expected %d elements; got %d", want, len(list))}
	}

	bad := func(format string, args ...any) error {
		return ErrUnrecognizedTag{Tag: tagStr, Node: v, Reason: fmt.Sprintf(format, args...)}
	}

	switch tag {
	case TagData:
		return Data{list[1]}, nil
	case TagVar:
		name, ok := list[1].(string)
		if !ok || name == "" {
			return nil, bad("variable name must be a non-empty string; got %#v", list[1])
		}
		return Var{name}, nil
	case TagPredRef:
		name, ok := list[1].(string)
		if !ok || name == "" {
			return nil, bad("predicate name must be a non-empty string; got %#v", list[1])
		}
		return PredRef{name}, nil
	case TagLambda:
		params, err := decodeParams(list[1])
		if err != nil {
			return nil, bad("%s", err)
		}
		body, err := Decode(list[2])
		if err != nil {
			return nil, err
		}
		return Lambda{params, body}, nil
	case TagPred:
		name, ok := list[1].(string)
		if !ok || name == "" {
			return nil, bad("predicate name must be a non-empty string; got %#v", list[1])
		}
		args, ok := list[2].([]any)
		if !ok {
			return nil, bad("arguments must be a list; got %#v", list[2])
		}
		terms, err := decodeList(args)
		if err != nil {
			return nil, err
		}
		return Pred{name, terms}, nil
	case TagApply:
		fn, err := Decode(list[1])
		if err != nil {
			return nil, err
		}
		args, ok := list[2].([]any)
		if !ok {
			return nil, bad("arguments must be a list; got %#v", list[2])
		}
		terms, err := decodeList(args)
		if err != nil {
			return nil, err
		}
		return Apply{fn, terms}, nil
	}
	// unreachable, arity already rejected unknown tags
	return nil, ErrUnrecognizedTag{Tag: tagStr, Node: v}
}

func decodeParams(v any) ([]string, error) {
	switch params := v.(type) {
	case []string:
		for i, p := range params {
			if p == "" {
				return nil, fmt.Errorf("parameter %d is empty", i)
			}
		}
		return append([]string{}, params...), nil
	case []any:
		r := make([]string, len(params))
		for i, p := range params {
			s, ok := p.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("parameter %d must be a non-empty string; got %#v", i, p)
			}
			r[i] = s
		}
		return r, nil
	default:
		return nil, fmt.Errorf("parameters must be a list of names; got %#v", v)
	}
}

func decodeList(list []any) ([]Term, error) {
	r := make([]Term, len(list))
	for i, v := range list {
		t, err := Decode(v)
		if err != nil {
			return nil, err
		}
		r[i] = t
	}
	return r, nil
}

// Check reports the first node of t that Decode would not have produced: a
// nil term or body, an empty name, or a Term implementation from elsewhere.
// Terms built in Go, rather than decoded, should pass it before Encode.
func Check(t Term) error {
	bad := func(reason string) error {
		return ErrUnrecognizedTag{Tag: string(t.Tag()), Node: t, Reason: reason}
	}
	switch t := t.(type) {
	case nil:
		return ErrUnrecognizedTag{Tag: "<nil>", Reason: "missing term"}
	case Data:
		return nil
	case Var:
		if t.Name == "" {
			return bad("variable name must be a non-empty string")
		}
		return nil
	case PredRef:
		if t.Name == "" {
			return bad("predicate name must be a non-empty string")
		}
		return nil
	case Lambda:
		for i, p := range t.Params {
			if p == "" {
				return bad(fmt.Sprintf("parameter %d is empty", i))
			}
		}
		if t.Body == nil {
			return bad("missing body")
		}
		return Check(t.Body)
	case Pred:
		if t.Name == "" {
			return bad("predicate name must be a non-empty string")
		}
		return checkList(t.Args)
	case Apply:
		if t.Fn == nil {
			return bad("missing function")
		}
		if err := Check(t.Fn); err != nil {
			return err
		}
		return checkList(t.Args)
	default:
		return ErrUnrecognizedTag{Tag: fmt.Sprintf("%T", t), Node: t, Reason: "unknown term type"}
	}
}

func checkList(terms []Term) error {
	for _, t := range terms {
		if err := Check(t); err != nil {
			return err
		}
	}
	return nil
}

// Encode returns the wire form of t. Decode(Encode(t)) gives back t.
// Encode panics on terms Check rejects.
func Encode(t Term) []any {
	switch t := t.(type) {
	case Data:
		return []any{string(TagData), t.Value}
	case Var:
		return []any{string(TagVar), t.Name}
	case PredRef:
		return []any{string(TagPredRef), t.Name}
	case Lambda:
		params := lo.Map(t.Params, func(p string, _ int) any { return p })
		return []any{string(TagLambda), params, Encode(t.Body)}
	case Pred:
		return []any{string(TagPred), t.Name, encodeList(t.Args)}
	case Apply:
		return []any{string(TagApply), Encode(t.Fn), encodeList(t.Args)}
	default:
		panic(fmt.Sprintf("term: unknown term type %T", t))
	}
}

func encodeList(terms []Term) []any {
	return lo.Map(terms, func(t Term, _ int) any { return Encode(t) })
}
