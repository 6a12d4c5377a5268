// Package rules translates structured descriptions of terms, the
// {type, value} records a front end usually produces, into terms.
//
//	{"type": "application", "value": {
//	    "fn": {"type": "variable", "value": "f"},
//	    "args": [{"type": "metaData", "value": 1}]}}
//
// corresponds to ["a", ["v", "f"], [["d", 1]]].
package rules

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/ipfs/go-ipld-lambda/term"
)

const (
	MetaData           = "metaData"
	Variable           = "variable"
	Abstraction        = "abstraction"
	Predicate          = "predicate"
	Application        = "application"
	PredicateReference = "predicateReference"
)

var tags = map[string]term.Tag{
	MetaData:           term.TagData,
	Variable:           term.TagVar,
	Abstraction:        term.TagLambda,
	Predicate:          term.TagPred,
	Application:        term.TagApply,
	PredicateReference: term.TagPredRef,
}

var ErrUnknownRule = errors.New("unknown rule type")

// Rule describes one term. Value depends on Type:
//
//	metaData            any literal
//	variable            the variable name
//	predicateReference  the predicate name
//	abstraction         AbstractionValue
//	predicate           PredicateValue
//	application         ApplicationValue
//
// The composite values may also be given as map[string]any with the same
// lower case keys, and nested rules as map[string]any with "type" and
// "value", which is what decoding JSON into a Rule yields.
type Rule struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type AbstractionValue struct {
	Params []string `json:"params"`
	Body   Rule     `json:"body"`
}

type PredicateValue struct {
	Name string `json:"name"`
	Args []Rule `json:"args"`
}

type ApplicationValue struct {
	Fn   Rule   `json:"fn"`
	Args []Rule `json:"args"`
}

// Parse translates r into a term. Every problem found anywhere in the rule
// tree is reported, combined with multierr.
func Parse(r Rule) (term.Term, error) {
	p := &parser{}
	t := p.rule("", r)
	if p.err != nil {
		return nil, p.err
	}
	return t, nil
}

// Is reports whether the wire node carries the tag of the rule type typ.
func Is(typ string, wire any) bool {
	tag, ok := tags[typ]
	if !ok {
		return false
	}
	if t, ok := wire.(term.Term); ok {
		return t.Tag() == tag
	}
	l, ok := wire.([]any)
	if !ok || len(l) == 0 {
		return false
	}
	head, ok := l[0].(string)
	return ok && term.Tag(head) == tag
}

// FromTerm is the inverse of Parse.
func FromTerm(t term.Term) Rule {
	switch t := t.(type) {
	case term.Data:
		return Rule{Type: MetaData, Value: t.Value}
	case term.Var:
		return Rule{Type: Variable, Value: t.Name}
	case term.PredRef:
		return Rule{Type: PredicateReference, Value: t.Name}
	case term.Lambda:
		return Rule{Type: Abstraction, Value: AbstractionValue{
			Params: append([]string{}, t.Params...),
			Body:   FromTerm(t.Body),
		}}
	case term.Pred:
		return Rule{Type: Predicate, Value: PredicateValue{Name: t.Name, Args: fromTerms(t.Args)}}
	case term.Apply:
		return Rule{Type: Application, Value: ApplicationValue{Fn: FromTerm(t.Fn), Args: fromTerms(t.Args)}}
	default:
		panic(fmt.Sprintf("unknown term type %T", t))
	}
}

func fromTerms(ts []term.Term) []Rule {
	return lo.Map(ts, func(t term.Term, _ int) Rule { return FromTerm(t) })
}

type parser struct {
	err error
}

func (p *parser) fail(path, format string, args ...any) {
	p.err = multierr.Append(p.err, fmt.Errorf("%s: %s", orRoot(path), fmt.Sprintf(format, args...)))
}

func (p *parser) rule(path string, r Rule) term.Term {
	switch r.Type {
	case MetaData:
		return term.Data{Value: r.Value}
	case Variable:
		return term.Var{Name: p.name(path, r.Value)}
	case PredicateReference:
		return term.PredRef{Name: p.name(path, r.Value)}
	case Abstraction:
		v, ok := p.abstraction(path, r.Value)
		if !ok {
			return nil
		}
		for i, name := range v.Params {
			if name == "" {
				p.fail(fmt.Sprintf("%s/params/%d", path, i), "empty parameter name")
			}
		}
		return term.Lambda{Params: v.Params, Body: p.rule(path+"/body", v.Body)}
	case Predicate:
		v, ok := p.predicate(path, r.Value)
		if !ok {
			return nil
		}
		name := p.name(path+"/name", v.Name)
		return term.Pred{Name: name, Args: p.rules(path+"/args", v.Args)}
	case Application:
		v, ok := p.application(path, r.Value)
		if !ok {
			return nil
		}
		return term.Apply{Fn: p.rule(path+"/fn", v.Fn), Args: p.rules(path+"/args", v.Args)}
	default:
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %w %q", orRoot(path), ErrUnknownRule, r.Type))
		return nil
	}
}

func (p *parser) rules(path string, rs []Rule) []term.Term {
	out := make([]term.Term, len(rs))
	for i, r := range rs {
		out[i] = p.rule(fmt.Sprintf("%s/%d", path, i), r)
	}
	return out
}

func (p *parser) name(path string, v any) string {
	s, ok := v.(string)
	if !ok || s == "" {
		p.fail(path, "expected a non empty name; got %#v", v)
	}
	return s
}

func (p *parser) abstraction(path string, v any) (AbstractionValue, bool) {
	switch v := v.(type) {
	case AbstractionValue:
		return v, true
	case *AbstractionValue:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		var out AbstractionValue
		ok := true
		switch params := v["params"].(type) {
		case nil:
		case []string:
			out.Params = params
		case []any:
			out.Params = make([]string, len(params))
			for i, x := range params {
				s, isString := x.(string)
				if !isString {
					p.fail(fmt.Sprintf("%s/params/%d", path, i), "expected a string; got %#v", x)
					ok = false
				}
				out.Params[i] = s
			}
		default:
			p.fail(path+"/params", "expected a list of names; got %#v", params)
			ok = false
		}
		body, bodyOK := p.nested(path+"/body", v["body"])
		out.Body = body
		return out, ok && bodyOK
	}
	p.fail(path, "expected an abstraction value; got %T", v)
	return AbstractionValue{}, false
}

func (p *parser) predicate(path string, v any) (PredicateValue, bool) {
	switch v := v.(type) {
	case PredicateValue:
		return v, true
	case *PredicateValue:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		name, nameOK := v["name"].(string)
		if !nameOK {
			p.fail(path+"/name", "expected a non empty name; got %#v", v["name"])
		}
		args, argsOK := p.nestedList(path+"/args", v["args"])
		return PredicateValue{Name: name, Args: args}, nameOK && argsOK
	}
	p.fail(path, "expected a predicate value; got %T", v)
	return PredicateValue{}, false
}

func (p *parser) application(path string, v any) (ApplicationValue, bool) {
	switch v := v.(type) {
	case ApplicationValue:
		return v, true
	case *ApplicationValue:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		fn, fnOK := p.nested(path+"/fn", v["fn"])
		args, argsOK := p.nestedList(path+"/args", v["args"])
		return ApplicationValue{Fn: fn, Args: args}, fnOK && argsOK
	}
	p.fail(path, "expected an application value; got %T", v)
	return ApplicationValue{}, false
}

// nested reads a rule given either as a Rule or as its map form.
func (p *parser) nested(path string, v any) (Rule, bool) {
	switch v := v.(type) {
	case Rule:
		return v, true
	case *Rule:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		typ, ok := v["type"].(string)
		if !ok {
			p.fail(path, "missing rule type")
			return Rule{}, false
		}
		return Rule{Type: typ, Value: v["value"]}, true
	}
	p.fail(path, "expected a rule; got %T", v)
	return Rule{}, false
}

// nestedList reads a list of rules. A missing list is an empty one.
func (p *parser) nestedList(path string, v any) ([]Rule, bool) {
	switch v := v.(type) {
	case nil:
		return nil, true
	case []Rule:
		return v, true
	case []any:
		out := make([]Rule, len(v))
		ok := true
		for i, x := range v {
			r, rOK := p.nested(fmt.Sprintf("%s/%d", path, i), x)
			out[i] = r
			ok = ok && rOK
		}
		return out, ok
	}
	p.fail(path, "expected a list of rules; got %T", v)
	return nil, false
}

func orRoot(path string) string {
	if path == "" {
		return "."
	}
	return path
}
