// Package term defines the tagged-tuple encoding of lambda terms extended with
// named predicates.
//
// A term on the wire is a fixed-shape list whose first element is a one
// letter tag:
//
//	["d", literal]              meta data
//	["v", name]                 variable
//	["l", [name, ...], body]    abstraction
//	["p", name, [arg, ...]]     predicate invocation
//	["a", fn, [arg, ...]]       application
//	["f", name]                 predicate reference
//
// Decode turns such a tree into a Term, Encode does the reverse. The same
// grammar is available on the IPLD data model (FromNode, ToNode) and through
// the DAG-JSON and DAG-CBOR codecs (Marshal, Unmarshal).
package term

import "strconv"

// Tag is the leading element of an encoded term.
type Tag string

const (
	TagData    Tag = "d"
	TagVar     Tag = "v"
	TagLambda  Tag = "l"
	TagPred    Tag = "p"
	TagApply   Tag = "a"
	TagPredRef Tag = "f"
)

func (t Tag) String() string {
	switch t {
	case TagData:
		return "Meta Data"
	case TagVar:
		return "Variable"
	case TagLambda:
		return "Abstraction"
	case TagPred:
		return "Predicate"
	case TagApply:
		return "Application"
	case TagPredRef:
		return "Predicate Reference"
	default:
		return "Unknown tag " + strconv.Quote(string(t))
	}
}

// arity is the length of the encoded tuple, tag included.
func (t Tag) arity() int {
	switch t {
	case TagData, TagVar, TagPredRef:
		return 2
	case TagLambda, TagPred, TagApply:
		return 3
	default:
		return 0
	}
}

// Term is one node of a term tree. The set of implementations is closed:
// Data, Var, Lambda, Pred, Apply and PredRef.
type Term interface {
	Tag() Tag

	isTerm()
}

// Data is an opaque constant. Value is returned as is by the evaluator, even
// if it looks like an encoded term.
type Data struct {
	Value any
}

// Var references a bound identifier.
type Var struct {
	Name string
}

// Lambda is a function literal over the lexically enclosing scope.
// Params are bound positionally.
type Lambda struct {
	Params []string
	Body   Term
}

// Pred invokes the host predicate Name, which may be a dotted path.
type Pred struct {
	Name string
	Args []Term
}

// Apply invokes the value computed by Fn.
type Apply struct {
	Fn   Term
	Args []Term
}

// PredRef yields the host predicate Name as a value without invoking it.
type PredRef struct {
	Name string
}

func (Data) Tag() Tag    { return TagData }
func (Var) Tag() Tag     { return TagVar }
func (Lambda) Tag() Tag  { return TagLambda }
func (Pred) Tag() Tag    { return TagPred }
func (Apply) Tag() Tag   { return TagApply }
func (PredRef) Tag() Tag { return TagPredRef }

func (Data) isTerm()    {}
func (Var) isTerm()     {}
func (Lambda) isTerm()  {}
func (Pred) isTerm()    {}
func (Apply) isTerm()   {}
func (PredRef) isTerm() {}

var (
	_ Term = Data{}
	_ Term = Var{}
	_ Term = Lambda{}
	_ Term = Pred{}
	_ Term = Apply{}
	_ Term = PredRef{}
)
