package term

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders t for humans, e.g. (\x. add(x, 1))(3).
// Predicate references are prefixed with &.
func String(t Term) string {
	var sb strings.Builder
	write(&sb, t)
	return sb.String()
}

func write(sb *strings.Builder, t Term) {
	switch t := t.(type) {
	case Data:
		if s, ok := t.Value.(string); ok {
			sb.WriteString(strconv.Quote(s))
			return
		}
		fmt.Fprintf(sb, "%v", t.Value)
	case Var:
		sb.WriteString(t.Name)
	case PredRef:
		sb.WriteString("&")
		sb.WriteString(t.Name)
	case Lambda:
		sb.WriteString(`(\`)
		sb.WriteString(strings.Join(t.Params, ", "))
		sb.WriteString(". ")
		write(sb, t.Body)
		sb.WriteString(")")
	case Pred:
		sb.WriteString(t.Name)
		writeArgs(sb, t.Args)
	case Apply:
		write(sb, t.Fn)
		writeArgs(sb, t.Args)
	default:
		fmt.Fprintf(sb, "<%T>", t)
	}
}

func writeArgs(sb *strings.Builder, args []Term) {
	sb.WriteString("(")
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		write(sb, a)
	}
	sb.WriteString(")")
}
