package term

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedTag is returned when a node does not start with one of the six
// tags, or when its payload does not have the shape its tag requires.
// It will always be errors.As able.
type ErrUnrecognizedTag struct {
	// Tag is the leading element of Node when it is a string.
	Tag string
	// Node is the offending encoded node.
	Node any
	// Reason is empty when Tag itself is unknown.
	Reason string
}

func (e ErrUnrecognizedTag) Error() string {
	tag := e.Tag
	if tag == "" {
		tag = fmt.Sprintf("%v", e.Node)
	}
	if e.Reason == "" {
		return "unexpected expression type " + tag
	}
	return fmt.Sprintf("unexpected expression type %s: %s", tag, e.Reason)
}

// ErrNotData is returned when a value cannot be represented in the IPLD data
// model, typically a closure or a predicate returned as a result.
type ErrNotData struct {
	Value any
}

func (e ErrNotData) Error() string {
	return fmt.Sprintf("value of type %T is not data", e.Value)
}

// ErrUnsupportedCodec is returned by the codec helpers for anything but
// dag-json and dag-cbor.
var ErrUnsupportedCodec = errors.New("unsupported codec")
