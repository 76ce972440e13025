package dnm

import (
	"errors"
	"fmt"

	"github.com/dgallion1/docnarrative/internal/doctree"
)

var (
	// ErrUnsupportedNodeKind aborts Build when a node has no handling rule.
	ErrUnsupportedNodeKind = errors.New("unsupported node kind")
	// ErrOutOfBounds indicates range bounds outside the DNM text.
	ErrOutOfBounds = errors.New("range out of bounds")
	// ErrConflictingRule indicates one tag configured under two handling rules.
	ErrConflictingRule = errors.New("conflicting tag rules")
	// ErrInvalidParameters indicates an unusable Parameters value.
	ErrInvalidParameters = errors.New("invalid parameters")
)

// NodeKindError names the node that Build could not handle.
type NodeKindError struct {
	Ref  doctree.NodeRef
	Kind doctree.Kind
}

func (e *NodeKindError) Error() string {
	return fmt.Sprintf("cannot normalize %s node %d", e.Kind, e.Ref.Index())
}

func (e *NodeKindError) Unwrap() error {
	return ErrUnsupportedNodeKind
}

// BoundsError carries the rejected bounds and the allowed limit.
type BoundsError struct {
	Start, End int
	Limit      int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("bounds [%d,%d) outside [0,%d]", e.Start, e.End, e.Limit)
}

func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}

// RuleError reports a tag configured under two rules.
type RuleError struct {
	Tag    string
	First  string
	Second string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("tag %q is listed in both %s and %s", e.Tag, e.First, e.Second)
}

func (e *RuleError) Unwrap() error {
	return ErrConflictingRule
}
