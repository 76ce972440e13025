package doctree

import (
	"errors"
	"fmt"
)

// ErrDanglingReference indicates a NodeRef that does not resolve in the given tree.
var ErrDanglingReference = errors.New("dangling node reference")

// RefError reports why a NodeRef failed to resolve.
type RefError struct {
	Ref    NodeRef
	Reason string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("node %d of tree %d: %s", e.Ref.index, e.Ref.tree, e.Reason)
}

func (e *RefError) Unwrap() error {
	return ErrDanglingReference
}
