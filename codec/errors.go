package codec

import (
	"errors"
	"fmt"

	"github.com/signadot/bindtree/schema"
)

var (
	// ErrContractViolation is wrapped by every *ContractError.
	ErrContractViolation = errors.New("contract violation")
	// ErrUnrepresentable is returned where a typed value is required but
	// the generic input has no typed form.
	ErrUnrepresentable = errors.New("no typed representation")
)

// ContractError reports malformed input: a path, key or value that breaks
// the structure the schema and the generated types agree on.
type ContractError struct {
	Op   string
	Node string
	Path string
	Msg  string
}

func (e *ContractError) Error() string {
	buf := "contract violation in " + e.Op
	if e.Node != "" {
		buf += " at " + e.Node
	}
	if e.Path != "" {
		buf += " (path " + e.Path + ")"
	}
	return buf + ": " + e.Msg
}

func (e *ContractError) Unwrap() error {
	return ErrContractViolation
}

func violation(op string, n *schema.Node, format string, args ...any) *ContractError {
	e := &ContractError{Op: op, Msg: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Node = n.String()
	}
	return e
}

// Reason says why a generic path has no typed form.
type Reason int

const (
	Representable Reason = iota
	TargetsChoice
	TargetsCase
	TargetsLeaf
	TrailingListItem
)

func (r Reason) String() string {
	switch r {
	case Representable:
		return "representable"
	case TargetsChoice:
		return "targets a choice"
	case TargetsCase:
		return "targets a case"
	case TargetsLeaf:
		return "targets a leaf"
	case TrailingListItem:
		return "ends in a list item without key"
	}
	return "<unknown reason>"
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
