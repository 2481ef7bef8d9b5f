package schema

import (
	"errors"
	"fmt"
)

var ErrSchema = errors.New("schema error")

// Error reports a problem building or loading a model.
type Error struct {
	Module string
	Path   string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	where := ""
	if e.Module != "" {
		where = " in module " + e.Module
	}
	if e.Path != "" {
		where += " at " + e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("schema error%s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("schema error%s: %s", where, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrSchema
}

func errorf(mod, path, format string, args ...any) *Error {
	return &Error{Module: mod, Path: path, Msg: fmt.Sprintf(format, args...)}
}
