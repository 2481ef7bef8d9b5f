package ir

import (
	"errors"
)

var (
	errInternal = errors.New("internal error")

	ErrParse  = errors.New("parse error")
	ErrStream = errors.New("stream error")
)
