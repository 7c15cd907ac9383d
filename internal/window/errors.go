package window

import "errors"

var (
	ErrUnknownShape  = errors.New("unknown window shape")
	ErrInvalidLength = errors.New("window length must be positive")
)
