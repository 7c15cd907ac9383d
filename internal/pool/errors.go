package pool

import "errors"

var (
	ErrPoolExhausted = errors.New("voice pool exhausted")
	ErrNilSource     = errors.New("nil grain source")
	ErrInvalidConfig = errors.New("invalid pool config")
)
