package grainfield

import (
	"errors"

	"github.com/cbegin/grainfield-go/internal/pool"
	"github.com/cbegin/grainfield-go/internal/sched"
)

var (
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrInvalidParams     = errors.New("invalid voice params")
	ErrNilSource         = errors.New("nil grain source")
	ErrPlaying           = errors.New("engine is playing live")
	ErrUnknownBackend    = errors.New("unknown audio backend")

	ErrPoolExhausted = pool.ErrPoolExhausted
	ErrEmptySpan     = sched.ErrEmptySpan
	ErrNegativeTime  = sched.ErrNegativeTime
)
