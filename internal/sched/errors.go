package sched

import "errors"

var (
	ErrEmptySpan    = errors.New("span end must be after start")
	ErrNegativeTime = errors.New("event time must be >= 0")
)
