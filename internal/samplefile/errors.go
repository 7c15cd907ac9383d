package samplefile

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidWAV        = errors.New("invalid wav file")
	ErrNoAudio           = errors.New("file contains no audio")
	ErrInvalidLayout     = errors.New("invalid channel layout")
)
