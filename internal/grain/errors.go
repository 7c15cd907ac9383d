package grain

import "errors"

var (
	ErrNilBuffer       = errors.New("grain: nil source buffer")
	ErrEmptyBuffer     = errors.New("grain: source buffer has no frames")
	ErrChannelMismatch = errors.New("grain: channel lengths differ")
	ErrInvalidParams   = errors.New("grain: invalid source params")
	ErrEmptyPath       = errors.New("grain: path has no grains")
	ErrUnorderedPath   = errors.New("grain: path time offsets must be non-decreasing")
)
