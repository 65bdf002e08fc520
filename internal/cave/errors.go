package cave

import "errors"

var (
	ErrInvalidSize   = errors.New("cave: invalid grid size")
	ErrInvalidFill   = errors.New("cave: fill percent must be within [0,100]")
	ErrInvalidConfig = errors.New("cave: invalid generator config")
	ErrNotConnected  = errors.New("cave: rooms not reachable from main room")
)
