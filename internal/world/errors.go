package world

import "errors"

var (
	ErrUnknownWorld     = errors.New("unknown world")
	ErrUnknownLocation  = errors.New("unknown location")
	ErrCapacityExceeded = errors.New("world capacity exceeded")
	ErrNotPresent       = errors.New("connection not present")
)
