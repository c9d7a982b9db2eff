package core

import (
	"errors"
)

var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrNotInitialized   = errors.New("system not initialized")
	ErrPoolExhausted    = errors.New("no free mesh slot")
	ErrLoadFailed       = errors.New("geometry load failed")
	ErrAllocationFailed = errors.New("gpu allocation failed")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrQueueFull        = errors.New("render queue is full")
)
