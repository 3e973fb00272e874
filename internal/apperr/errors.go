package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNoActiveFile       = errors.New("no active file")
	ErrNameExhausted      = errors.New("filename variants exhausted")
	ErrQueueFull          = errors.New("event queue full")
	ErrAsleep             = errors.New("device asleep")
)
