package service

import (
	"errors"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/preprocess"
)

// Error kinds surfaced by the matcher. Callers classify with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotReady        = errors.New("model or index not loaded")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("request deadline exceeded")
	ErrDataQuality     = preprocess.ErrDataQuality
)
