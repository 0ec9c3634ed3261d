package models

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrEmptyInput = errors.New("empty input")
	ErrBusy       = errors.New("request already in progress")

	ErrAnalysisFailed        = errors.New("could not analyze meal")
	ErrCapabilityUnavailable = errors.New("generative service unavailable")
	ErrMalformedResponse     = errors.New("malformed generative response")
)
