package advisor

import "errors"

// Sentinel kinds for assistant failures. They travel inside Result.Err.
var (
	ErrNoCredential  = errors.New("no api key configured")
	ErrEmptyResponse = errors.New("empty response from model")
	ErrUnknownLabel  = errors.New("model answered with an unknown category")
)
