package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrNoValidRows    = errors.New("no valid rows: every row lacks a person, organization or event")
	ErrNoData         = errors.New("no training records stored yet")
	ErrEmptyQuestion  = errors.New("question must not be empty")
	ErrEmptyEventName = errors.New("event name must not be empty")
	ErrUploadTooLarge = errors.New("upload exceeds the size limit")
)
