package repository

import "errors"

// ErrEmptyPath is returned by Open when no database path is given.
var ErrEmptyPath = errors.New("sqlite path is empty")
