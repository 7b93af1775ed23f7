package ingest

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrNotTabular        = errors.New("input is not tabular data")
	ErrIncompleteMapping = errors.New("column mapping is incomplete")
	ErrDateSource        = errors.New("mapping needs exactly one date source: a date column or a manual date")
	ErrUnknownColumn     = errors.New("mapped column does not exist")
)
