package report

import "errors"

// Sentinel kinds for report errors.
var (
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownMeasure   = errors.New("unknown measure")
	ErrDetailDimension  = errors.New("detail is only available by person or organization")
	ErrBadCSV           = errors.New("malformed pivot csv")
)
