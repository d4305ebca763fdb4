package audit

import "errors"

// Sentinel errors for the two lookup failures that terminate an audit.
// They are never converted into a zero expected cost; the orchestrator
// turns them into an ERROR result with the cause in the trail.
var (
	ErrZoneNotFound = errors.New("zone not found")
	ErrRateNotFound = errors.New("rate not found")
)
