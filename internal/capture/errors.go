package capture

import "errors"

// Sentinel errors for capture faults and state-machine violations. Capture
// faults abort the current save's audit rather than emit an incomplete
// record; state-machine violations are programmer errors and are never
// retried.
var (
	ErrTypeNotRegistered  = errors.New("entity type not registered")
	ErrPropertyNotMapped  = errors.New("property has no backing field")
	ErrMissingPrimaryKey  = errors.New("entry has no primary-key property")
	ErrStateNotMonitored  = errors.New("entity state is not monitored")
	ErrCaptureFinalized   = errors.New("capture already finalized")
	ErrCaptureNotOpened   = errors.New("capture was not opened")
	ErrUnknownCorrelation = errors.New("no tracked entry for correlation id")
)
