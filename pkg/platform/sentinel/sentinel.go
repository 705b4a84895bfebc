package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and services return these
// (optionally wrapped) so transport layers can translate them into status
// codes without inspecting error text.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)
