// Package capture assembles one audit record per unit of work: it snapshots
// every tracked entity before the write, correlates staged entities with the
// keys the store assigns at commit, and finalizes the record with the
// transaction outcome.
package capture

import (
	"time"

	"github.com/google/uuid"
)

// Entity states carried on EntityAudit.
const (
	StateAdded    = "added"
	StateModified = "modified"
	StateDeleted  = "deleted"
)

// InstanceKind tags the two materialized-value variants so consumers can
// branch without type introspection.
type InstanceKind string

const (
	KindObject      InstanceKind = "object"
	KindAssociation InstanceKind = "association"
)

// Instance is an immutable, transport-safe copy of an entity's data,
// independent of the live tracked handle. Exactly one of Object or
// Association is set, per Kind.
type Instance struct {
	Kind        InstanceKind   `json:"kind"`
	Object      any            `json:"object,omitempty"`
	Association map[string]any `json:"association,omitempty"`
}

// ModifiedProperty records one before/after pair for a modified entity.
type ModifiedProperty struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	OriginalValue any    `json:"originalValue"`
	CurrentValue  any    `json:"currentValue"`
}

// EntityAudit is the audit entry for one tracked entity in one transaction.
// Uuid correlates back to the live handle for post-commit key backfill and is
// never transmitted as business data.
type EntityAudit struct {
	Uuid               uuid.UUID          `json:"-"`
	State              string             `json:"state"`
	TypeName           string             `json:"typeName"`
	PrimaryKeyValue    any                `json:"primaryKeyValue"`
	Value              Instance           `json:"value"`
	ModifiedProperties []ModifiedProperty `json:"modifiedProperties"`
}

// AuditRecord is the terminal audit artifact for one transaction attempt.
// Success stays nil until the outcome is known. After finalization the record
// is handed off and never mutated again.
type AuditRecord struct {
	ID           uuid.UUID         `json:"id"`
	SubjectID    string            `json:"subjectId,omitempty"`
	Source       string            `json:"source"`
	TraceID      string            `json:"traceId,omitempty"`
	ProviderInfo map[string]string `json:"providerInfo,omitempty"`
	Entities     []EntityAudit     `json:"entities"`
	Success      *bool             `json:"success"`
	Error        string            `json:"error,omitempty"`
	EndedOnUtc   time.Time         `json:"endedOnUtc"`
}

// Finalized reports whether the transaction outcome has been recorded.
func (r *AuditRecord) Finalized() bool {
	return r != nil && r.Success != nil
}

// TransactionID returns the backend transaction identifier, if the provider
// reported one.
func (r *AuditRecord) TransactionID() string {
	return r.ProviderInfo["transactionId"]
}
