// Package tracking defines the boundary to the persistence layer's change
// tracker. The audit core consumes these interfaces only; it never depends on
// a concrete ORM. Session provides an in-memory implementation for the sample
// server and tests.
package tracking

// State classifies a tracked entity within one unit of work.
type State int

const (
	StateUnchanged State = iota
	StateAdded
	StateModified
	StateDeleted
)

// Monitored reports whether entities in this state are audited.
func (s State) Monitored() bool {
	switch s {
	case StateAdded, StateModified, StateDeleted:
		return true
	}
	return false
}

// Property exposes one tracked property of an entity: its declared type,
// current and original values, and the tracker's flags.
type Property interface {
	Name() string
	TypeName() string
	CurrentValue() any
	OriginalValue() any
	IsModified() bool
	IsPrimaryKey() bool
}

// ValueComparer overrides the default deep-equality comparison for a
// property's values. Trackers implement it on properties whose ambient
// equality would under- or over-report changes (collections, references).
type ValueComparer interface {
	ValuesEqual(a, b any) bool
}

// TypeDescriptor describes the declared type of a tracked entity.
type TypeDescriptor interface {
	ShortName() string
	// IsAssociation reports whether the type is a pure many-to-many link
	// with no identity beyond its foreign keys.
	IsAssociation() bool
}

// Entry is a live tracked-entity handle for one persisted record. Current
// values read through it reflect the entity's present state, including keys
// the store assigns at commit.
type Entry interface {
	State() State
	Properties() []Property
	Descriptor() TypeDescriptor
}

// Source enumerates the tracked entries participating in the current unit of
// work, plus backend metadata for the audit record.
type Source interface {
	Entries() []Entry
	// ProviderInfo returns persistence-backend metadata, typically the
	// backend name and the active transaction identifier if any.
	ProviderInfo() map[string]string
}
