package capture

import (
	"github.com/google/uuid"

	"github.com/saturn72/efaudit/internal/tracking"
)

// correlationTable maps audit-entry uuids back to the live tracked handles
// they were derived from, so the post-commit phase can re-read keys the store
// assigned during the write. Scoped to one capture; holds references for
// lookup only, never owns the handles.
type correlationTable struct {
	entries map[uuid.UUID]tracking.Entry
}

func newCorrelationTable() *correlationTable {
	return &correlationTable{entries: make(map[uuid.UUID]tracking.Entry)}
}

func (t *correlationTable) put(id uuid.UUID, entry tracking.Entry) {
	t.entries[id] = entry
}

func (t *correlationTable) get(id uuid.UUID) (tracking.Entry, bool) {
	entry, ok := t.entries[id]
	return entry, ok
}
