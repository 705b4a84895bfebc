package capture

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/saturn72/efaudit/internal/tracking"
)

// assembler turns one monitored tracked entry into an EntityAudit and
// registers the entry in the correlation table under a fresh uuid.
type assembler struct {
	builder *Builder
}

func (a *assembler) assemble(entry tracking.Entry, table *correlationTable) (EntityAudit, error) {
	state, err := stateLabel(entry.State())
	if err != nil {
		return EntityAudit{}, err
	}

	// Original value, not current: for added entities the key is not yet
	// assigned and gets backfilled after commit; for deleted entities the
	// current value may already be torn down.
	pk, err := originalPrimaryKey(entry)
	if err != nil {
		return EntityAudit{}, fmt.Errorf("%s: %w", entry.Descriptor().ShortName(), err)
	}

	value, err := a.builder.Materialize(entry)
	if err != nil {
		return EntityAudit{}, err
	}

	modified := make([]ModifiedProperty, 0)
	if state == StateModified {
		modified = modifiedProperties(entry)
	}

	audit := EntityAudit{
		Uuid:               uuid.New(),
		State:              state,
		TypeName:           entry.Descriptor().ShortName(),
		PrimaryKeyValue:    pk,
		Value:              value,
		ModifiedProperties: modified,
	}
	table.put(audit.Uuid, entry)
	return audit, nil
}

func stateLabel(s tracking.State) (string, error) {
	switch s {
	case tracking.StateAdded:
		return StateAdded, nil
	case tracking.StateModified:
		return StateModified, nil
	case tracking.StateDeleted:
		return StateDeleted, nil
	}
	return "", fmt.Errorf("state %d: %w", s, ErrStateNotMonitored)
}

func originalPrimaryKey(entry tracking.Entry) (any, error) {
	for _, p := range entry.Properties() {
		if p.IsPrimaryKey() {
			return p.OriginalValue(), nil
		}
	}
	return nil, ErrMissingPrimaryKey
}

func currentPrimaryKey(entry tracking.Entry) (any, error) {
	for _, p := range entry.Properties() {
		if p.IsPrimaryKey() {
			return p.CurrentValue(), nil
		}
	}
	return nil, ErrMissingPrimaryKey
}

// modifiedProperties keeps properties the tracker flags as changed whose
// values actually differ. Both checks matter: trackers can flag a property
// that was written back with an equal value.
func modifiedProperties(entry tracking.Entry) []ModifiedProperty {
	out := make([]ModifiedProperty, 0)
	for _, p := range entry.Properties() {
		if !p.IsModified() {
			continue
		}
		cur, orig := p.CurrentValue(), p.OriginalValue()
		if valuesEqual(p, cur, orig) {
			continue
		}
		out = append(out, ModifiedProperty{
			Name:          p.Name(),
			Type:          p.TypeName(),
			OriginalValue: orig,
			CurrentValue:  cur,
		})
	}
	return out
}

func valuesEqual(p tracking.Property, a, b any) bool {
	if c, ok := p.(tracking.ValueComparer); ok {
		return c.ValuesEqual(a, b)
	}
	return reflect.DeepEqual(a, b)
}
