package tracking

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// keyField is the struct field treated as the store-generated primary key.
const keyField = "ID"

// DB issues unit-of-work sessions and owns the store-generated key sequence,
// so keys assigned at commit are unique across sessions.
type DB struct {
	seq atomic.Int64
}

func NewDB() *DB {
	return &DB{}
}

// NewSession opens a unit of work. Sessions are single-use: track entities,
// commit once, discard.
func (db *DB) NewSession() *Session {
	return &Session{db: db, txID: uuid.NewString()}
}

// Session is a minimal in-memory unit of work implementing Source. It tracks
// struct entities and association rows, computes modified flags against the
// originals captured at track time, and assigns sequential keys at commit the
// way a store-generated key column would.
type Session struct {
	mu      sync.Mutex
	db      *DB
	txID    string
	entries []*sessionEntry
}

// Insert stages a new entity. entity must be a pointer to a struct; its key
// field stays zero until Commit assigns one.
func (s *Session) Insert(entity any) error {
	return s.track(entity, StateAdded)
}

// Track stages an existing entity as unchanged. Mutations made to it before
// Commit surface as modified properties.
func (s *Session) Track(entity any) error {
	return s.track(entity, StateUnchanged)
}

// Delete stages an existing entity for removal. Originals are captured at
// this point since the store may tear down current values during the write.
func (s *Session) Delete(entity any) error {
	return s.track(entity, StateDeleted)
}

func (s *Session) track(entity any, state State) error {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("track %T: entity must be a struct pointer", entity)
	}
	elem := v.Elem()
	typ := elem.Type()

	entry := &sessionEntry{
		state:  state,
		desc:   typeDescriptor{name: typ.Name()},
		target: elem,
	}
	entry.originals = make(map[string]any, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		entry.props = append(entry.props, &sessionProperty{
			entry:    entry,
			name:     f.Name,
			typeName: f.Type.String(),
			index:    i,
			pk:       f.Name == keyField,
		})
		entry.originals[f.Name] = elem.Field(i).Interface()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Link stages a new association row, a pure many-to-many record holding only
// its foreign keys. Every value is a key component.
func (s *Session) Link(typeName string, values map[string]any) {
	s.addAssociation(typeName, values, StateAdded)
}

// Unlink stages an association row for removal.
func (s *Session) Unlink(typeName string, values map[string]any) {
	s.addAssociation(typeName, values, StateDeleted)
}

func (s *Session) addAssociation(typeName string, values map[string]any, state State) {
	entry := &sessionEntry{
		state:     state,
		desc:      typeDescriptor{name: typeName, association: true},
		values:    values,
		originals: make(map[string]any, len(values)),
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry.props = append(entry.props, &sessionProperty{
			entry:    entry,
			name:     name,
			typeName: fmt.Sprintf("%T", values[name]),
			pk:       true,
		})
		entry.originals[name] = values[name]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

// Entries returns the tracked handles. Tracked entities whose fields now
// differ from their originals surface as modified.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// ProviderInfo identifies the in-memory backend and the session's transaction.
func (s *Session) ProviderInfo() map[string]string {
	return map[string]string{
		"provider":      "memory",
		"transactionId": s.txID,
	}
}

// Commit performs the write: added entities with a zero key receive the next
// store-generated key. The session must not be reused afterward.
func (s *Session) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.currentState() != StateAdded || e.desc.association {
			continue
		}
		f := e.target.FieldByName(keyField)
		if f.IsValid() && f.Kind() == reflect.Int64 && f.Int() == 0 {
			f.SetInt(s.db.seq.Add(1))
		}
	}
	return nil
}

type typeDescriptor struct {
	name        string
	association bool
}

func (d typeDescriptor) ShortName() string { return d.name }
func (d typeDescriptor) IsAssociation() bool { return d.association }

type sessionEntry struct {
	state     State
	desc      typeDescriptor
	target    reflect.Value // struct value, addressable; zero for associations
	values    map[string]any
	originals map[string]any
	props     []*sessionProperty
}

func (e *sessionEntry) State() State { return e.currentState() }

func (e *sessionEntry) currentState() State {
	if e.state != StateUnchanged {
		return e.state
	}
	for _, p := range e.props {
		if !reflect.DeepEqual(p.CurrentValue(), e.originals[p.name]) {
			return StateModified
		}
	}
	return StateUnchanged
}

func (e *sessionEntry) Properties() []Property {
	out := make([]Property, 0, len(e.props))
	for _, p := range e.props {
		out = append(out, p)
	}
	return out
}

func (e *sessionEntry) Descriptor() TypeDescriptor { return e.desc }

type sessionProperty struct {
	entry    *sessionEntry
	name     string
	typeName string
	index    int
	pk       bool
}

func (p *sessionProperty) Name() string     { return p.name }
func (p *sessionProperty) TypeName() string { return p.typeName }

func (p *sessionProperty) CurrentValue() any {
	if p.entry.desc.association {
		return p.entry.values[p.name]
	}
	return p.entry.target.Field(p.index).Interface()
}

func (p *sessionProperty) OriginalValue() any {
	return p.entry.originals[p.name]
}

func (p *sessionProperty) IsModified() bool {
	return !reflect.DeepEqual(p.CurrentValue(), p.OriginalValue())
}

func (p *sessionProperty) IsPrimaryKey() bool { return p.pk }
