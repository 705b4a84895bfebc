package capture

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/saturn72/efaudit/internal/tracking"
)

// Registry holds the per-type materializers the snapshot builder uses.
// Entity types are registered once at startup; registration precomputes the
// property-to-field mapping so capture fails loudly on an unmapped property
// instead of skipping it.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*typeMapping
}

type typeMapping struct {
	typ    reflect.Type
	fields map[string]int
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*typeMapping)}
}

// Register maps an entity short name to a struct prototype. Only exported
// fields are copyable; the tracker must not declare properties outside them.
func (r *Registry) Register(shortName string, prototype any) error {
	typ := reflect.TypeOf(prototype)
	if typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return fmt.Errorf("register %q: prototype must be a struct, got %T", shortName, prototype)
	}
	fields := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		if f := typ.Field(i); f.IsExported() {
			fields[f.Name] = i
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[shortName]; exists {
		return fmt.Errorf("register %q: already registered", shortName)
	}
	r.types[shortName] = &typeMapping{typ: typ, fields: fields}
	return nil
}

// MustRegister is Register for startup wiring, panicking on misuse.
func (r *Registry) MustRegister(shortName string, prototype any) {
	if err := r.Register(shortName, prototype); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(shortName string) (*typeMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.types[shortName]
	return m, ok
}

// Builder materializes live tracked entries into transport-safe instances.
type Builder struct {
	registry *Registry
}

func NewBuilder(registry *Registry) *Builder {
	return &Builder{registry: registry}
}

// Materialize produces an immutable snapshot of the entry's current values.
// Pure-association entries are cloned into a keyed map and never
// instantiated; ordinary entries are copied field by field into a fresh
// instance of their registered type. Any failure is fatal for the current
// save's audit: a silently dropped entity would be a data-integrity gap.
func (b *Builder) Materialize(entry tracking.Entry) (Instance, error) {
	desc := entry.Descriptor()
	if desc.IsAssociation() {
		values := make(map[string]any)
		for _, p := range entry.Properties() {
			values[p.Name()] = p.CurrentValue()
		}
		return Instance{Kind: KindAssociation, Association: values}, nil
	}

	m, ok := b.registry.lookup(desc.ShortName())
	if !ok {
		return Instance{}, fmt.Errorf("materialize %s: %w", desc.ShortName(), ErrTypeNotRegistered)
	}

	value := reflect.New(m.typ).Elem()
	for _, p := range entry.Properties() {
		idx, ok := m.fields[p.Name()]
		if !ok {
			return Instance{}, fmt.Errorf("materialize %s.%s: %w", desc.ShortName(), p.Name(), ErrPropertyNotMapped)
		}
		cur := p.CurrentValue()
		if cur == nil {
			continue
		}
		field := value.Field(idx)
		cv := reflect.ValueOf(cur)
		if !cv.Type().AssignableTo(field.Type()) {
			if !cv.Type().ConvertibleTo(field.Type()) {
				return Instance{}, fmt.Errorf("materialize %s.%s: cannot assign %s to %s",
					desc.ShortName(), p.Name(), cv.Type(), field.Type())
			}
			cv = cv.Convert(field.Type())
		}
		field.Set(cv)
	}
	return Instance{Kind: KindObject, Object: value.Interface()}, nil
}
