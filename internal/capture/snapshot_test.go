package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturn72/efaudit/internal/tracking"
)

type Gadget struct {
	ID   int64
	Name string
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register("Gadget", Gadget{}))
	assert.Error(t, registry.Register("Gadget", Gadget{}), "duplicate registration")
	assert.Error(t, registry.Register("NotAStruct", 42))
	assert.Error(t, registry.Register("Nil", nil))
}

func TestRegistry_RegisterAcceptsPointerPrototype(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("Gadget", &Gadget{}))
}

func TestBuilder_MaterializeObject(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister("Gadget", Gadget{})
	builder := NewBuilder(registry)

	db := tracking.NewDB()
	sess := db.NewSession()
	g := &Gadget{ID: 3, Name: "sprocket"}
	require.NoError(t, sess.Track(g))

	instance, err := builder.Materialize(sess.Entries()[0])
	require.NoError(t, err)
	assert.Equal(t, KindObject, instance.Kind)
	assert.Nil(t, instance.Association)

	snapshot, ok := instance.Object.(Gadget)
	require.True(t, ok)
	assert.Equal(t, Gadget{ID: 3, Name: "sprocket"}, snapshot)

	// The snapshot is detached from the live entity.
	g.Name = "cog"
	assert.Equal(t, "sprocket", snapshot.Name)
}

func TestBuilder_MaterializeAssociation(t *testing.T) {
	// No registration: association entries must never hit type instantiation.
	builder := NewBuilder(NewRegistry())

	db := tracking.NewDB()
	sess := db.NewSession()
	sess.Link("GadgetTag", map[string]any{"GadgetID": int64(3), "Tag": "metal"})

	instance, err := builder.Materialize(sess.Entries()[0])
	require.NoError(t, err)
	assert.Equal(t, KindAssociation, instance.Kind)
	assert.Nil(t, instance.Object)
	assert.Equal(t, map[string]any{"GadgetID": int64(3), "Tag": "metal"}, instance.Association)
}

func TestBuilder_UnregisteredTypeFails(t *testing.T) {
	builder := NewBuilder(NewRegistry())

	db := tracking.NewDB()
	sess := db.NewSession()
	require.NoError(t, sess.Track(&Gadget{ID: 1}))

	_, err := builder.Materialize(sess.Entries()[0])
	require.ErrorIs(t, err, ErrTypeNotRegistered)
}

type slimGadget struct {
	ID int64
}

func TestBuilder_UnmappedPropertyFails(t *testing.T) {
	registry := NewRegistry()
	// Registered type lacks the Name field the tracker declares.
	registry.MustRegister("Gadget", slimGadget{})
	builder := NewBuilder(registry)

	db := tracking.NewDB()
	sess := db.NewSession()
	require.NoError(t, sess.Track(&Gadget{ID: 1, Name: "sprocket"}))

	_, err := builder.Materialize(sess.Entries()[0])
	require.ErrorIs(t, err, ErrPropertyNotMapped)
}

func TestBuilder_SeesKeyAssignedAfterCommit(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister("Gadget", Gadget{})
	builder := NewBuilder(registry)

	db := tracking.NewDB()
	sess := db.NewSession()
	g := &Gadget{Name: "sprocket"}
	require.NoError(t, sess.Insert(g))
	entry := sess.Entries()[0]

	before, err := builder.Materialize(entry)
	require.NoError(t, err)
	assert.Zero(t, before.Object.(Gadget).ID)

	require.NoError(t, sess.Commit(context.Background()))

	after, err := builder.Materialize(entry)
	require.NoError(t, err)
	assert.Equal(t, g.ID, after.Object.(Gadget).ID)
}
