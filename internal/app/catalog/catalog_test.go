package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedded_Loads(t *testing.T) {
	c, err := Embedded()
	require.NoError(t, err)

	entry, ok := c.Lookup(DefaultRoomID)
	require.True(t, ok)
	assert.Equal(t, "Entryway", entry.DisplayName)
	assert.True(t, entry.HasFeature(FullRoomIndex))

	theater, ok := c.Lookup("theater")
	require.True(t, ok)
	assert.True(t, theater.NoMediaChat)

	assert.Len(t, c.All(), len(c.IDs()))
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing entryway", `{"foyer": {"displayName": "Foyer"}}`},
		{"unknown feature", `{"entryway": {"specialFeatures": ["TRAPDOOR"]}}`},
		{"id mismatch", `{"entryway": {"id": "foyer"}}`},
		{"unknown field", `{"entryway": {"capacity": 3}}`},
		{"not json", `[`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.json))
			assert.Error(t, err)
		})
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New([]Room{{ID: "entryway"}, {ID: "entryway"}})
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	c, err := New([]Room{{ID: "entryway"}})
	require.NoError(t, err)

	_, err = c.Get("nowhere")
	assert.True(t, errors.Is(err, ErrRoomNotFound))
}

func TestResolve(t *testing.T) {
	c, err := New([]Room{{ID: "entryway"}, {ID: "bar"}})
	require.NoError(t, err)

	id, fellBack := c.Resolve("bar")
	assert.Equal(t, "bar", id)
	assert.False(t, fellBack)

	id, fellBack = c.Resolve("")
	assert.Equal(t, DefaultRoomID, id)
	assert.True(t, fellBack)

	id, fellBack = c.Resolve("deleted-room")
	assert.Equal(t, DefaultRoomID, id)
	assert.True(t, fellBack)
}

func TestRoom_FeatureGroups(t *testing.T) {
	r := Room{ID: "x", SpecialFeatures: []SpecialFeature{FullRoomIndex, RainbowDoor, DullDoor, RainbowDoor}}

	assert.Equal(t, []string{"feature:rainbowDoor", "feature:dullDoor"}, r.FeatureGroups())
	assert.Empty(t, Room{ID: "y"}.FeatureGroups())
}

func TestAll_ReturnsCopy(t *testing.T) {
	c, err := New([]Room{{ID: "entryway"}})
	require.NoError(t, err)

	all := c.All()
	delete(all, "entryway")

	assert.True(t, c.Has("entryway"))
}
