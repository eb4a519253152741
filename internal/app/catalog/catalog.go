package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// DefaultRoomID is the room users land in when they have no valid room on file.
const DefaultRoomID = "entryway"

// ErrRoomNotFound is returned when a room id is not part of the catalog.
var ErrRoomNotFound = errors.New("catalog: room not found")

//go:embed rooms.json
var embeddedRooms []byte

// Catalog is a read-only registry of rooms keyed by id. It is safe for concurrent use
// because nothing mutates it after construction.
type Catalog struct {
	rooms map[string]Room
	ids   []string
}

// New validates rooms and builds a Catalog.
// Ids must be unique and non-empty, feature tags must be known, and DefaultRoomID must exist.
func New(rooms []Room) (*Catalog, error) {
	c := &Catalog{rooms: make(map[string]Room, len(rooms))}

	for _, r := range rooms {
		if r.ID == "" {
			return nil, fmt.Errorf("catalog: room with display name %q has no id", r.DisplayName)
		}
		if _, dup := c.rooms[r.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate room id %q", r.ID)
		}
		for _, f := range r.SpecialFeatures {
			if _, ok := knownFeatures[f]; !ok {
				return nil, fmt.Errorf("catalog: room %q has unknown feature %q", r.ID, f)
			}
		}
		r.SpecialFeatures = append([]SpecialFeature(nil), r.SpecialFeatures...)
		c.rooms[r.ID] = r
		c.ids = append(c.ids, r.ID)
	}

	if _, ok := c.rooms[DefaultRoomID]; !ok {
		return nil, fmt.Errorf("catalog: default room %q is missing", DefaultRoomID)
	}

	sort.Strings(c.ids)
	return c, nil
}

// Parse decodes a JSON object of roomId -> Room. A room's id defaults to its key.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]Room

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("catalog: decode rooms: %w", err)
	}

	rooms := make([]Room, 0, len(raw))
	for key, r := range raw {
		if r.ID == "" {
			r.ID = key
		}
		if r.ID != key {
			return nil, fmt.Errorf("catalog: room key %q does not match id %q", key, r.ID)
		}
		rooms = append(rooms, r)
	}

	return New(rooms)
}

// Embedded returns the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	return Parse(embeddedRooms)
}

// Lookup returns the room with the given id.
func (c *Catalog) Lookup(roomID string) (Room, bool) {
	r, ok := c.rooms[roomID]
	return r, ok
}

// Get is Lookup returning ErrRoomNotFound for unknown ids.
func (c *Catalog) Get(roomID string) (Room, error) {
	r, ok := c.rooms[roomID]
	if !ok {
		return Room{}, fmt.Errorf("%w: %q", ErrRoomNotFound, roomID)
	}
	return r, nil
}

// Has reports whether roomID is part of the catalog.
func (c *Catalog) Has(roomID string) bool {
	_, ok := c.rooms[roomID]
	return ok
}

// IDs returns all room ids in ascending order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// All returns a copy of the full catalog keyed by room id.
func (c *Catalog) All() map[string]Room {
	out := make(map[string]Room, len(c.rooms))
	for id, r := range c.rooms {
		out[id] = r
	}
	return out
}

// Resolve returns recorded when it names a catalog room, otherwise DefaultRoomID.
//
// Existence in the static catalog is the only validity check. Programmatically created rooms
// would be sent to the entryway by this rule; keep it as is until that feature exists.
func (c *Catalog) Resolve(recorded string) (roomID string, fellBack bool) {
	if recorded != "" && c.Has(recorded) {
		return recorded, false
	}
	return DefaultRoomID, true
}
