/*
Package catalog holds the static room definitions of the space.

The catalog is loaded once at process start and never mutated afterwards; it is passed
explicitly to the components that need it. Room occupancy is not part of a Room, it lives in
the presence store.
*/
package catalog

// SpecialFeature tags a room with an optional behaviour. The set is closed; consumers test
// membership with Room.HasFeature and never switch on the room identity.
type SpecialFeature string

const (
	RainbowDoor   SpecialFeature = "RAINBOW_DOOR"
	DullDoor      SpecialFeature = "DULL_DOOR"
	FullRoomIndex SpecialFeature = "FULL_ROOM_INDEX"
)

var knownFeatures = map[SpecialFeature]struct{}{
	RainbowDoor:   {},
	DullDoor:      {},
	FullRoomIndex: {},
}

// featureGroups maps a feature to the pub/sub group its state updates are delivered on.
// Features without an entry have no audience of their own.
var featureGroups = map[SpecialFeature]string{
	RainbowDoor: "feature:rainbowDoor",
	DullDoor:    "feature:dullDoor",
}

// Room is an immutable room definition.
type Room struct {
	ID              string           `json:"id"`
	DisplayName     string           `json:"displayName"`
	Description     string           `json:"description"`
	SpecialFeatures []SpecialFeature `json:"specialFeatures,omitempty"`
	HasNoteWall     bool             `json:"hasNoteWall,omitempty"`
	NoMediaChat     bool             `json:"noMediaChat,omitempty"`
}

// HasFeature reports whether the room carries the given feature tag.
func (r Room) HasFeature(f SpecialFeature) bool {
	for _, have := range r.SpecialFeatures {
		if have == f {
			return true
		}
	}
	return false
}

// FeatureGroups returns the feature-derived groups a user in this room subscribes to,
// in the order the features are declared on the room.
func (r Room) FeatureGroups() []string {
	var groups []string
	seen := make(map[string]struct{})
	for _, f := range r.SpecialFeatures {
		g, ok := featureGroups[f]
		if !ok {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		groups = append(groups, g)
	}
	return groups
}
