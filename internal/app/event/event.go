/*
Package event defines the outbound messages the core hands to the fan-out collaborator.
*/
package event

// Message targets understood by clients.
const (
	TargetPlayerConnected = "playerConnected"
	TargetPlayerEntered   = "playerEntered"
	TargetPlayerLeft      = "playerLeft"
	TargetUsernameMap     = "usernameMap"
	TargetPresenceData    = "presenceData"
	TargetVideoPresence   = "videoPresence"
	TargetNoteAdded       = "noteAdded"
)

// Message is an outbound event. An empty GroupID broadcasts to every connected client.
type Message struct {
	GroupID   string `json:"groupId,omitempty"`
	Target    string `json:"target"`
	Arguments []any  `json:"arguments"`
}

// Broadcast reports whether the message is addressed to all connected clients.
func (m Message) Broadcast() bool {
	return m.GroupID == ""
}

// ToGroup builds a message for one subscription group.
func ToGroup(groupID, target string, args ...any) Message {
	return Message{GroupID: groupID, Target: target, Arguments: nonNil(args)}
}

// ToAll builds a broadcast message.
func ToAll(target string, args ...any) Message {
	return Message{Target: target, Arguments: nonNil(args)}
}

func nonNil(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}
