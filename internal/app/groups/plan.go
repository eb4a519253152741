/*
Package groups computes the pub/sub subscription changes a room transition requires.

Plan is a pure function of the previous and target subscription states. Manager resolves those
states from the room catalog and the privilege collaborator and then defers to Plan.
*/
package groups

// ModeratorGroup is the audience of moderator-only messages. Moderator standing is not
// room-scoped, so a transition never removes it.
const ModeratorGroup = "mods"

// Action is the kind of subscription mutation.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Task is one subscription mutation for the fan-out collaborator to apply.
type Task struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
	Action  Action `json:"action"`
}

// State is the subscription-relevant part of where a user is.
// An empty RoomID means the user is in no room.
type State struct {
	UserID        string
	RoomID        string
	FeatureGroups []string
	Moderator     bool
}

// Groups returns the groups a user in this state subscribes to, setup groups first,
// then the room group, then the moderator group.
func (s State) Groups() []string {
	if s.RoomID == "" {
		return nil
	}

	out := make([]string, 0, len(s.FeatureGroups)+2)
	out = append(out, s.FeatureGroups...)
	out = append(out, s.RoomID)
	if s.Moderator {
		out = append(out, ModeratorGroup)
	}
	return out
}

// Plan returns the ordered tasks that move the user's subscriptions from prev to next.
//
// Removals come first and cover every previous room or feature group absent from the target.
// The adds follow in the order of next.Groups. A first connect (empty prev.RoomID) has no
// removals; an empty next.RoomID has no adds. No task appears twice.
func Plan(prev, next State) []Task {
	userID := next.UserID
	if userID == "" {
		userID = prev.UserID
	}

	target := make(map[string]struct{})
	for _, g := range next.Groups() {
		target[g] = struct{}{}
	}

	var tasks []Task
	emitted := make(map[Task]struct{})
	emit := func(groupID string, action Action) {
		t := Task{UserID: userID, GroupID: groupID, Action: action}
		if _, dup := emitted[t]; dup {
			return
		}
		emitted[t] = struct{}{}
		tasks = append(tasks, t)
	}

	for _, g := range prev.Groups() {
		if g == ModeratorGroup {
			continue
		}
		if _, keep := target[g]; !keep {
			emit(g, ActionRemove)
		}
	}

	for _, g := range next.Groups() {
		emit(g, ActionAdd)
	}

	return tasks
}
