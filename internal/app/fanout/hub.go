/*
Package fanout delivers outbound events to connected websocket clients.

The Hub keeps one Client per user and the subscription groups each user belongs to. Group
membership is keyed by user, not by connection: a replacement connection inherits the groups of
the one it replaces, and memberships are dropped when the user's last connection goes away.
*/
package fanout

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hmspace/internal/app/event"
	"hmspace/internal/app/groups"
	"hmspace/internal/pkg/logx"
)

// Callbacks connect the hub to the room lifecycle. Both run on the connection's read goroutine
// with no hub lock held, so they may dispatch back into the hub.
type Callbacks struct {
	// OnHeartbeat runs for every heartbeat frame.
	OnHeartbeat func(userID string)

	// OnDisconnect runs when the current connection of a user ends. It does not run for a
	// connection that was replaced.
	OnDisconnect func(userID string)
}

// Hub implements connect.Dispatcher over websocket connections.
type Hub struct {
	callbacks Callbacks

	// mu guards clients, members and every Client's stopped flag and send channel.
	mu      sync.RWMutex
	clients map[string]*Client
	members map[string]map[string]struct{}
	closed  bool

	// wg tracks the write pumps.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewHub returns an empty hub.
func NewHub(cb Callbacks) *Hub {
	return &Hub{
		callbacks: cb,
		clients:   make(map[string]*Client),
		members:   make(map[string]map[string]struct{}),
		logger:    logx.Component("fanout"),
	}
}

// Serve attaches conn as the connection of userID and blocks until it ends. An existing
// connection of the same user is closed with CloseCodeSessionReplaced.
func (h *Hub) Serve(conn *websocket.Conn, userID string) {
	c := newClient(h, conn, userID)

	if !h.register(c) {
		c.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()

	c.readPump()
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	if existing, ok := h.clients[c.userID]; ok {
		existing.logger.Warn().Msg("User already connected. Closing old connection for replacement.")
		existing.stop(CloseCodeSessionReplaced, "Session replaced by new connection. Check other tabs.")
	}

	h.clients[c.userID] = c
	c.logger.Info().Int("total_clients", len(h.clients)).Msg("Client connected.")
	return true
}

// unregister drops c if it is still the user's current connection and fires OnDisconnect.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()

	current, ok := h.clients[c.userID]
	if !ok || current != c {
		c.stop(websocket.CloseNormalClosure, "")
		h.mu.Unlock()
		c.logger.Debug().Msg("Ignoring unregister for replaced connection.")
		return
	}

	delete(h.clients, c.userID)
	c.stop(websocket.CloseNormalClosure, "")
	for groupID, set := range h.members {
		delete(set, c.userID)
		if len(set) == 0 {
			delete(h.members, groupID)
		}
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	c.logger.Info().Int("total_clients", remaining).Msg("Client disconnected.")

	if h.callbacks.OnDisconnect != nil {
		h.callbacks.OnDisconnect(c.userID)
	}
}

func (h *Hub) heartbeat(userID string) {
	if h.callbacks.OnHeartbeat != nil {
		h.callbacks.OnHeartbeat(userID)
	}
}

// Apply executes subscription tasks. Adding a present member or removing an absent one is a no-op.
func (h *Hub) Apply(tasks []groups.Task) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, t := range tasks {
		switch t.Action {
		case groups.ActionAdd:
			set, ok := h.members[t.GroupID]
			if !ok {
				set = make(map[string]struct{})
				h.members[t.GroupID] = set
			}
			set[t.UserID] = struct{}{}

		case groups.ActionRemove:
			set, ok := h.members[t.GroupID]
			if !ok {
				continue
			}
			delete(set, t.UserID)
			if len(set) == 0 {
				delete(h.members, t.GroupID)
			}

		default:
			h.logger.Warn().Str("action", string(t.Action)).Msg("Ignoring task with unknown action")
		}
	}
}

// Deliver sends each message to its group, or to every client for broadcasts, in order.
// Clients whose queue is full are disconnected.
func (h *Hub) Deliver(messages []event.Message) {
	var slow []*Client

	h.mu.RLock()
	for _, m := range messages {
		frame, err := json.Marshal(outboundFrame{Type: frameEvent, Target: m.Target, Arguments: m.Arguments})
		if err != nil {
			h.logger.Error().Err(err).Str("target", m.Target).Msg("Error marshaling message for delivery")
			continue
		}

		for _, c := range h.recipients(m) {
			if c.stopped {
				continue
			}
			select {
			case c.send <- frame:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	for _, c := range slow {
		if !c.stopped {
			c.logger.Warn().Msg("Client send queue full, closing connection.")
			c.stop(websocket.ClosePolicyViolation, "too slow")
		}
	}
	h.mu.Unlock()
}

// recipients returns the connected clients m is addressed to. The caller holds mu.
func (h *Hub) recipients(m event.Message) []*Client {
	if m.Broadcast() {
		out := make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			out = append(out, c)
		}
		return out
	}

	set := h.members[m.GroupID]
	out := make([]*Client, 0, len(set))
	for userID := range set {
		if c, ok := h.clients[userID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Connected reports whether userID has a live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.clients[userID]
	return ok
}

// Members returns the sorted user ids subscribed to groupID.
func (h *Hub) Members(groupID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.members[groupID]))
	for userID := range h.members[groupID] {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}

// Close stops every connection with CloseGoingAway, refuses new ones, and waits for the
// write pumps to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for _, c := range h.clients {
		c.stop(websocket.CloseGoingAway, "server shutting down")
	}
	h.mu.Unlock()

	h.wg.Wait()
	h.logger.Info().Msg("Hub closed.")
}
