/*
Package fanout delivers outbound events to connected websocket clients.

This file defines the Client struct, representing one active WebSocket connection of a user.
It manages the connection lifecycle and the two message loops (readPump and writePump).
*/
package fanout

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client. Clients only send heartbeats.
	maxMessageSize = 1024

	// sendBuffer is the number of frames queued per client before it counts as slow.
	sendBuffer = 256

	// CloseCodeSessionReplaced is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the session was replaced by a new connection.
	CloseCodeSessionReplaced = 4001
)

// FrameHeartbeat is the type of the only inbound frame clients send.
const FrameHeartbeat = "heartbeat"

// frameEvent is the type of every outbound frame.
const frameEvent = "event"

// inboundFrame is a frame read from the client.
type inboundFrame struct {
	Type string `json:"type"`
}

// outboundFrame is an event.Message as it goes over the wire.
type outboundFrame struct {
	Type      string `json:"type"`
	Target    string `json:"target"`
	Arguments []any  `json:"arguments"`
}

// Client is one websocket connection of a user.
type Client struct {
	// id identifies this connection; a user may replace it with a new one.
	id string

	userID string

	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// send queues encoded frames for WritePump. Closed by the hub, under its lock.
	send chan []byte

	// stopped and closeFrame are written by the hub under its lock before send is closed.
	stopped    bool
	closeFrame []byte

	logger zerolog.Logger
}

func newClient(h *Hub, conn *websocket.Conn, userID string) *Client {
	id := uuid.NewString()

	return &Client{
		id:     id,
		userID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: h.logger.With().Str("user_id", userID).Str("conn_id", id).Logger(),
	}
}

// stop closes the send queue. WritePump then writes closeFrame and closes the connection.
// The caller holds the hub lock.
func (c *Client) stop(code int, reason string) {
	if c.stopped {
		return
	}
	c.stopped = true
	c.closeFrame = websocket.FormatCloseMessage(code, reason)
	close(c.send)
}

// readPump reads frames until the connection fails, then unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in ReadPump")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		c.processInbound(data)
	}
}

func (c *Client) processInbound(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		return
	}

	switch frame.Type {
	case FrameHeartbeat:
		c.hub.heartbeat(c.userID)
	default:
		c.logger.Warn().Str("frame_type", frame.Type).Msg("Client sent unsupported frame type")
	}
}

// writePump drains the send queue onto the connection and keeps it alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueued(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writeControl(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// writeQueued writes one queued frame, or the close frame once the queue is closed.
// It reports whether the loop should continue.
func (c *Client) writeQueued(frame []byte, ok bool) bool {
	if !ok {
		c.writeControl(websocket.CloseMessage, c.closeFrame)
		return false
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Info().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writeControl(messageType int, data []byte) bool {
	if err := c.conn.WriteControl(messageType, data, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing control frame")
		return false
	}
	return true
}
