package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub manages WebSocket connections and broadcasts messages to team members.
// Connections are keyed by member device id; teams group devices for
// targeted broadcasts.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection // member_id -> connection
	teams       map[uuid.UUID][]string // team_id -> []member_id
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		teams:       make(map[uuid.UUID][]string),
		logger:      logger,
	}
}

// RegisterConnection adds a connection for a member device.
func (h *Hub) RegisterConnection(memberID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if old, exists := h.connections[memberID]; exists {
		old.Close()
	}

	h.connections[memberID] = conn
	h.logger.Info().Str("member_id", memberID).Msg("connection registered")
}

// UnregisterConnection removes a connection.
func (h *Hub) UnregisterConnection(memberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[memberID]; exists {
		conn.Close()
		delete(h.connections, memberID)
		h.logger.Info().Str("member_id", memberID).Msg("connection unregistered")
	}

	// Remove from all teams
	for teamID, members := range h.teams {
		for i, id := range members {
			if id == memberID {
				h.teams[teamID] = append(members[:i], members[i+1:]...)
				break
			}
		}
	}
}

// JoinTeam associates a member device with a team for targeted broadcasts.
func (h *Hub) JoinTeam(teamID uuid.UUID, memberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.teams[teamID]
	for _, id := range members {
		if id == memberID {
			return // already joined
		}
	}
	h.teams[teamID] = append(members, memberID)
}

// LeaveTeam removes a member device from a team.
func (h *Hub) LeaveTeam(teamID uuid.UUID, memberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.teams[teamID]
	for i, id := range members {
		if id == memberID {
			h.teams[teamID] = append(members[:i], members[i+1:]...)
			break
		}
	}
}

// BroadcastToTeam sends a message to every connected device on a team.
func (h *Hub) BroadcastToTeam(teamID uuid.UUID, msg Message) error {
	h.mu.RLock()
	members := h.teams[teamID]
	h.mu.RUnlock()

	var errors []error
	for _, memberID := range members {
		if err := h.SendToMember(memberID, msg); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return errors[0] // return first error
	}
	return nil
}

// SendToMember delivers a message to a specific device.
func (h *Hub) SendToMember(memberID string, msg Message) error {
	h.mu.RLock()
	conn, exists := h.connections[memberID]
	h.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}

	return conn.Send(msg)
}

// GetConnection retrieves a connection for a member device.
func (h *Hub) GetConnection(memberID string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, exists := h.connections[memberID]
	return conn, exists
}

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump sends messages from the send queue.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump receives messages and calls the handler.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	// Set read deadline to 60 seconds, extend on pong
	readDeadline := time.Now().Add(60 * time.Second)
	c.conn.SetReadDeadline(readDeadline)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "Member connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
