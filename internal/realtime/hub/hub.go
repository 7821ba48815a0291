// Package hub tracks live socket connections and their room memberships
// and routes events between them.
package hub

import (
	"sync"

	"github.com/smallbiznis/nextway/internal/realtime/event"
	"github.com/smallbiznis/nextway/internal/realtime/room"
	"go.uber.org/zap"
)

// Hub owns every live connection and the room membership table. Rooms
// exist only as the set of connections currently joined under a key.
type Hub struct {
	log *zap.Logger

	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]map[*Conn]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:   log.Named("realtime.hub"),
		conns: make(map[string]*Conn),
		rooms: make(map[string]map[*Conn]struct{}),
	}
}

// register adds a connection and auto-joins its personal room, so every
// actor is reachable by id without an explicit subscribe step.
func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.joinLocked(c, room.Personal(c.Actor, c.ActorID))
	h.mu.Unlock()

	h.log.Debug("connection registered",
		zap.String("connection_id", c.ID),
		zap.String("actor", string(c.Actor)),
		zap.String("actor_id", c.ActorID),
	)
}

// unregister releases every room membership and closes the connection.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.ID)
	for key, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	h.mu.Unlock()

	c.close()
	h.log.Debug("connection released", zap.String("connection_id", c.ID))
}

// Join subscribes a connection to a room. Joining twice is a no-op.
func (h *Hub) Join(c *Conn, key string) {
	if key == "" {
		return
	}
	h.mu.Lock()
	h.joinLocked(c, key)
	h.mu.Unlock()
}

func (h *Hub) joinLocked(c *Conn, key string) {
	members, ok := h.rooms[key]
	if !ok {
		members = make(map[*Conn]struct{})
		h.rooms[key] = members
	}
	members[c] = struct{}{}
}

// Leave removes a connection from a room. Leaving a room the connection
// never joined is a no-op.
func (h *Hub) Leave(c *Conn, key string) {
	h.mu.Lock()
	if members, ok := h.rooms[key]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends an envelope to every connection in a room. An empty
// room is silently a no-op; delivery is at-most-once.
func (h *Hub) Broadcast(key string, env event.Envelope) {
	h.mu.RLock()
	members := make([]*Conn, 0, len(h.rooms[key]))
	for c := range h.rooms[key] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.enqueue(env) {
			h.log.Warn("dropping frame for slow connection",
				zap.String("connection_id", c.ID),
				zap.String("room", key),
				zap.String("event", env.Event),
			)
		}
	}
}

// BroadcastAll sends an envelope to every live connection.
func (h *Hub) BroadcastAll(env event.Envelope) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if !c.enqueue(env) {
			h.log.Warn("dropping frame for slow connection",
				zap.String("connection_id", c.ID),
				zap.String("event", env.Event),
			)
		}
	}
}

// RoomSize reports how many connections are joined under a key.
func (h *Hub) RoomSize(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[key])
}

// ConnectionCount reports the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
