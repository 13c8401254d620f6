package hub

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/model"
)

// Conn is the transport side of one client connection.
type Conn interface {
	ID() string
	// Send queues msg without blocking. It returns false if the
	// connection is closed or its queue is full.
	Send(msg Message) bool
	Close()
}

type client struct {
	conn    Conn
	session model.Session
	rooms   map[string]struct{}
}

// Registry tracks connected clients, their sessions and room membership,
// and fans messages out to them.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Add(conn Conn, session model.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[conn.ID()] = &client{
		conn:    conn,
		session: session,
		rooms:   make(map[string]struct{}),
	}
}

// Remove drops the client and its room memberships.
func (r *Registry) Remove(id string) (model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return model.Session{}, false
	}
	for room := range c.rooms {
		r.leaveLocked(id, room)
	}
	delete(r.clients, id)
	return c.session, true
}

func (r *Registry) Session(id string) (model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return model.Session{}, false
	}
	return c.session, true
}

// UpdateSession applies fn to the session under the registry lock and
// returns the updated copy.
func (r *Registry) UpdateSession(id string, fn func(s *model.Session)) (model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return model.Session{}, false
	}
	fn(&c.session)
	return c.session, true
}

func (r *Registry) Join(id, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return false
	}
	c.rooms[room] = struct{}{}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[id] = struct{}{}
	return true
}

func (r *Registry) Leave(id, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(id, room)
}

func (r *Registry) leaveLocked(id, room string) {
	if c, ok := r.clients[id]; ok {
		delete(c.rooms, room)
	}
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

func (r *Registry) InRoom(id, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][id]
	return ok
}

func (r *Registry) Send(id, eventType string, data any) bool {
	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return deliver(c.conn, Message{Type: eventType, Data: data})
}

// Broadcast sends to every connected client.
func (r *Registry) Broadcast(eventType string, data any) {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.clients))
	for _, c := range r.clients {
		targets = append(targets, c.conn)
	}
	r.mu.RUnlock()

	msg := Message{Type: eventType, Data: data}
	for _, conn := range targets {
		deliver(conn, msg)
	}
}

func (r *Registry) BroadcastRoom(room, eventType string, data any) {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		if c, ok := r.clients[id]; ok {
			targets = append(targets, c.conn)
		}
	}
	r.mu.RUnlock()

	msg := Message{Type: eventType, Data: data}
	for _, conn := range targets {
		deliver(conn, msg)
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) RoomSize(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Snapshot lists sessions ordered by connect time.
func (r *Registry) Snapshot() []model.SessionInfo {
	r.mu.RLock()
	out := make([]model.SessionInfo, 0, len(r.clients))
	for _, c := range r.clients {
		rooms := make([]string, 0, len(c.rooms))
		for room := range c.rooms {
			rooms = append(rooms, room)
		}
		sort.Strings(rooms)
		out = append(out, model.SessionInfo{Session: c.session, Rooms: rooms})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// CloseAll closes every connection. Clients are removed by their own
// disconnect path.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.clients))
	for _, c := range r.clients {
		targets = append(targets, c.conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		conn.Close()
	}
}

func deliver(conn Conn, msg Message) bool {
	if conn.Send(msg) {
		return true
	}
	log.Warn().Str("connectionId", conn.ID()).Str("type", msg.Type).Msg("outbound message dropped")
	return false
}
