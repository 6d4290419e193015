package server

import (
	"sync"
)

// Room is a process-local channel registry entry: the set of connections
// currently subscribed to a room id. Membership is rebuilt from scratch on
// restart; reconnecting clients must join again.
type Room struct {
	id         string
	clients    map[*Client]struct{}
	clientLock sync.RWMutex
}

func newRoom(id string) *Room {
	return &Room{
		id:      id,
		clients: make(map[*Client]struct{}),
	}
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	delete(r.clients, c)
}

func (r *Room) hasClient(c *Client) bool {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	_, ok := r.clients[c]
	return ok
}

func (r *Room) empty() bool {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	return len(r.clients) == 0
}

// deliver queues the event on every member of the room, including the
// connection the event originated from.
func (r *Room) deliver(ev *ServerEvent) {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		client.queueEvent(ev)
	}
}
