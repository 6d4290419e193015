package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/database"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/pubsub"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/stats"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/types"
)

const (
	metricActiveConnections = "ActiveConnections"
	metricActiveRooms       = "ActiveRooms"
	metricMessagesSent      = "MessagesSent"
	metricMessagesDeleted   = "MessagesDeleted"
)

// ChatServer routes client intents (join, send, delete) between connections,
// the message store and the fan-out bus. Events for one connection are
// processed to completion in its read pump; connections interleave only at
// store calls. Room events always pass through the bus, so the REST delete
// path and remote instances broadcast the same way the gateway does.
type ChatServer struct {
	log         *log.Logger
	db          database.ChatRepository
	bus         pubsub.Broadcaster
	stats       stats.StatsProvider
	clientsLock sync.Mutex
	clients     map[*Client]struct{}
	roomsLock   sync.RWMutex
	rooms       map[string]*Room
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, bus pubsub.Broadcaster, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:     logger,
		db:      db,
		bus:     bus,
		stats:   su,
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]*Room),
	}

	su.RegisterMetric(metricActiveConnections)
	su.RegisterMetric(metricActiveRooms)
	su.RegisterMetric(metricMessagesSent)
	su.RegisterMetric(metricMessagesDeleted)

	bus.Subscribe(cs.deliver)

	return cs, nil
}

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	cs.clients[c] = struct{}{}
	cs.stats.Incr(metricActiveConnections)
	cs.log.Printf("adding connection from %q", c.user.Username)
}

// DeregisterClient removes the connection from the client set and from every
// room it joined. Empty rooms are dropped from the registry.
func (cs *ChatServer) DeregisterClient(c *Client) {
	cs.clientsLock.Lock()
	if _, ok := cs.clients[c]; !ok {
		cs.clientsLock.Unlock()
		return
	}
	delete(cs.clients, c)
	cs.clientsLock.Unlock()

	cs.stats.Decr(metricActiveConnections)
	cs.log.Printf("removing connection from %q", c.user.Username)

	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()
	for id, room := range cs.rooms {
		room.removeClient(c)
		if room.empty() {
			delete(cs.rooms, id)
			cs.stats.Decr(metricActiveRooms)
		}
	}
}

// join adds the connection to the registry entry for roomId, creating the
// entry if needed. Room existence is deliberately not validated here.
func (cs *ChatServer) join(c *Client, roomId string) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()

	room, ok := cs.rooms[roomId]
	if !ok {
		room = newRoom(roomId)
		cs.rooms[roomId] = room
		cs.stats.Incr(metricActiveRooms)
		cs.log.Printf("created room registry entry %q", roomId)
	}

	room.addClient(c)
	cs.log.Printf("user %q joined room %q", c.user.Username, roomId)
}

func (cs *ChatServer) getRoom(roomId string) *Room {
	cs.roomsLock.RLock()
	defer cs.roomsLock.RUnlock()

	return cs.rooms[roomId]
}

// deliver is the bus handler: it fans a room event out to the local members
// of that room. Unknown rooms have no local members and are skipped.
func (cs *ChatServer) deliver(roomId string, payload []byte) {
	room := cs.getRoom(roomId)
	if room == nil {
		return
	}

	var ev ServerEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		cs.log.Println("decode room event:", err)
		return
	}

	room.deliver(&ev)
}

func (cs *ChatServer) publish(ctx context.Context, roomId string, ev *ServerEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return cs.bus.Publish(ctx, roomId, payload)
}

// handleSend persists the message and, only on success, broadcasts the
// confirmed message (carrying its server-assigned id) to every member of the
// room including the sender. Failures are reported to the sender alone.
func (cs *ChatServer) handleSend(c *Client, send *SendMessage) {
	if len(send.Content) > database.MaxContentLength {
		c.queueEvent(errContentTooLarge())
		return
	}

	msgType := send.Type
	if msgType == "" {
		msgType = types.MessageTypeText
	}

	saved, err := cs.db.CreateMessage(database.CreateMessageParams{
		RoomId:  send.RoomId,
		Sender:  send.Sender,
		Content: send.Content,
		Type:    string(msgType),
		Time:    send.Time,
	})
	if err != nil {
		cs.log.Println("save message:", err)
		c.queueEvent(errSaveFailed())
		return
	}

	ev := &ServerEvent{Message: &types.Message{
		Id:        saved.Id,
		Seq:       saved.Seq,
		RoomId:    saved.RoomId,
		Sender:    saved.Sender,
		Content:   saved.Content,
		Type:      types.MessageType(saved.Type),
		Time:      saved.Time,
		CreatedAt: saved.CreatedAt,
		UpdatedAt: saved.UpdatedAt,
	}}

	if err := cs.publish(context.Background(), saved.RoomId, ev); err != nil {
		cs.log.Println("broadcast message:", err)
		return
	}

	cs.stats.Incr(metricMessagesSent)
}

// handleDelete removes the message from the store and broadcasts the
// deletion to all members of the message's room. A missing or unknown id is
// reported to the requester alone.
func (cs *ChatServer) handleDelete(c *Client, del *DeleteMessage) {
	if del.MessageId == "" {
		c.queueEvent(errMessageIdRequired())
		return
	}

	msg, err := cs.db.GetMessageById(del.MessageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.queueEvent(errMessageNotFound())
		} else {
			cs.log.Println("lookup message:", err)
			c.queueEvent(errDeleteFailed())
		}
		return
	}

	if err := cs.db.DeleteMessage(del.MessageId); err != nil {
		// a concurrent delete wins the race at the store
		if errors.Is(err, sql.ErrNoRows) {
			c.queueEvent(errMessageNotFound())
		} else {
			cs.log.Println("delete message:", err)
			c.queueEvent(errDeleteFailed())
		}
		return
	}

	ev := &ServerEvent{MessageDeleted: &MessageDeleted{Id: del.MessageId}}
	if err := cs.publish(context.Background(), msg.RoomId, ev); err != nil {
		cs.log.Println("broadcast deletion:", err)
		return
	}

	cs.stats.Incr(metricMessagesDeleted)
}

// BroadcastMessageDeleted publishes a deletion event on behalf of the REST
// delete path so both delete paths share one fan-out mechanism.
func (cs *ChatServer) BroadcastMessageDeleted(ctx context.Context, roomId, messageId string) error {
	return cs.publish(ctx, roomId, &ServerEvent{MessageDeleted: &MessageDeleted{Id: messageId}})
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("shutting down chat server")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clients = make(map[*Client]struct{})
	cs.clientsLock.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
