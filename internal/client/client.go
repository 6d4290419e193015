package client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/server"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/types"
)

type opKind int

const (
	opSend opKind = iota
	opDelete
)

// op is an intent awaiting a server response. The server processes each
// connection's intents in order, so responses resolve ops front to back.
type op struct {
	kind opKind
	// id is the placeholder id for sends, the target message id for deletes.
	id      string
	sender  string
	content string
}

// ChatClient is a room-chat connection. It writes intents to the gateway,
// folds the server's event stream into a Timeline, and rolls back optimistic
// state when the server rejects an intent.
type ChatClient struct {
	conn     *websocket.Conn
	log      *log.Logger
	sender   string
	timeline *Timeline

	writeLock sync.Mutex

	opLock   sync.Mutex
	inflight []op
}

// Dial connects to the gateway's websocket endpoint. header carries the
// session cookie.
func Dial(ctx context.Context, url, sender string, header http.Header, logger *log.Logger) (*ChatClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return NewChatClient(conn, sender, logger), nil
}

// NewChatClient wraps an established connection. sender is the username
// stamped on outgoing messages and used to recognize our own broadcasts.
func NewChatClient(conn *websocket.Conn, sender string, logger *log.Logger) *ChatClient {
	return &ChatClient{
		conn:     conn,
		log:      logger,
		sender:   sender,
		timeline: NewTimeline(),
	}
}

// Timeline returns the client's message timeline.
func (c *ChatClient) Timeline() *Timeline {
	return c.timeline
}

func (c *ChatClient) writeEvent(event *server.ClientEvent) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	return c.conn.WriteJSON(event)
}

// Join subscribes the connection to a room's broadcasts.
func (c *ChatClient) Join(roomId string) error {
	return c.writeEvent(&server.ClientEvent{
		JoinRoom: &server.JoinRoom{RoomId: roomId},
	})
}

// Send appends an optimistic placeholder for the message and submits it to
// the gateway. The returned entry carries the placeholder id; it is replaced
// in place once the server's broadcast comes back.
func (c *ChatClient) Send(roomId, content string, msgType types.MessageType, displayTime string) (Entry, error) {
	entry := c.timeline.AppendPlaceholder(types.Message{
		Id:      NewTempId(),
		RoomId:  roomId,
		Sender:  c.sender,
		Content: content,
		Type:    msgType,
		Time:    displayTime,
	})

	c.pushOp(op{kind: opSend, id: entry.Message.Id, sender: c.sender, content: content})

	err := c.writeEvent(&server.ClientEvent{
		SendMessage: &server.SendMessage{
			RoomId:  roomId,
			Content: content,
			Type:    msgType,
			Sender:  c.sender,
			Time:    displayTime,
		},
	})
	if err != nil {
		c.dropOp(opSend, entry.Message.Id)
		c.timeline.Fail(entry.Message.Id)
		return entry, err
	}

	return entry, nil
}

// Delete hides the message locally and asks the gateway to remove it. The
// entry is restored if the server reports a failure.
func (c *ChatClient) Delete(messageId string) error {
	c.timeline.RemoveOptimistic(messageId)
	c.pushOp(op{kind: opDelete, id: messageId})

	err := c.writeEvent(&server.ClientEvent{
		DeleteMessage: &server.DeleteMessage{MessageId: messageId},
	})
	if err != nil {
		c.dropOp(opDelete, messageId)
		c.timeline.Restore(messageId)
		return err
	}

	return nil
}

// Run reads server events until the connection closes. It must run on its
// own goroutine; all timeline mutation from the server side happens here.
func (c *ChatClient) Run() error {
	defer c.conn.Close()

	for {
		var event server.ServerEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return fmt.Errorf("read event: %w", err)
			}
			return nil
		}

		c.handleEvent(&event)
	}
}

func (c *ChatClient) handleEvent(event *server.ServerEvent) {
	switch {
	case event.Message != nil:
		c.handleMessage(event.Message)
	case event.MessageDeleted != nil:
		c.handleDeleted(event.MessageDeleted.Id)
	case event.MessageError != nil:
		c.handleError(event.MessageError.Error)
	default:
		c.log.Println("dropping unrecognized server event")
	}
}

func (c *ChatClient) handleMessage(msg *types.Message) {
	c.timeline.ApplyMessage(*msg)

	// our own broadcast resolves the oldest matching send
	if msg.Sender == c.sender {
		c.resolveSend(msg.Sender, msg.Content)
	}
}

func (c *ChatClient) handleDeleted(messageId string) {
	c.timeline.ApplyDeleted(messageId)
	c.dropOp(opDelete, messageId)
}

// errorOpKind classifies an error reason by the intent that can produce it.
func errorOpKind(reason string) (opKind, bool) {
	switch reason {
	case "Message content too large", "Failed to save message to database":
		return opSend, true
	case "Message ID is required", "Message not found", "Failed to delete message":
		return opDelete, true
	}
	return 0, false
}

// handleError rolls back the intent the error refers to. Errors do not name
// their intent, so the reason narrows the candidates to one op kind and the
// oldest unresolved op of that kind absorbs it. Broadcasts can lag errors on
// the redis bus, so identical concurrent sends may still be misattributed
// within a kind.
func (c *ChatClient) handleError(reason string) {
	failed, ok := c.popOpFor(reason)
	if !ok {
		c.log.Println("server error with no matching intent in flight:", reason)
		return
	}

	switch failed.kind {
	case opSend:
		c.log.Printf("send rejected (%s): %s", failed.id, reason)
		c.timeline.Fail(failed.id)
	case opDelete:
		c.log.Printf("delete rejected (%s): %s", failed.id, reason)
		if reason == "Message not found" {
			// already gone on the server; finish the removal locally
			c.timeline.ApplyDeleted(failed.id)
			return
		}
		c.timeline.Restore(failed.id)
	}
}

func (c *ChatClient) pushOp(o op) {
	c.opLock.Lock()
	defer c.opLock.Unlock()
	c.inflight = append(c.inflight, o)
}

// popOpFor removes and returns the oldest in-flight op the error reason can
// refer to. Reasons of unknown class fall back to the oldest op of any kind.
func (c *ChatClient) popOpFor(reason string) (op, bool) {
	c.opLock.Lock()
	defer c.opLock.Unlock()

	if len(c.inflight) == 0 {
		return op{}, false
	}

	kind, classified := errorOpKind(reason)
	if classified {
		for i, o := range c.inflight {
			if o.kind == kind {
				c.inflight = append(c.inflight[:i], c.inflight[i+1:]...)
				return o, true
			}
		}
		return op{}, false
	}

	o := c.inflight[0]
	c.inflight = c.inflight[1:]
	return o, true
}

// dropOp removes the oldest in-flight op matching kind and id.
func (c *ChatClient) dropOp(kind opKind, id string) {
	c.opLock.Lock()
	defer c.opLock.Unlock()

	for i, o := range c.inflight {
		if o.kind == kind && o.id == id {
			c.inflight = append(c.inflight[:i], c.inflight[i+1:]...)
			return
		}
	}
}

// resolveSend removes the oldest in-flight send matching sender and content.
func (c *ChatClient) resolveSend(sender, content string) {
	c.opLock.Lock()
	defer c.opLock.Unlock()

	for i, o := range c.inflight {
		if o.kind == opSend && o.sender == sender && o.content == content {
			c.inflight = append(c.inflight[:i], c.inflight[i+1:]...)
			return
		}
	}
}

// Close sends a close frame and tears down the connection.
func (c *ChatClient) Close() error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		c.conn.Close()
		return err
	}

	return c.conn.Close()
}
