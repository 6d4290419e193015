package server

import (
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/types"
)

// ClientEvent is the tagged union of intents a connection may send. Exactly
// one field is set per event.
type ClientEvent struct {
	JoinRoom      *JoinRoom      `json:"joinRoom,omitempty"`
	SendMessage   *SendMessage   `json:"sendMessage,omitempty"`
	DeleteMessage *DeleteMessage `json:"deleteMessage,omitempty"`

	client *Client
}

type JoinRoom struct {
	RoomId string `json:"roomId"`
}

type SendMessage struct {
	RoomId  string            `json:"roomId"`
	Content string            `json:"content"`
	Type    types.MessageType `json:"type"`
	Sender  string            `json:"sender"`
	Time    string            `json:"time"`
}

type DeleteMessage struct {
	MessageId string `json:"messageId"`
}

// ServerEvent is the tagged union of events emitted to clients. Message and
// MessageDeleted are broadcast to every member of a room; MessageError only
// ever goes to the originating connection.
type ServerEvent struct {
	Message        *types.Message  `json:"message,omitempty"`
	MessageDeleted *MessageDeleted `json:"messageDeleted,omitempty"`
	MessageError   *MessageError   `json:"messageError,omitempty"`
}

type MessageDeleted struct {
	Id string `json:"_id"`
}

type MessageError struct {
	Error string `json:"error"`
}

func errContentTooLarge() *ServerEvent {
	return &ServerEvent{MessageError: &MessageError{Error: "Message content too large"}}
}

func errSaveFailed() *ServerEvent {
	return &ServerEvent{MessageError: &MessageError{Error: "Failed to save message to database"}}
}

func errMessageIdRequired() *ServerEvent {
	return &ServerEvent{MessageError: &MessageError{Error: "Message ID is required"}}
}

func errMessageNotFound() *ServerEvent {
	return &ServerEvent{MessageError: &MessageError{Error: "Message not found"}}
}

func errDeleteFailed() *ServerEvent {
	return &ServerEvent{MessageError: &MessageError{Error: "Failed to delete message"}}
}

func errInvalidEvent() *ServerEvent {
	return &ServerEvent{MessageError: &MessageError{Error: "Invalid message format"}}
}
