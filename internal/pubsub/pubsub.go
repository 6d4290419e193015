// Package pubsub provides the broadcast fan-out backbone for room events.
// A single-instance deployment uses LocalBus; multi-instance deployments use
// RedisBus so every instance sees every room event regardless of which
// instance accepted it.
package pubsub

import (
	"context"
	"sync"
)

// Handler receives a serialized server event for a room.
type Handler func(roomId string, payload []byte)

type Broadcaster interface {
	// Publish delivers payload to every subscriber of roomId, on every
	// instance attached to the bus.
	Publish(ctx context.Context, roomId string, payload []byte) error
	// Subscribe registers the handler invoked for delivered events. Only one
	// handler is supported; a later call replaces the earlier one.
	Subscribe(h Handler)
	Close() error
}

// LocalBus delivers events synchronously within the process.
type LocalBus struct {
	mu      sync.RWMutex
	handler Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(_ context.Context, roomId string, payload []byte) error {
	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()

	if h != nil {
		h(roomId, payload)
	}
	return nil
}

func (b *LocalBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = nil
	return nil
}
