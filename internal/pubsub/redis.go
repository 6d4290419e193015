package pubsub

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "chat.room."

func channelForRoom(roomId string) string {
	return channelPrefix + roomId
}

func roomFromChannel(channel string) string {
	return strings.TrimPrefix(channel, channelPrefix)
}

// RedisBus fans room events out through Redis pub/sub. Every instance
// publishes to a per-room channel and pattern-subscribes to all room
// channels, so delivery includes the publishing instance itself.
type RedisBus struct {
	client  *redis.Client
	log     *log.Logger
	mu      sync.RWMutex
	handler Handler
	sub     *redis.PubSub
	done    chan struct{}
}

func NewRedisBus(ctx context.Context, logger *log.Logger, addr string) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	b := &RedisBus{
		client: client,
		log:    logger,
		done:   make(chan struct{}),
	}

	b.sub = client.PSubscribe(ctx, channelPrefix+"*")
	go b.receive()

	return b, nil
}

func (b *RedisBus) receive() {
	defer close(b.done)

	for msg := range b.sub.Channel() {
		b.mu.RLock()
		h := b.handler
		b.mu.RUnlock()

		if h == nil {
			continue
		}

		h(roomFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func (b *RedisBus) Publish(ctx context.Context, roomId string, payload []byte) error {
	if err := b.client.Publish(ctx, channelForRoom(roomId), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

func (b *RedisBus) Close() error {
	if err := b.sub.Close(); err != nil {
		b.log.Println("close subscription:", err)
	}
	<-b.done

	return b.client.Close()
}
