// Package events publishes room lifecycle records onto a Redis list so that
// offline consumers (dashboards, log shippers) can follow the directory
// without connecting to the master. Publishing is best-effort and never
// blocks room bookkeeping on Redis health.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list room events are pushed onto.
const DefaultQueueName = "lobbykit_room_events"

// Room lifecycle event kinds.
const (
	RoomRegistered   = "registered"
	RoomUnregistered = "unregistered"
	RoomStateUpdated = "state"
)

// RoomEventRecord is the serialized form of one room lifecycle event.
type RoomEventRecord struct {
	Event      string `json:"event"`
	RoomID     int    `json:"room_id"`
	Name       string `json:"name,omitempty"`
	NumPlayers int    `json:"num_players"`
	MaxPlayers int    `json:"max_players,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// Publisher pushes room events to Redis. A nil Publisher is valid and drops
// every event, so callers never need to branch on whether Redis is
// configured.
type Publisher struct {
	rdb    *redis.Client
	queue  string
	logger *logrus.Logger
}

// NewPublisher connects to Redis at addr. An empty addr disables publishing.
func NewPublisher(ctx context.Context, addr, queue string, db int, logger *logrus.Logger) (*Publisher, error) {
	if addr == "" {
		return nil, nil
	}
	if queue == "" {
		queue = DefaultQueueName
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Publisher{rdb: rdb, queue: queue, logger: logger}, nil
}

// Publish appends one record to the event list. Errors are logged, not
// propagated: the directory must keep working when Redis is down.
func (p *Publisher) Publish(ctx context.Context, record RoomEventRecord) {
	if p == nil {
		return
	}
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().Unix()
	}

	data, err := json.Marshal(record)
	if err != nil {
		p.logger.Warnf("failed to marshal room event: %v", err)
		return
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		p.logger.Warnf("failed to push room event to %q: %v", p.queue, err)
	}
}

// Close releases the Redis client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
