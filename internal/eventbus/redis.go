/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus to Redis pub/sub
// so playlist changes made on one node fan out to every other node a
// client may be connected to.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/friendsincode/skald_podcasts/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// channelPrefix namespaces the Redis pub/sub channels.
const channelPrefix = "skald:events:"

// originKey marks a locally republished remote event so the bridge
// does not forward it back to Redis.
const originKey = "origin_node"

// BridgedEvents are the event types mirrored across nodes. Cache
// invalidation stays node-local; each node rebuilds its own cache.
var BridgedEvents = []events.EventType{
	events.EventEpisodeUpdated,
	events.EventEpisodeDeleted,
	events.EventPodcastUpdated,
	events.EventFolderUpdated,
	events.EventPlaylistCreated,
	events.EventPlaylistUpdated,
	events.EventPlaylistDeleted,
	events.EventMembershipChanged,
	events.EventSyncRequired,
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Connection pooling
	PoolSize     int
	MinIdleConns int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures   int
	CheckInterval time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		PoolSize:      10,
		MinIdleConns:  2,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
		CheckInterval: 30 * time.Second,
	}
}

// RedisBus mirrors local bus traffic through Redis. When Redis is
// unreachable the bridge degrades to a no-op and the local bus keeps
// working on its own (circuit breaker pattern).
type RedisBus struct {
	client *redis.Client
	local  *events.Bus
	logger zerolog.Logger
	nodeID string

	mu       sync.RWMutex
	channels map[events.EventType]*redis.PubSub
	taps     map[events.EventType]events.Subscriber

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Circuit breaker state
	degraded  bool
	failCount int
	maxFails  int
	lastCheck time.Time
}

// NewRedisBus creates the bridge around an existing local bus. A
// failed connection is not fatal; the bridge starts degraded.
func NewRedisBus(cfg RedisConfig, local *events.Bus, nodeID string, logger zerolog.Logger) (*RedisBus, error) {
	ctx, cancel := context.WithCancel(context.Background())

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	rb := &RedisBus{
		client:   client,
		local:    local,
		logger:   logger.With().Str("component", "eventbus").Logger(),
		nodeID:   nodeID,
		maxFails: cfg.MaxFailures,
		channels: make(map[events.EventType]*redis.PubSub),
		taps:     make(map[events.EventType]events.Subscriber),
		ctx:      ctx,
		cancel:   cancel,
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis connection failed, event bridge degraded to local-only")
		rb.degraded = true
		return rb, nil
	}

	logger.Info().Str("addr", cfg.Addr).Str("node_id", nodeID).Msg("Redis event bridge initialized")
	return rb, nil
}

// Start wires both directions of the bridge for every bridged event
// type: local publishes flow out to Redis, remote messages flow back
// into the local bus.
func (rb *RedisBus) Start() {
	for _, eventType := range BridgedEvents {
		rb.bridge(eventType)
	}
}

func (rb *RedisBus) bridge(eventType events.EventType) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if _, exists := rb.taps[eventType]; exists {
		return
	}

	tap := rb.local.Subscribe(eventType)
	rb.taps[eventType] = tap

	rb.wg.Add(1)
	go rb.forwardLocal(eventType, tap)

	if rb.degraded {
		return
	}

	pubsub := rb.client.Subscribe(rb.ctx, channelPrefix+string(eventType))
	rb.channels[eventType] = pubsub

	rb.wg.Add(1)
	go rb.receiveRemote(eventType, pubsub)
}

// forwardLocal ships locally published events to Redis. Events the
// bridge itself injected from a remote node carry originKey and are
// skipped to break the loop.
func (rb *RedisBus) forwardLocal(eventType events.EventType, tap events.Subscriber) {
	defer rb.wg.Done()

	for {
		select {
		case <-rb.ctx.Done():
			return
		case payload, ok := <-tap:
			if !ok {
				return
			}
			if origin, _ := payload[originKey].(string); origin != "" && origin != rb.nodeID {
				continue
			}
			rb.publishRemote(eventType, payload)
		}
	}
}

func (rb *RedisBus) publishRemote(eventType events.EventType, payload events.Payload) {
	rb.mu.RLock()
	degraded := rb.degraded
	rb.mu.RUnlock()
	if degraded {
		return
	}

	data, err := marshalMessage(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Msg("failed to marshal Redis message")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()

	if err := rb.client.Publish(ctx, channelPrefix+string(eventType), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to Redis")
		rb.handleFailure()
		return
	}

	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()

	rb.logger.Debug().
		Str("event_type", string(eventType)).
		Str("node_id", rb.nodeID).
		Msg("published event to Redis")
}

// receiveRemote handles incoming Redis pub/sub messages and republishes
// them on the local bus.
func (rb *RedisBus) receiveRemote(eventType events.EventType, pubsub *redis.PubSub) {
	defer rb.wg.Done()

	ch := pubsub.Channel()

	rb.logger.Debug().Str("event_type", string(eventType)).Msg("started Redis message receiver")

	for {
		select {
		case <-rb.ctx.Done():
			rb.logger.Debug().Str("event_type", string(eventType)).Msg("stopping Redis message receiver")
			return

		case msg, ok := <-ch:
			if !ok {
				rb.logger.Warn().Str("event_type", string(eventType)).Msg("Redis channel closed")
				rb.handleFailure()
				return
			}

			redisMsg, err := unmarshalMessage([]byte(msg.Payload))
			if err != nil {
				rb.logger.Error().Err(err).Msg("failed to unmarshal Redis message")
				continue
			}

			// Skip messages from ourselves (prevent echo)
			if redisMsg.NodeID == rb.nodeID {
				continue
			}

			payload := redisMsg.Payload
			if payload == nil {
				payload = events.Payload{}
			}
			payload[originKey] = redisMsg.NodeID
			rb.local.Publish(eventType, payload)

			rb.logger.Debug().
				Str("event_type", string(eventType)).
				Str("source_node", redisMsg.NodeID).
				Msg("delivered Redis event to local bus")
		}
	}
}

// Close tears down the bridge and the Redis connection.
func (rb *RedisBus) Close() error {
	rb.logger.Info().Msg("closing Redis event bridge")

	if rb.cancel != nil {
		rb.cancel()
	}

	rb.mu.Lock()
	for eventType, tap := range rb.taps {
		rb.local.Unsubscribe(eventType, tap)
	}
	rb.taps = make(map[events.EventType]events.Subscriber)
	channels := rb.channels
	rb.channels = make(map[events.EventType]*redis.PubSub)
	rb.mu.Unlock()

	for eventType, pubsub := range channels {
		pubsub.Close()
		rb.logger.Debug().Str("event_type", string(eventType)).Msg("closed Redis pub/sub")
	}

	rb.wg.Wait()

	if rb.client != nil {
		if err := rb.client.Close(); err != nil {
			rb.logger.Error().Err(err).Msg("failed to close Redis client")
			return err
		}
	}

	rb.logger.Info().Msg("Redis event bridge closed")
	return nil
}

// handleFailure implements circuit breaker logic.
func (rb *RedisBus) handleFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.failCount++

	if rb.failCount >= rb.maxFails && !rb.degraded {
		rb.logger.Warn().
			Int("fail_count", rb.failCount).
			Msg("Redis failure threshold reached, degrading to local-only events")

		rb.degraded = true
		rb.lastCheck = time.Now()
	}
}

// tryReconnect attempts to re-enable the bridge (called periodically).
func (rb *RedisBus) tryReconnect() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if !rb.degraded {
		return nil
	}

	if time.Since(rb.lastCheck) < 30*time.Second {
		return fmt.Errorf("too soon to retry")
	}

	rb.lastCheck = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rb.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis still unavailable: %w", err)
	}

	rb.degraded = false
	rb.failCount = 0

	rb.logger.Info().Msg("reconnected to Redis, event bridge re-enabled")
	return nil
}

// Degraded reports whether the bridge is running local-only.
func (rb *RedisBus) Degraded() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.degraded
}

// redisMessage represents a message published to Redis.
type redisMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"` // For identifying source node
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := redisMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    nodeID,
	}
	return json.Marshal(msg)
}

func unmarshalMessage(data []byte) (*redisMessage, error) {
	var msg redisMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal redis message: %w", err)
	}
	return &msg, nil
}
