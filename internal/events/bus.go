/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// Store change events drive the reactive playlist views.
	EventEpisodeUpdated    EventType = "store.episode_updated"
	EventEpisodeDeleted    EventType = "store.episode_deleted"
	EventPodcastUpdated    EventType = "store.podcast_updated"
	EventFolderUpdated     EventType = "store.folder_updated"
	EventPlaylistCreated   EventType = "store.playlist_created"
	EventPlaylistUpdated   EventType = "store.playlist_updated"
	EventPlaylistDeleted   EventType = "store.playlist_deleted"
	EventMembershipChanged EventType = "store.playlist_membership_changed"

	// Cache invalidation events.
	EventPreviewInvalidated EventType = "cache.preview_invalidated"

	// Sync bookkeeping events.
	EventSyncRequired EventType = "sync.required"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers drop the
// event rather than block the publisher.
//
// The read lock is held across the sends: Unsubscribe closes the
// channel under the write lock, so a send can never hit a closed
// channel. Sends are non-blocking, so the lock is held only briefly.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
