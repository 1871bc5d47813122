/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"sync"
	"testing"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaylistUpdated)

	bus.Publish(EventPlaylistUpdated, Payload{"playlist_uuid": "p1"})

	payload := <-sub
	if payload["playlist_uuid"] != "p1" {
		t.Errorf("payload = %v", payload)
	}
}

func TestPublishSkipsOtherEventTypes(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaylistUpdated)

	bus.Publish(EventPlaylistDeleted, Payload{"playlist_uuid": "p1"})

	select {
	case payload := <-sub:
		t.Errorf("unexpected delivery: %v", payload)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaylistUpdated)
	bus.Unsubscribe(EventPlaylistUpdated, sub)

	if _, open := <-sub; open {
		t.Error("channel still open after unsubscribe")
	}

	// Publishing after unsubscribe must not reach the removed channel.
	bus.Publish(EventPlaylistUpdated, Payload{})
}

func TestPublishDuringUnsubscribe(t *testing.T) {
	// Publishes racing unsubscribes must never send on a closed
	// channel. Run under -race to catch regressions.
	bus := NewBus()

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				bus.Publish(EventMembershipChanged, Payload{"playlist_uuid": "p1"})
			}
		}
	}()

	for i := 0; i < 200; i++ {
		sub := bus.Subscribe(EventMembershipChanged)
		bus.Unsubscribe(EventMembershipChanged, sub)
	}

	close(done)
	wg.Wait()
}
