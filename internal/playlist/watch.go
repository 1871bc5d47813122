/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"errors"
	"reflect"

	"github.com/friendsincode/skald_podcasts/internal/events"
	"github.com/friendsincode/skald_podcasts/internal/telemetry"
)

// Event types that can change what a playlist view shows.
var viewEvents = []events.EventType{
	events.EventEpisodeUpdated,
	events.EventEpisodeDeleted,
	events.EventPodcastUpdated,
	events.EventFolderUpdated,
	events.EventPlaylistCreated,
	events.EventPlaylistUpdated,
	events.EventPlaylistDeleted,
	events.EventMembershipChanged,
}

// WatchPreviews emits the preview list whenever underlying data may
// have changed it. The current value is emitted immediately;
// consecutive equal values are suppressed. The channel closes when ctx
// is cancelled.
func (m *Manager) WatchPreviews(ctx context.Context, search string) <-chan []Preview {
	out := make(chan []Preview, 1)
	go watchLoop(ctx, m, out, func(ctx context.Context) ([]Preview, error) {
		return m.Previews(ctx, search)
	})
	return out
}

// WatchDetail emits a playlist's detail view on change. A deleted or
// unknown playlist emits nil, so consumers can dismiss the screen.
func (m *Manager) WatchDetail(ctx context.Context, playlistUUID, search string) <-chan *Detail {
	out := make(chan *Detail, 1)
	go watchLoop(ctx, m, out, func(ctx context.Context) (*Detail, error) {
		detail, err := m.Detail(ctx, playlistUUID, search)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &detail, nil
	})
	return out
}

// watchLoop drives one subscription: compute, emit if changed,
// recompute on every bus event until the context ends. Recomputes
// coalesce through a single-slot notify channel, so an event burst
// triggers one recomputation once the current one finishes.
func watchLoop[T any](ctx context.Context, m *Manager, out chan<- T, compute func(context.Context) (T, error)) {
	defer close(out)

	telemetry.WatcherActiveSubscriptions.Inc()
	defer telemetry.WatcherActiveSubscriptions.Dec()

	subs := make([]events.Subscriber, 0, len(viewEvents))
	notify := make(chan struct{}, 1)
	for _, eventType := range viewEvents {
		ch := m.bus.Subscribe(eventType)
		subs = append(subs, ch)
		go func(ch events.Subscriber) {
			for range ch {
				select {
				case notify <- struct{}{}:
				default:
				}
			}
		}(ch)
	}
	defer func() {
		for i, eventType := range viewEvents {
			m.bus.Unsubscribe(eventType, subs[i])
		}
	}()

	var last T
	emitted := false
	emit := func() bool {
		value, err := compute(ctx)
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Error().Err(err).Msg("playlist watch recompute failed")
			}
			return true
		}
		if emitted && reflect.DeepEqual(value, last) {
			return true
		}
		select {
		case out <- value:
			last = value
			emitted = true
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
			if !emit() {
				return
			}
		}
	}
}
