// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dfloer/dronefly/lib/netutil"
	"github.com/dfloer/dronefly/lib/ref"
)

// SyncFilter narrows what a RoomWatcher receives. The watched room is
// always included; a nil filter means every timeline and state event
// in that room.
type SyncFilter struct {
	// TimelineTypes restricts timeline events to these types. Empty
	// means all.
	TimelineTypes []string

	// Senders restricts timeline events to these senders. Empty means
	// all.
	Senders []ref.UserID

	// ExcludeState suppresses state events.
	ExcludeState bool
}

// buildInlineFilter builds the inline JSON /sync filter scoped to one
// room.
func buildInlineFilter(roomID ref.RoomID, filter *SyncFilter) string {
	roomFilter := map[string]any{
		"rooms": []string{roomID.String()},
	}

	if filter != nil {
		timeline := map[string]any{}
		if len(filter.TimelineTypes) > 0 {
			timeline["types"] = filter.TimelineTypes
		}
		if len(filter.Senders) > 0 {
			timeline["senders"] = filter.Senders
		}
		if len(timeline) > 0 {
			roomFilter["timeline"] = timeline
		}
		if filter.ExcludeState {
			roomFilter["state"] = map[string]any{"types": []string{}}
		}
	}

	top := map[string]any{
		"room":         roomFilter,
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}

	data, _ := json.Marshal(top)
	return string(data)
}

// RoomWatcher captures a position in the /sync stream for one room.
// Create it with WatchRoom BEFORE triggering whatever produces the
// awaited event, then call WaitForEvent.
//
// Waiting is /sync long-polling; there is no client-side poll interval.
// A RoomWatcher is not safe for concurrent use. Independent watchers on
// one Session are fine: the since token travels with each request.
type RoomWatcher struct {
	session   Session
	roomID    ref.RoomID
	filter    string
	nextBatch string
	pending   []Event
}

// WatchRoom performs an immediate (timeout=0) /sync to capture the
// current stream position. The watcher only sees later events.
func WatchRoom(ctx context.Context, session Session, roomID ref.RoomID, filter *SyncFilter) (*RoomWatcher, error) {
	if roomID.IsZero() {
		return nil, fmt.Errorf("messaging: WatchRoom requires a non-zero room ID")
	}
	inlineFilter := buildInlineFilter(roomID, filter)
	response, err := session.Sync(ctx, SyncOptions{
		SetTimeout: true,
		Timeout:    0,
		Filter:     inlineFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("messaging: initial sync for room watch: %w", err)
	}
	return &RoomWatcher{
		session:   session,
		roomID:    roomID,
		filter:    inlineFilter,
		nextBatch: response.NextBatch,
	}, nil
}

const (
	// maxSyncRetries is how many consecutive /sync failures
	// WaitForEvent tolerates.
	maxSyncRetries = 5

	// longPollTimeout is the server-side hold in milliseconds.
	longPollTimeout = 30000

	// retryTimeout is the hold used after an error, so the retry
	// round trip itself provides the backoff.
	retryTimeout = 1000
)

// WaitForEvent blocks until an event matching predicate arrives in the
// watched room, or ctx is done. Events from one /sync batch are
// buffered, so a second call sees matches the first call skipped.
func (w *RoomWatcher) WaitForEvent(ctx context.Context, predicate func(Event) bool) (Event, error) {
	if event, ok := w.takePending(predicate); ok {
		return event, nil
	}

	var syncRetries int
	for {
		syncTimeout := longPollTimeout
		if syncRetries > 0 {
			syncTimeout = retryTimeout
		}
		response, err := w.session.Sync(ctx, SyncOptions{
			Since:      w.nextBatch,
			SetTimeout: true,
			Timeout:    syncTimeout,
			Filter:     w.filter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, fmt.Errorf("messaging: waiting for event in %s: %w", w.roomID, ctx.Err())
			}
			syncRetries++
			if netutil.IsConnectionReset(err) {
				if closer, ok := w.session.(interface{ CloseIdleConnections() }); ok {
					closer.CloseIdleConnections()
				}
			}
			if syncRetries > maxSyncRetries {
				return Event{}, fmt.Errorf("messaging: sync failed %d consecutive times waiting in %s: %w",
					syncRetries, w.roomID, err)
			}
			slog.Debug("room watcher sync error, retrying",
				"room_id", w.roomID,
				"attempt", syncRetries,
				"error", err,
			)
			continue
		}
		syncRetries = 0
		w.nextBatch = response.NextBatch

		joined, ok := response.Rooms.Join[w.roomID]
		if !ok || len(joined.State.Events)+len(joined.Timeline.Events) == 0 {
			continue
		}

		w.pending = append(w.pending, joined.State.Events...)
		w.pending = append(w.pending, joined.Timeline.Events...)
		if event, ok := w.takePending(predicate); ok {
			return event, nil
		}
	}
}

func (w *RoomWatcher) takePending(predicate func(Event) bool) (Event, bool) {
	for i, event := range w.pending {
		if predicate(event) {
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			return event, true
		}
	}
	return Event{}, false
}

// RoomID returns the room being watched.
func (w *RoomWatcher) RoomID() ref.RoomID {
	return w.roomID
}
