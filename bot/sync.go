// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/messaging"
)

const (
	// longPollTimeout is the server-side /sync hold in milliseconds.
	longPollTimeout = 30000

	// maxBackoff caps the wait between failed /sync attempts.
	maxBackoff = 30 * time.Second

	// pruneInterval is how often the reaction index is pruned.
	pruneInterval = time.Hour
)

// syncFilter limits /sync to what classify looks at. Invites arrive
// regardless of the filter.
var syncFilter = func() string {
	filter := map[string]any{
		"room": map[string]any{
			"timeline": map[string]any{
				"types": []string{
					messaging.EventTypeMessage,
					messaging.EventTypeReaction,
					messaging.EventTypeRedaction,
				},
				"limit": 50,
			},
			"state":        map[string]any{"types": []string{}},
			"ephemeral":    map[string]any{"types": []string{}},
			"account_data": map[string]any{"types": []string{}},
		},
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}
	data, _ := json.Marshal(filter)
	return string(data)
}()

// Run syncs until ctx is done, then waits for in-flight handlers. It
// returns an error only when the session is no longer valid.
func (b *Bot) Run(ctx context.Context) error {
	since, err := loadSyncState(b.syncStatePath, b.self)
	if err != nil {
		return err
	}

	if since == "" {
		// Start from now: an initial sync's timeline is history the
		// bot never saw live, and replaying it would re-run commands.
		response, err := b.session.Sync(ctx, messaging.SyncOptions{
			Filter:     syncFilter,
			SetTimeout: true,
		})
		if err != nil {
			return fmt.Errorf("bot: initial sync: %w", err)
		}
		b.acceptInvites(ctx, response.Rooms.Invite)
		since = response.NextBatch
		b.saveSyncState(since)
		b.logger.Info("initial sync complete", "user_id", b.self, "rooms", len(response.Rooms.Join))
	} else {
		b.logger.Info("resuming sync", "user_id", b.self)
	}

	if b.reactionRetention > 0 {
		b.handlers.Go(func() { b.pruneReactions(ctx) })
	}

	err = b.syncLoop(ctx, since)
	b.handlers.Wait()
	return err
}

// syncLoop long-polls /sync, retrying transient errors with
// exponential backoff from one second to maxBackoff.
func (b *Bot) syncLoop(ctx context.Context, since string) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}

		response, err := b.session.Sync(ctx, messaging.SyncOptions{
			Since:      since,
			Timeout:    longPollTimeout,
			SetTimeout: true,
			Filter:     syncFilter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if messaging.IsMatrixError(err, messaging.ErrCodeUnknownToken) {
				return fmt.Errorf("bot: session rejected, log in again: %w", err)
			}
			b.logger.Error("sync failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-b.clock.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = time.Second
		b.processSync(ctx, response)
		since = response.NextBatch
		b.saveSyncState(since)
	}
}

// processSync classifies a batch in stream order and hands each event
// to its own goroutine.
func (b *Bot) processSync(ctx context.Context, response *messaging.SyncResponse) {
	b.acceptInvites(ctx, response.Rooms.Invite)

	for room, joined := range response.Rooms.Join {
		if joined.Timeline.Limited {
			b.logger.Warn("sync gap: some events were skipped", "room", room)
		}
		for _, timelineEvent := range joined.Timeline.Events {
			event, err := b.classify(ctx, room, timelineEvent)
			if err != nil {
				b.logger.Error("classifying event failed",
					"room", room,
					"event_id", timelineEvent.EventID,
					"type", timelineEvent.Type,
					"error", err,
				)
				continue
			}
			if event == nil {
				continue
			}
			b.handlers.Go(func() { b.dispatch(ctx, event) })
		}
	}
}

// acceptInvites joins every room the bot has been invited to.
func (b *Bot) acceptInvites(ctx context.Context, invites map[ref.RoomID]messaging.InvitedRoom) {
	for room := range invites {
		b.logger.Info("accepting room invite", "room", room)
		if _, err := b.session.JoinRoom(ctx, room); err != nil {
			b.logger.Error("failed to accept room invite", "room", room, "error", err)
		}
	}
}

func (b *Bot) saveSyncState(nextBatch string) {
	if err := saveSyncState(b.syncStatePath, b.self, nextBatch); err != nil {
		b.logger.Error("persisting sync position failed", "error", err)
	}
}

// pruneReactions drops expired rows from the reaction index now and
// every pruneInterval until ctx is done.
func (b *Bot) pruneReactions(ctx context.Context) {
	ticker := b.clock.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		if _, err := b.registry.PruneReactions(ctx, b.clock.Now().Add(-b.reactionRetention)); err != nil && ctx.Err() == nil {
			b.logger.Error("pruning reaction index failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
