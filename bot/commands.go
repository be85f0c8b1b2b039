// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dfloer/dronefly/card"
	"github.com/dfloer/dronefly/chat"
	"github.com/dfloer/dronefly/inat"
	"github.com/dfloer/dronefly/lib/ref"
	"github.com/dfloer/dronefly/reaction"
	"github.com/dfloer/dronefly/registry"
	"github.com/dfloer/dronefly/tally"
)

// dotTaxonPattern finds ".query." with at least four characters
// between the dots, not starting or ending in a space or dot, and the
// dots themselves at word boundaries.
var dotTaxonPattern = regexp.MustCompile(`(?:^|\s)\.([^\s.].{2,}?[^\s.])\.(?:\s|$)`)

// handleText runs a command or a dot-taxon lookup.
func (b *Bot) handleText(ctx context.Context, message TextMessage) error {
	if b.isBot(message.Sender) {
		return nil
	}
	text := strings.TrimSpace(message.Body)

	for _, prefix := range b.prefixes {
		if rest, ok := strings.CutPrefix(text, prefix); ok {
			return b.runCommand(ctx, message, rest)
		}
	}
	for _, prefix := range b.otherBotPrefixes {
		if strings.HasPrefix(text, prefix) {
			return nil
		}
	}

	if !b.dotTaxon {
		return nil
	}
	match := dotTaxonPattern.FindStringSubmatch(message.Body)
	if match == nil {
		return nil
	}
	_, err := b.postCard(ctx, message.Room, match[1], card.Filter{})
	if errors.Is(err, inat.ErrNotFound) {
		// Dots appear in ordinary prose; a miss is not worth a reply.
		return nil
	}
	return err
}

func (b *Bot) runCommand(ctx context.Context, message TextMessage, command string) error {
	name, args, _ := strings.Cut(strings.TrimSpace(command), " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "iam":
		return b.commandIAm(ctx, message, args)
	case "home":
		return b.commandHome(ctx, message, args)
	case "taxon", "t":
		return b.commandTaxon(ctx, message, args)
	}
	return nil
}

// prefix is the command prefix shown in usage hints.
func (b *Bot) prefix() string {
	if len(b.prefixes) == 0 {
		return ""
	}
	return b.prefixes[0]
}

func (b *Bot) reply(ctx context.Context, room ref.RoomID, format string, args ...any) error {
	if _, err := b.platform.Send(ctx, room, chat.Content{Body: fmt.Sprintf(format, args...)}); err != nil {
		return fmt.Errorf("bot: replying: %w", err)
	}
	return nil
}

// commandIAm links the sender to an iNaturalist account.
func (b *Bot) commandIAm(ctx context.Context, message TextMessage, login string) error {
	if login == "" {
		return b.reply(ctx, message.Room, "Usage: %siam <iNaturalist login>", b.prefix())
	}
	user, err := b.naturalist.User(ctx, login)
	if errors.Is(err, inat.ErrNotFound) {
		return b.reply(ctx, message.Room, "iNaturalist user %q not found.", login)
	}
	if err != nil {
		return fmt.Errorf("bot: looking up %q: %w", login, err)
	}
	if err := b.registry.Register(ctx, message.Sender, user.Login); err != nil {
		return err
	}
	return b.reply(ctx, message.Room, "%s is now registered as iNaturalist user %s.", message.Sender, user.Login)
}

// commandHome sets a registered sender's home place.
func (b *Bot) commandHome(ctx context.Context, message TextMessage, name string) error {
	if name == "" {
		return b.reply(ctx, message.Room, "Usage: %shome <place>", b.prefix())
	}
	if _, err := b.registry.Member(ctx, message.Sender); errors.Is(err, registry.ErrNotRegistered) {
		return b.reply(ctx, message.Room, "Register first with %siam <iNaturalist login>.", b.prefix())
	} else if err != nil {
		return err
	}

	place, err := b.registry.LookupPlace(ctx, name)
	if errors.Is(err, tally.ErrNotFound) {
		return b.reply(ctx, message.Room, "Place %q not found.", name)
	}
	if err != nil {
		return err
	}
	if err := b.registry.SetHome(ctx, message.Sender, place); err != nil {
		return err
	}
	return b.reply(ctx, message.Room, "Home place set to %s.", place.Label())
}

// commandTaxon posts a card for "<query> [by <member>] [from <place>]".
func (b *Bot) commandTaxon(ctx context.Context, message TextMessage, args string) error {
	query := parseTaxonQuery(args)
	if query.taxon == "" {
		return b.reply(ctx, message.Room, "Usage: %staxon <name> [by <member>] [from <place>]", b.prefix())
	}
	if query.by != "" && query.from != "" {
		return b.reply(ctx, message.Room, "A card can be narrowed by a member or a place, not both.")
	}

	var filter card.Filter
	switch {
	case query.by != "":
		subject, err := b.registry.ResolveUser(ctx, message.Room, query.by)
		if errors.Is(err, tally.ErrNotFound) {
			return b.reply(ctx, message.Room, "Member %q not found or not registered.", query.by)
		}
		if err != nil {
			return err
		}
		filter.User = &inat.User{Login: subject.Key}
	case query.from != "":
		place, err := b.registry.LookupPlace(ctx, query.from)
		if errors.Is(err, tally.ErrNotFound) {
			return b.reply(ctx, message.Room, "Place %q not found.", query.from)
		}
		if err != nil {
			return err
		}
		filter.Place = place
	}

	_, err := b.postCard(ctx, message.Room, query.taxon, filter)
	if errors.Is(err, inat.ErrNotFound) {
		return b.reply(ctx, message.Room, "Nothing found for %q.", query.taxon)
	}
	return err
}

type taxonQuery struct {
	taxon, by, from string
}

// parseTaxonQuery splits "tufted titmouse by alice" into its parts.
// The keywords "by" and "from" start a new part wherever they appear
// as whole words.
func parseTaxonQuery(args string) taxonQuery {
	var parts [3][]string
	current := 0
	for _, word := range strings.Fields(args) {
		switch strings.ToLower(word) {
		case "by":
			current = 1
			continue
		case "from":
			current = 2
			continue
		}
		parts[current] = append(parts[current], word)
	}
	return taxonQuery{
		taxon: strings.Join(parts[0], " "),
		by:    strings.Join(parts[1], " "),
		from:  strings.Join(parts[2], " "),
	}
}

// postCard looks up a taxon, posts its card, and seeds the gesture
// reactions the card accepts.
func (b *Bot) postCard(ctx context.Context, room ref.RoomID, query string, filter card.Filter) (ref.EventID, error) {
	taxon, err := b.naturalist.SearchTaxon(ctx, query)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("bot: searching taxa for %q: %w", query, err)
	}
	meta, err := card.NewMeta(taxon, filter)
	if err != nil {
		return ref.EventID{}, err
	}

	id, err := b.platform.Send(ctx, room, chat.Content{
		Body: card.Render(meta, taxon, b.links),
		Card: &meta,
	})
	if err != nil {
		return ref.EventID{}, fmt.Errorf("bot: posting card: %w", err)
	}
	b.logger.Info("card posted", "room", room, "event_id", id, "taxon_id", taxon.ID, "dimension", meta.Dimension)

	for _, emoji := range reaction.Emojis(meta.Gestures()) {
		if err := b.platform.React(ctx, room, id, emoji); err != nil {
			b.logger.Warn("seeding gesture reaction failed", "event_id", id, "emoji", emoji, "error", err)
		}
	}
	return id, nil
}
