// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies which subjects a section tallies.
type Kind int

const (
	// KindUser sections tally observers by iNaturalist login.
	KindUser Kind = iota + 1
	// KindPlace sections tally places by display name.
	KindPlace
)

// Header literals. These are part of the persisted format: changing
// them orphans every tally already posted.
const (
	UserHeader  = "__obs# by user:__"
	PlaceHeader = "__obs# from place:__"

	totalKey = "*total*"
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindPlace:
		return "place"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Header returns the section header literal for the kind.
func (k Kind) Header() string {
	if k == KindPlace {
		return PlaceHeader
	}
	return UserHeader
}

// Entry is one tallied subject.
type Entry struct {
	// Key identifies the subject within its section: an iNaturalist
	// login or a place display name.
	Key string
	// Link is the observations URL shown behind the count. Opaque to
	// the codec.
	Link string
	// Count is the observation count at the time the entry was added.
	Count int
}

// Section is the tally for one kind. A Section held by a Card always
// has at least one entry.
type Section struct {
	Kind    Kind
	Entries []Entry
}

// Total returns the sum of the entry counts and whether a total line
// is shown for the section (two or more entries).
func (s *Section) Total() (int, bool) {
	if len(s.Entries) < 2 {
		return 0, false
	}
	sum := 0
	for _, entry := range s.Entries {
		sum += entry.Count
	}
	return sum, true
}

func (s *Section) index(key string) int {
	for i, entry := range s.Entries {
		if entry.Key == key {
			return i
		}
	}
	return -1
}

// part is either a verbatim line or a section.
type part struct {
	line    string
	section *Section
}

// Card is a decoded message body.
type Card struct {
	parts []part
}

// Title returns the first non-blank line outside any section.
func (c *Card) Title() string {
	for _, p := range c.parts {
		if p.section == nil && strings.TrimSpace(p.line) != "" {
			return p.line
		}
	}
	return ""
}

// Sections returns the card's sections in body order.
func (c *Card) Sections() []*Section {
	var sections []*Section
	for _, p := range c.parts {
		if p.section != nil {
			sections = append(sections, p.section)
		}
	}
	return sections
}

// Section returns the section of the given kind, or nil.
func (c *Card) Section(kind Kind) *Section {
	for _, p := range c.parts {
		if p.section != nil && p.section.Kind == kind {
			return p.section
		}
	}
	return nil
}

// Has reports whether key has an entry in the kind's section.
func (c *Card) Has(kind Kind, key string) bool {
	section := c.Section(kind)
	return section != nil && section.index(key) >= 0
}

// Add appends entry to the kind's section, creating the section at the
// end of the card if needed. Returns false without changing the card
// if the key is already present.
func (c *Card) Add(kind Kind, entry Entry) bool {
	section := c.Section(kind)
	if section == nil {
		section = &Section{Kind: kind}
		c.parts = append(c.parts, part{section: section})
	}
	if section.index(entry.Key) >= 0 {
		return false
	}
	section.Entries = append(section.Entries, entry)
	return true
}

// Remove deletes key from the kind's section. The section itself is
// removed with its last entry. Returns false if the key was absent.
func (c *Card) Remove(kind Kind, key string) bool {
	for partIndex, p := range c.parts {
		if p.section == nil || p.section.Kind != kind {
			continue
		}
		entryIndex := p.section.index(key)
		if entryIndex < 0 {
			return false
		}
		p.section.Entries = append(p.section.Entries[:entryIndex], p.section.Entries[entryIndex+1:]...)
		if len(p.section.Entries) == 0 {
			c.parts = append(c.parts[:partIndex], c.parts[partIndex+1:]...)
		}
		return true
	}
	return false
}

// Codec converts between message bodies and Cards. The zero value is
// ready to use and writes totals with an empty link.
type Codec struct {
	// TotalLink builds the link for a section's total line from the
	// section's current entries. Nil means an empty link.
	TotalLink func(kind Kind, entries []Entry) string
}

var entryPattern = regexp.MustCompile(`^\[([0-9 ()]+)\]\((.*?)\) (.+?)\s*$`)

var leadingDigits = regexp.MustCompile(`[0-9]+`)

// Decode parses body into a Card. It never fails.
func (Codec) Decode(body string) *Card {
	card := &Card{}
	if body == "" {
		return card
	}

	lines := strings.Split(body, "\n")
	for i := 0; i < len(lines); {
		kind, isHeader := headerKind(lines[i])
		if !isHeader || card.Section(kind) != nil {
			card.parts = append(card.parts, part{line: lines[i]})
			i++
			continue
		}

		section := &Section{Kind: kind}
		for i++; i < len(lines); i++ {
			entry, ok := parseEntry(lines[i])
			if !ok {
				break
			}
			if entry.Key == totalKey || section.index(entry.Key) >= 0 {
				continue
			}
			section.Entries = append(section.Entries, entry)
		}
		if len(section.Entries) > 0 {
			card.parts = append(card.parts, part{section: section})
		}
	}
	return card
}

// Encode serializes card. Sections without entries are omitted.
func (codec Codec) Encode(card *Card) string {
	lines := make([]string, 0, len(card.parts))
	for _, p := range card.parts {
		if p.section == nil {
			lines = append(lines, p.line)
			continue
		}
		section := p.section
		if len(section.Entries) == 0 {
			continue
		}
		lines = append(lines, section.Kind.Header())
		for _, entry := range section.Entries {
			lines = append(lines, formatEntry(entry))
		}
		if total, ok := section.Total(); ok {
			link := ""
			if codec.TotalLink != nil {
				link = codec.TotalLink(section.Kind, section.Entries)
			}
			lines = append(lines, formatEntry(Entry{Key: totalKey, Link: link, Count: total}))
		}
	}
	return strings.Join(lines, "\n")
}

func formatEntry(entry Entry) string {
	return fmt.Sprintf("[%d](%s) %s", entry.Count, entry.Link, entry.Key)
}

func headerKind(line string) (Kind, bool) {
	switch strings.TrimSpace(line) {
	case UserHeader:
		return KindUser, true
	case PlaceHeader:
		return KindPlace, true
	}
	return 0, false
}

func parseEntry(line string) (Entry, bool) {
	match := entryPattern.FindStringSubmatch(line)
	if match == nil {
		return Entry{}, false
	}
	count := 0
	if digits := leadingDigits.FindString(match[1]); digits != "" {
		var err error
		// An overflowing count is kept verbatim rather than rewritten.
		if count, err = strconv.Atoi(digits); err != nil {
			return Entry{}, false
		}
	}
	return Entry{Key: match[3], Link: match[2], Count: count}, true
}
