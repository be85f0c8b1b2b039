// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// EventID identifies one Matrix event: a tally card, a prompt, a
// reaction, or the redaction that removes a reaction. Since room
// version 4 event IDs carry no server part, so a '$' and at least one
// more character is all that is checked.
type EventID struct {
	id string
}

// ParseEventID validates raw and wraps it.
func ParseEventID(raw string) (EventID, error) {
	hash, ok := strings.CutPrefix(raw, "$")
	switch {
	case !ok:
		return EventID{}, fmt.Errorf("invalid event ID %q: missing '$' sigil", raw)
	case hash == "":
		return EventID{}, fmt.Errorf("invalid event ID %q: nothing after '$'", raw)
	}
	return EventID{id: raw}, nil
}

// MustParseEventID is ParseEventID for constants and tests. It panics
// on invalid input.
func MustParseEventID(raw string) EventID {
	id, err := ParseEventID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (e EventID) String() string { return e.id }

// IsZero reports whether e is unset.
func (e EventID) IsZero() bool { return e.id == "" }

// MarshalText encodes e for JSON and CBOR map keys and values.
func (e EventID) MarshalText() ([]byte, error) { return []byte(e.id), nil }

// UnmarshalText decodes and validates. Empty input yields the zero
// EventID, which is how optional fields arrive.
func (e *EventID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*e = EventID{}
		return nil
	}
	parsed, err := ParseEventID(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
