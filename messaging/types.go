// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"

	"github.com/dfloer/dronefly/lib/ref"
)

// Event types the bot sends or reacts to.
const (
	EventTypeMessage   = "m.room.message"
	EventTypeReaction  = "m.reaction"
	EventTypeRedaction = "m.room.redaction"
	EventTypeMember    = "m.room.member"
)

// Relation types.
const (
	RelationReplace    = "m.replace"
	RelationAnnotation = "m.annotation"
)

// CardContentKey is the m.room.message content key under which the bot
// stores a tally card's structured metadata, next to the human-readable
// body.
const CardContentKey = "org.dronefly.card"

// LoginRequest is the body for password login.
type LoginRequest struct {
	Type                     string         `json:"type"`
	Identifier               UserIdentifier `json:"identifier"`
	Password                 string         `json:"password"`
	InitialDeviceDisplayName string         `json:"initial_device_display_name,omitempty"`
}

// UserIdentifier is the m.id.user login identifier.
type UserIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// AuthResponse is returned by Login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// MessageContent is the content of an m.room.message event. For an
// edit, RelatesTo is an m.replace relation and NewContent holds the
// replacement; Body then carries a "* " fallback for old clients.
type MessageContent struct {
	MsgType       string          `json:"msgtype"`
	Body          string          `json:"body"`
	Format        string          `json:"format,omitempty"`
	FormattedBody string          `json:"formatted_body,omitempty"`
	Mentions      *Mentions       `json:"m.mentions,omitempty"`
	RelatesTo     *RelatesTo      `json:"m.relates_to,omitempty"`
	NewContent    *MessageContent `json:"m.new_content,omitempty"`
	Card          json.RawMessage `json:"org.dronefly.card,omitempty"`
}

// Mentions lists users a message addresses. An empty, non-nil value
// tells clients the message mentions nobody.
type Mentions struct {
	UserIDs []ref.UserID `json:"user_ids"`
}

// RelatesTo expresses a relation to another event: an edit
// (m.replace) or a reaction (m.annotation, with Key holding the emoji).
type RelatesTo struct {
	RelType string      `json:"rel_type,omitempty"`
	EventID ref.EventID `json:"event_id"`
	Key     string      `json:"key,omitempty"`
}

// ReactionContent is the content of an m.reaction event.
type ReactionContent struct {
	RelatesTo RelatesTo `json:"m.relates_to"`
}

// RedactionContent is the content of an m.room.redaction event. Room
// version 11 moved the redacted event ID here from the top level.
type RedactionContent struct {
	Redacts ref.EventID `json:"redacts"`
	Reason  string      `json:"reason,omitempty"`
}

// MemberContent is the content of an m.room.member event.
type MemberContent struct {
	Membership  string `json:"membership"`
	DisplayName string `json:"displayname,omitempty"`
}

// NewTextMessage creates a plain m.text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{MsgType: "m.text", Body: body}
}

// NewHTMLMessage creates an m.text message with an HTML rendering.
func NewHTMLMessage(body, html string) MessageContent {
	return MessageContent{
		MsgType:       "m.text",
		Body:          body,
		Format:        "org.matrix.custom.html",
		FormattedBody: html,
	}
}

// NewEdit wraps replacement as an edit of target.
func NewEdit(target ref.EventID, replacement MessageContent) MessageContent {
	fallback := replacement
	fallback.Body = "* " + replacement.Body
	if fallback.FormattedBody != "" {
		fallback.FormattedBody = "* " + replacement.FormattedBody
	}
	fallback.RelatesTo = &RelatesTo{RelType: RelationReplace, EventID: target}
	fallback.NewContent = &replacement
	return fallback
}

// NewReaction annotates target with key.
func NewReaction(target ref.EventID, key string) ReactionContent {
	return ReactionContent{RelatesTo: RelatesTo{
		RelType: RelationAnnotation,
		EventID: target,
		Key:     key,
	}}
}

// Event is a Matrix event as delivered by /sync or the event endpoint.
type Event struct {
	EventID        ref.EventID     `json:"event_id"`
	Type           string          `json:"type"`
	Sender         ref.UserID      `json:"sender"`
	OriginServerTS int64           `json:"origin_server_ts"`
	Content        json.RawMessage `json:"content"`
	RoomID         ref.RoomID      `json:"room_id"`
	StateKey       *string         `json:"state_key,omitempty"`
	Redacts        ref.EventID     `json:"redacts"`
	Unsigned       *EventUnsigned  `json:"unsigned,omitempty"`
}

// EventUnsigned holds the server-added, unsigned part of an event.
type EventUnsigned struct {
	Age             int64             `json:"age,omitempty"`
	TransactionID   string            `json:"transaction_id,omitempty"`
	RedactedBecause json.RawMessage   `json:"redacted_because,omitempty"`
	Relations       *BundledRelations `json:"m.relations,omitempty"`
}

// BundledRelations are relations the server aggregates onto an event.
// Since Matrix 1.7, Replace is the full most recent edit event; older
// servers send only its ID, sender, and timestamp.
type BundledRelations struct {
	Replace *Event `json:"m.replace,omitempty"`
}

// DecodeContent unmarshals the event content into v.
func (e *Event) DecodeContent(v any) error {
	if len(e.Content) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Content, v)
}

// IsRedacted reports whether the server has stripped this event.
func (e *Event) IsRedacted() bool {
	return e.Unsigned != nil && len(e.Unsigned.RedactedBecause) > 0
}

// RedactedEventID returns the target of an m.room.redaction event,
// reading the top-level field (room versions up to 10) or the content
// field (version 11). Zero for any other event.
func (e *Event) RedactedEventID() ref.EventID {
	if e.Type != EventTypeRedaction {
		return ref.EventID{}
	}
	if !e.Redacts.IsZero() {
		return e.Redacts
	}
	var content RedactionContent
	if err := e.DecodeContent(&content); err != nil {
		return ref.EventID{}
	}
	return content.Redacts
}

// BundledEdit returns the replacement content from a bundled m.replace
// relation, if the server included the full edit event.
func (e *Event) BundledEdit() (*MessageContent, bool) {
	if e.Unsigned == nil || e.Unsigned.Relations == nil || e.Unsigned.Relations.Replace == nil {
		return nil, false
	}
	var edit MessageContent
	if err := e.Unsigned.Relations.Replace.DecodeContent(&edit); err != nil || edit.NewContent == nil {
		return nil, false
	}
	return edit.NewContent, true
}

// SyncOptions controls a /sync request.
type SyncOptions struct {
	Since      string // next_batch from the previous sync; empty for initial sync
	Timeout    int    // long-poll hold in milliseconds
	SetTimeout bool   // send Timeout even when zero
	Filter     string // filter ID or inline JSON filter
}

// SyncResponse is the top-level /sync response.
type SyncResponse struct {
	NextBatch string       `json:"next_batch"`
	Rooms     RoomsSection `json:"rooms"`
}

// RoomsSection groups per-room sync data by membership. Map keys decode
// through ref.RoomID's TextUnmarshaler.
type RoomsSection struct {
	Join   map[ref.RoomID]JoinedRoom  `json:"join,omitempty"`
	Invite map[ref.RoomID]InvitedRoom `json:"invite,omitempty"`
}

// JoinedRoom contains sync data for a joined room.
type JoinedRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// InvitedRoom contains the stripped state of a pending invite.
type InvitedRoom struct {
	InviteState StateSection `json:"invite_state"`
}

// TimelineSection contains timeline events.
type TimelineSection struct {
	Events    []Event `json:"events"`
	PrevBatch string  `json:"prev_batch"`
	Limited   bool    `json:"limited"`
}

// StateSection contains state events.
type StateSection struct {
	Events []Event `json:"events"`
}

// SendEventResponse is returned by the send and redact endpoints.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// JoinedMember is one entry of the joined_members response.
type JoinedMember struct {
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// JoinedMembersResponse is returned by the joined_members endpoint.
type JoinedMembersResponse struct {
	Joined map[ref.UserID]JoinedMember `json:"joined"`
}

// RelationsOptions controls a /relations request.
type RelationsOptions struct {
	// Direction is "b" (newest first) or "f".
	Direction string
	Limit     int
}

// RelationsResponse is returned by Relations.
type RelationsResponse struct {
	Chunk     []Event `json:"chunk"`
	NextBatch string  `json:"next_batch,omitempty"`
}
