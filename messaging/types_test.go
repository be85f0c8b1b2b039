// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"testing"

	"github.com/dfloer/dronefly/lib/ref"
)

func TestNewEdit(t *testing.T) {
	replacement := NewHTMLMessage("**bold**", "<strong>bold</strong>")
	edit := NewEdit(ref.MustParseEventID("$target"), replacement)

	if edit.Body != "* **bold**" || edit.FormattedBody != "* <strong>bold</strong>" {
		t.Errorf("fallback = %q / %q", edit.Body, edit.FormattedBody)
	}
	if edit.RelatesTo == nil || edit.RelatesTo.RelType != RelationReplace || edit.RelatesTo.EventID.String() != "$target" {
		t.Errorf("relation = %+v", edit.RelatesTo)
	}
	if edit.NewContent == nil || edit.NewContent.Body != "**bold**" {
		t.Errorf("new content = %+v", edit.NewContent)
	}
	if replacement.RelatesTo != nil {
		t.Error("NewEdit must not modify the replacement")
	}
}

func TestBundledEdit(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		event := Event{Type: EventTypeMessage}
		if _, ok := event.BundledEdit(); ok {
			t.Error("event without relations reported an edit")
		}
	})

	t.Run("reference only", func(t *testing.T) {
		// Servers before Matrix 1.7 bundle only the edit's ID.
		var event Event
		raw := `{"type":"m.room.message","content":{},"unsigned":{"m.relations":{"m.replace":{"event_id":"$e"}}}}`
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			t.Fatal(err)
		}
		if _, ok := event.BundledEdit(); ok {
			t.Error("edit without content should not be reported")
		}
	})

	t.Run("full edit", func(t *testing.T) {
		var event Event
		raw := `{"type":"m.room.message","content":{"body":"old"},"unsigned":{"m.relations":{"m.replace":{
			"event_id":"$e","type":"m.room.message",
			"content":{"body":"* new","m.new_content":{"msgtype":"m.text","body":"new","org.dronefly.card":{"taxon_id":1}}}
		}}}}`
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			t.Fatal(err)
		}
		content, ok := event.BundledEdit()
		if !ok || content.Body != "new" {
			t.Fatalf("BundledEdit() = %+v, %v", content, ok)
		}
		if string(content.Card) != `{"taxon_id":1}` {
			t.Errorf("card = %s", content.Card)
		}
	})
}

func TestRedactedEventID(t *testing.T) {
	message := Event{Type: EventTypeMessage, Redacts: ref.MustParseEventID("$x")}
	if !message.RedactedEventID().IsZero() {
		t.Error("non-redaction event reported a target")
	}
}

func TestIsRedacted(t *testing.T) {
	var event Event
	raw := `{"type":"m.room.message","content":{},"unsigned":{"redacted_because":{"type":"m.room.redaction"}}}`
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatal(err)
	}
	if !event.IsRedacted() {
		t.Error("IsRedacted() = false")
	}
}
