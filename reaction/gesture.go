// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package reaction

import (
	"fmt"

	"github.com/dfloer/dronefly/card"
)

// Gesture emoji.
const (
	EmojiSelfUser    = "#️⃣"
	EmojiUserByName  = "📝"
	EmojiHomePlace   = "🏠"
	EmojiPlaceByName = "📍"
)

// Gesture is what a reaction asks for.
type Gesture int

const (
	SelfUser Gesture = iota + 1
	UserByName
	HomePlace
	PlaceByName
)

// ParseGesture maps an emoji to its gesture.
func ParseGesture(emoji string) (Gesture, bool) {
	switch emoji {
	case EmojiSelfUser:
		return SelfUser, true
	case EmojiUserByName:
		return UserByName, true
	case EmojiHomePlace:
		return HomePlace, true
	case EmojiPlaceByName:
		return PlaceByName, true
	}
	return 0, false
}

// Emojis returns the gesture emoji that apply to a card accepting the
// given dimensions, in display order.
func Emojis(dimensions []card.Dimension) []string {
	var emojis []string
	for _, gesture := range []Gesture{SelfUser, UserByName, HomePlace, PlaceByName} {
		for _, d := range dimensions {
			if gesture.Dimension() == d {
				emojis = append(emojis, gesture.Emoji())
			}
		}
	}
	return emojis
}

// Dimension returns the dimension the gesture tallies.
func (g Gesture) Dimension() card.Dimension {
	if g == HomePlace || g == PlaceByName {
		return card.DimensionPlace
	}
	return card.DimensionUser
}

// ByName reports whether the gesture asks for a name.
func (g Gesture) ByName() bool {
	return g == UserByName || g == PlaceByName
}

// Emoji returns the gesture's reaction key.
func (g Gesture) Emoji() string {
	switch g {
	case SelfUser:
		return EmojiSelfUser
	case UserByName:
		return EmojiUserByName
	case HomePlace:
		return EmojiHomePlace
	case PlaceByName:
		return EmojiPlaceByName
	}
	return ""
}

func (g Gesture) String() string {
	switch g {
	case SelfUser:
		return "self-user"
	case UserByName:
		return "user-by-name"
	case HomePlace:
		return "home-place"
	case PlaceByName:
		return "place-by-name"
	default:
		return fmt.Sprintf("Gesture(%d)", int(g))
	}
}
