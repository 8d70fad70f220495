package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankChars = "23456789TJQKA"

// String returns the string representation of a rank
func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	return string(rankChars[r-Two])
}

// Card is a card identifier as the contract encodes it: 0-51 for real
// cards (suit*13 + rank-2) and Sentinel for a face-down or unknown card.
type Card uint8

// Sentinel is the reserved face-down / unknown card.
const Sentinel Card = 255

// DeckSize is the number of real card identifiers.
const DeckSize = 52

// NewCard creates a card from its suit and rank
func NewCard(suit Suit, rank Rank) Card {
	return Card(int(suit)*13 + int(rank-Two))
}

// HiddenPair is the hole-card pair shown before a hand is revealed.
func HiddenPair() [2]Card {
	return [2]Card{Sentinel, Sentinel}
}

// Known reports whether the card is a real card.
func (c Card) Known() bool {
	return c < DeckSize
}

// Valid reports whether the identifier is either a real card or the sentinel.
func (c Card) Valid() bool {
	return c.Known() || c == Sentinel
}

// Suit returns the card's suit. Only meaningful for known cards.
func (c Card) Suit() Suit {
	return Suit(c / 13)
}

// Rank returns the card's rank. Only meaningful for known cards.
func (c Card) Rank() Rank {
	return Rank(c%13) + Two
}

// String returns the string representation of a card (e.g., "A♠").
// The sentinel and invalid identifiers render as "??".
func (c Card) String() string {
	if !c.Known() {
		return "??"
	}
	return c.Rank().String() + c.Suit().String()
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Known() && c.Suit().IsRed()
}

// Image returns the asset name used to draw the card. Face-down and
// unknown cards always use the card back.
func (c Card) Image() string {
	if !c.Known() {
		return "cards/back.png"
	}
	return fmt.Sprintf("cards/%d.png", uint8(c))
}

// ParseCard parses a two character card like "As" or "td".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Sentinel, fmt.Errorf("invalid card %q: want rank and suit", s)
	}

	idx := strings.IndexByte(rankChars, upper(s[0]))
	if idx < 0 {
		return Sentinel, fmt.Errorf("invalid rank '%c' in %q", s[0], s)
	}

	var suit Suit
	switch s[1] {
	case 's', 'S':
		suit = Spades
	case 'h', 'H':
		suit = Hearts
	case 'd', 'D':
		suit = Diamonds
	case 'c', 'C':
		suit = Clubs
	default:
		return Sentinel, fmt.Errorf("invalid suit '%c' in %q", s[1], s)
	}

	return NewCard(suit, Two+Rank(idx)), nil
}

// ParseCards parses a run of cards like "AsKd7h", spaces ignored.
func ParseCards(s string) ([]Card, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid card string length: %d (must be even)", len(s))
	}

	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		card, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// FromIDs converts raw contract identifiers, rejecting values that are
// neither real cards nor the sentinel.
func FromIDs(ids []uint8) ([]Card, error) {
	cards := make([]Card, len(ids))
	for i, id := range ids {
		c := Card(id)
		if !c.Valid() {
			return nil, fmt.Errorf("card %d at position %d is out of range", id, i)
		}
		cards[i] = c
	}
	return cards, nil
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
