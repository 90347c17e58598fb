package models

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// CardRating is the outcome of reviewing a card, ordered from failed to
// trivially easy.
type CardRating int

const (
	RatingAgain CardRating = iota + 1
	RatingHard
	RatingGood
	RatingEasy
)

// Ratings lists every valid rating in ascending order.
var Ratings = []CardRating{RatingAgain, RatingHard, RatingGood, RatingEasy}

var (
	ratingNames  = [...]string{RatingAgain: "again", RatingHard: "hard", RatingGood: "good", RatingEasy: "easy"}
	ratingByName = map[string]CardRating{
		"again": RatingAgain,
		"hard":  RatingHard,
		"good":  RatingGood,
		"easy":  RatingEasy,
	}
	ratingQuality = [...]int{RatingAgain: 0, RatingHard: 3, RatingGood: 4, RatingEasy: 5}
)

var (
	_ fmt.Stringer             = CardRating(0)
	_ json.Marshaler           = CardRating(0)
	_ json.Unmarshaler         = (*CardRating)(nil)
	_ encoding.TextMarshaler   = CardRating(0)
	_ encoding.TextUnmarshaler = (*CardRating)(nil)
)

// ParseRating converts "again", "hard", "good" or "easy" into a CardRating.
func ParseRating(s string) (CardRating, error) {
	r, ok := ratingByName[s]
	if !ok {
		return 0, fmt.Errorf("invalid rating %q", s)
	}
	return r, nil
}

// IsValid reports whether r is one of the four ratings.
func (r CardRating) IsValid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// String returns the lowercase rating name.
func (r CardRating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("CardRating(%d)", int(r))
}

// Quality maps the rating onto the 0-5 SM-2 quality scale.
func (r CardRating) Quality() int {
	if !r.IsValid() {
		return 0
	}
	return ratingQuality[r]
}

// Passed reports whether the rating counts as a successful recall.
func (r CardRating) Passed() bool {
	return r.IsValid() && r != RatingAgain
}

// MarshalText implements encoding.TextMarshaler.
func (r CardRating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid rating %d", int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *CardRating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r CardRating) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (r *CardRating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid rating %s", data)
	}
	return r.UnmarshalText([]byte(s))
}
