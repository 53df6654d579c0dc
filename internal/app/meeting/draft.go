package meeting

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength = 50
	MinCapacity    = 2
	MaxCapacity    = 100

	MinAgeBound = 10
	MaxAgeBound = 60

	MaxReputationCutoff = 99.0

	MinRoundMinutes  = 5
	MaxRoundMinutes  = 120
	RoundMinutesStep = 5

	MaxTotalRounds = 10

	DefaultPoliceCount = 1
)

var (
	ErrInvalidDraft    = errors.New("meeting: invalid meeting draft")
	ErrInvalidSettings = errors.New("meeting: invalid game settings")
)

// Draft is what a host submits to open a meeting.
type Draft struct {
	Title            string    `json:"title"`
	PlaceName        string    `json:"placeName"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	ScheduledAt      time.Time `json:"scheduledAt"`
	Capacity         int       `json:"capacity"`
	MinAge           int       `json:"minAge"`
	MaxAge           int       `json:"maxAge"`
	ReputationCutoff float64   `json:"reputationCutoff"`
	HasAfterParty    bool      `json:"hasAfterParty"`

	// RoundMinutes and TotalRounds may be left at zero (undecided).
	RoundMinutes int `json:"roundMinutes"`
	TotalRounds  int `json:"totalRounds"`
}

func invalidDraft(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDraft, fmt.Sprintf(format, args...))
}

// Validate normalises whitespace and checks every bound.
func (d *Draft) Validate(now time.Time) error {
	d.Title = strings.TrimSpace(d.Title)
	d.PlaceName = strings.TrimSpace(d.PlaceName)

	switch {
	case d.Title == "":
		return invalidDraft("title is required")
	case utf8.RuneCountInString(d.Title) > MaxTitleLength:
		return invalidDraft("title exceeds %d characters", MaxTitleLength)
	case d.ScheduledAt.IsZero():
		return invalidDraft("scheduledAt is required")
	case d.ScheduledAt.Before(now.Add(-time.Minute)):
		return invalidDraft("scheduledAt is in the past")
	case d.Latitude < -90 || d.Latitude > 90 || d.Longitude < -180 || d.Longitude > 180:
		return invalidDraft("coordinates out of range")
	case d.Capacity < MinCapacity || d.Capacity > MaxCapacity:
		return invalidDraft("capacity must be between %d and %d", MinCapacity, MaxCapacity)
	case d.MinAge < MinAgeBound || d.MaxAge > MaxAgeBound || d.MinAge > d.MaxAge:
		return invalidDraft("age bounds must satisfy %d <= min <= max <= %d", MinAgeBound, MaxAgeBound)
	case d.ReputationCutoff < 0 || d.ReputationCutoff > MaxReputationCutoff:
		return invalidDraft("reputationCutoff must be between 0 and %.0f", MaxReputationCutoff)
	case math.Mod(d.ReputationCutoff*2, 1) != 0:
		return invalidDraft("reputationCutoff moves in half steps")
	case d.RoundMinutes != 0 && !validRoundMinutes(d.RoundMinutes):
		return invalidDraft("roundMinutes must be a multiple of %d between %d and %d", RoundMinutesStep, MinRoundMinutes, MaxRoundMinutes)
	case d.TotalRounds < 0 || d.TotalRounds > MaxTotalRounds:
		return invalidDraft("totalRounds must be between 0 and %d", MaxTotalRounds)
	}

	return nil
}

func validRoundMinutes(m int) bool {
	return m >= MinRoundMinutes && m <= MaxRoundMinutes && m%RoundMinutesStep == 0
}

// Settings is what a host may change between rounds.
type Settings struct {
	PoliceCount  int `json:"policeCount"`
	RoundMinutes int `json:"roundMinutes"`
}

// Validate checks the settings against the meeting's current participant count. The
// police count is only clamped again when roles are dealt.
func (s Settings) Validate(participants int) error {
	if s.PoliceCount < 1 || s.PoliceCount >= participants {
		return fmt.Errorf("%w: policeCount must be at least 1 and below the participant count (%d)", ErrInvalidSettings, participants)
	}
	if !validRoundMinutes(s.RoundMinutes) {
		return fmt.Errorf("%w: roundMinutes must be a multiple of %d between %d and %d", ErrInvalidSettings, RoundMinutesStep, MinRoundMinutes, MaxRoundMinutes)
	}
	return nil
}
