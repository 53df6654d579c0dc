package game

import (
	"time"
)

const (
	// WinExperience is awarded to every player on the winning side.
	WinExperience = 50

	// LoseExperience is awarded to every player on the losing side.
	LoseExperience = 10
)

// Settlement is the scored outcome of one finished round.
type Settlement struct {
	Round         int
	Winner        Role
	Roles         Assignment
	PlayedAt      time.Time
	ActualMinutes int

	// Awards maps each player to the experience earned this round.
	Awards map[string]int
}

// PlayedMinutes floors the elapsed time between start and end to whole minutes,
// never reporting less than one.
func PlayedMinutes(start, end time.Time) int {
	minutes := int(end.Sub(start) / time.Minute)
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Settle scores a round. priorRounds is the number of rounds already recorded for the
// meeting, so the new round's ordinal is priorRounds+1. A zero start time counts as
// starting at now.
func Settle(roles Assignment, winner Role, start, now time.Time, priorRounds int) (Settlement, error) {
	if _, err := ParseRole(string(winner)); err != nil {
		return Settlement{}, err
	}
	if start.IsZero() {
		start = now
	}

	awards := make(map[string]int, len(roles))
	for id, role := range roles {
		if role == winner {
			awards[id] = WinExperience
		} else {
			awards[id] = LoseExperience
		}
	}

	return Settlement{
		Round:         priorRounds + 1,
		Winner:        winner,
		Roles:         roles.Clone(),
		PlayedAt:      now,
		ActualMinutes: PlayedMinutes(start, now),
		Awards:        awards,
	}, nil
}
