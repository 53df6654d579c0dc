/*
Package game holds the rules of a Police and Thief round: who plays which side, how a
finished round is scored, and the fixed rewards and penalties around attendance and
meeting closure. Everything here is pure; persistence lives in package meeting.
*/
package game

import (
	"errors"
	"fmt"
	"sort"

	"policethief/internal/pkg/randx"
)

// Role is the hidden side a player is dealt for one round.
type Role string

const (
	RolePolice Role = "POLICE"
	RoleThief  Role = "THIEF"
)

// MinPlayers is the smallest checked-in head-count a round can start with.
const MinPlayers = 2

var (
	// ErrNotEnoughPlayers is returned when fewer than MinPlayers are checked in.
	ErrNotEnoughPlayers = errors.New("game: at least two checked-in players are required")

	// ErrInvalidRole is returned for a role name other than POLICE or THIEF.
	ErrInvalidRole = errors.New("game: unknown role")
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RolePolice, RoleThief:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Assignment maps a player identifier to the role dealt for the current round.
type Assignment map[string]Role

// Count returns how many players hold role.
func (a Assignment) Count(role Role) int {
	n := 0
	for _, r := range a {
		if r == role {
			n++
		}
	}
	return n
}

// Players returns the assigned identifiers in sorted order.
func (a Assignment) Players() []string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// PoliceHeadcount clamps the configured police count for the live head-count so at least
// one thief always remains. The clamp happens here, at deal time, never when settings are
// saved.
func PoliceHeadcount(configured, players int) int {
	if configured > players-1 {
		configured = players - 1
	}
	if configured < 0 {
		configured = 0
	}
	return configured
}

// AssignRoles deals roles to the checked-in players: they are shuffled with an unseeded
// source and the first PoliceHeadcount of them become police, the rest thieves.
func AssignRoles(checkedIn []string, policeCount int) (Assignment, error) {
	return assignRoles(checkedIn, policeCount, randx.Shuffle)
}

func assignRoles(checkedIn []string, policeCount int, shuffle func([]string) []string) (Assignment, error) {
	players := uniqueIDs(checkedIn)
	if len(players) < MinPlayers {
		return nil, ErrNotEnoughPlayers
	}

	order := shuffle(players)
	police := PoliceHeadcount(policeCount, len(order))

	roles := make(Assignment, len(order))
	for i, id := range order {
		if i < police {
			roles[id] = RolePolice
		} else {
			roles[id] = RoleThief
		}
	}

	return roles, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
