/*
Package user contains the player profile and the rules that act on it.

It defines the Profile returned to clients and embedded in meeting views, the Store
contract the persistence backends implement, and the avatar catalog that decides which
outfits a player's level unlocks.
*/
package user

import (
	"context"
	"errors"
	"time"

	"policethief/internal/app/level"
)

const (
	// DefaultReputation is the reputation temperature every new profile starts at.
	DefaultReputation = 50.0

	// DefaultAvatarID is the outfit a new profile wears.
	DefaultAvatarID = "img_avatar_police"

	MinBirthYear = 1900
)

var (
	ErrNotFound      = errors.New("user: not found")
	ErrAlreadyExists = errors.New("user: username already registered")
	ErrNicknameTaken = errors.New("user: nickname already taken")
)

// Profile is the public state of a player.
type Profile struct {

	// ID is the server-assigned UUID.
	ID string `json:"id"`

	Username string `json:"username"`
	Nickname string `json:"nickname"`

	// BirthYear drives the age bounds a meeting can set.
	BirthYear int `json:"birthYear"`

	Level      int     `json:"level"`
	Exp        int     `json:"exp"`
	Reputation float64 `json:"reputation"`

	AvatarID     string   `json:"avatarId"`
	AccessoryIDs []string `json:"accessoryIds"`

	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt,omitzero"`
}

// NewProfile returns a fresh level-1 profile.
func NewProfile(id, username, nickname string, birthYear int, now time.Time) Profile {
	return Profile{
		ID:           id,
		Username:     username,
		Nickname:     nickname,
		BirthYear:    birthYear,
		Level:        1,
		Exp:          0,
		Reputation:   DefaultReputation,
		AvatarID:     DefaultAvatarID,
		AccessoryIDs: []string{},
		CreatedAt:    now,
	}
}

// Age is the player's age in the given year, counted the simple way (current year minus
// birth year) the meeting age bounds use.
func (p Profile) Age(now time.Time) int {
	return now.Year() - p.BirthYear
}

// NextThreshold is the experience needed to leave the current level.
func (p Profile) NextThreshold() int {
	return level.Threshold(p.Level)
}

// AwardExperience applies the leveling rule and reports whether at least one level was gained.
func (p Profile) AwardExperience(earned int) (Profile, bool) {
	before := p.Level
	p.Level, p.Exp = level.Award(p.Level, p.Exp, earned)
	return p, p.Level > before
}

// Credentials is what login needs; the hash never leaves the store layer otherwise.
type Credentials struct {
	UserID       string
	PasswordHash string
}

// Store persists profiles. UpdateProgress runs fn inside a compare-and-set transaction on
// the profile row so concurrent awards never lose an update.
type Store interface {
	CreateUser(ctx context.Context, p Profile, passwordHash string) error
	GetUserByID(ctx context.Context, id string) (Profile, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]Profile, error)
	GetCredentials(ctx context.Context, username string) (Credentials, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
	UpdateOutfit(ctx context.Context, id, avatarID string, accessoryIDs []string) (Profile, error)
	UpdateProgress(ctx context.Context, id string, fn func(Profile) Profile) (Profile, error)
	AdjustReputation(ctx context.Context, ids []string, delta float64) error
}
