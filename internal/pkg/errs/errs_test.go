package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policethief/internal/app/game"
	"policethief/internal/app/inquiry"
	"policethief/internal/app/meeting"
	"policethief/internal/app/user"
)

func TestNewErrorUsesTable(t *testing.T) {
	err := NewError(ErrMeetingFull)

	assert.Equal(t, ErrMeetingFull, err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "This meeting is full.", err.Message)
}

func TestNewErrorFormatsPlaceholders(t *testing.T) {
	err := NewError(ErrItemLocked, 21)
	assert.Equal(t, "Unlocks at Lv.21.", err.Message)
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	err := NewError(987654)
	assert.Equal(t, ErrUnknown, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestNewErrorHidesUnderlyingCause(t *testing.T) {
	err := NewError(ErrUnknown, errors.New("pq: connection refused"))
	assert.NotContains(t, err.Message, "connection refused")
}

func TestZeroStatusDefaultsToOK(t *testing.T) {
	assert.Equal(t, http.StatusOK, NewError(ErrSessionKicked).Status)
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("join: %w", NewError(ErrMeetingEnded))
	require.ErrorIs(t, wrapped, NewError(ErrMeetingEnded))
	assert.NotErrorIs(t, wrapped, NewError(ErrMeetingFull))
}

func TestEveryCodeHasMessage(t *testing.T) {
	for code, e := range errorMap {
		assert.Equal(t, code, e.Code, "code key and value disagree")
		assert.NotEmpty(t, e.Message, "code %d has no message", code)
	}
}

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "wrapped not found", err: fmt.Errorf("load: %w", meeting.ErrNotFound), code: ErrMeetingNotFound},
		{name: "round guard", err: meeting.ErrRoundNotPlaying, code: ErrRoundNotPlaying},
		{name: "players", err: game.ErrNotEnoughPlayers, code: ErrNotEnoughPlayers},
		{name: "nickname", err: user.ErrNicknameTaken, code: ErrNicknameTaken},
		{name: "inquiry", err: inquiry.ErrInvalidReason, code: ErrInquiryReasonInvalid},
		{name: "passthrough", err: NewError(ErrRateLimitExceeded), code: ErrRateLimitExceeded},
		{name: "unknown", err: errors.New("disk on fire"), code: ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, FromDomain(tt.err).Code)
		})
	}

	assert.Nil(t, FromDomain(nil))
}

func TestFromDomainFormatsDetails(t *testing.T) {
	locked := FromDomain(&user.LockedError{ItemID: "img_avatar_judge", UnlockLevel: 40})
	require.Equal(t, ErrItemLocked, locked.Code)
	assert.Equal(t, "Unlocks at Lv.40.", locked.Message)

	many := FromDomain(inquiry.ErrTooManyAttachments)
	assert.Equal(t, "Attach at most 3 images.", many.Message)
}
