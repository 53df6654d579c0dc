package errs

import (
	"errors"

	"policethief/internal/app/game"
	"policethief/internal/app/inquiry"
	"policethief/internal/app/meeting"
	"policethief/internal/app/reminder"
	"policethief/internal/app/user"
)

var domainCodes = []struct {
	target error
	code   int
}{
	{meeting.ErrNotFound, ErrMeetingNotFound},
	{meeting.ErrEnded, ErrMeetingEnded},
	{meeting.ErrFull, ErrMeetingFull},
	{meeting.ErrAlreadyJoined, ErrAlreadyJoined},
	{meeting.ErrReputationTooLow, ErrReputationTooLow},
	{meeting.ErrAgeOutOfRange, ErrAgeOutOfRange},
	{meeting.ErrNotParticipant, ErrNotParticipant},
	{meeting.ErrNotHost, ErrNotHost},
	{meeting.ErrInvalidDraft, ErrInvalidMeetingDraft},
	{meeting.ErrInvalidSettings, ErrInvalidSettings},
	{meeting.ErrCheckInMismatch, ErrCheckInCodeMismatch},
	{meeting.ErrAlreadyCheckedIn, ErrAlreadyCheckedIn},
	{meeting.ErrRoundInProgress, ErrRoundInProgress},
	{meeting.ErrRoundNotPlaying, ErrRoundNotPlaying},
	{meeting.ErrMessageEmpty, ErrMessageEmpty},
	{meeting.ErrMessageTooLong, ErrMessageContentTooLong},
	{game.ErrNotEnoughPlayers, ErrNotEnoughPlayers},
	{game.ErrInvalidRole, ErrInvalidWinner},

	{user.ErrNotFound, ErrUserNotFound},
	{user.ErrAlreadyExists, ErrUserAlreadyExists},
	{user.ErrNicknameTaken, ErrNicknameTaken},
	{user.ErrUnknownItem, ErrUnknownItem},
	{user.ErrGearIncompatible, ErrGearIncompatible},
	{user.ErrDuplicateAccessory, ErrInvalidParams},
	{reminder.ErrUnknownAlarmType, ErrUnknownAlarmType},

	{inquiry.ErrInvalidReason, ErrInquiryReasonInvalid},
	{inquiry.ErrInvalidContent, ErrInquiryContentInvalid},
	{inquiry.ErrInvalidAttachment, ErrAttachmentKeyInvalid},
	{inquiry.ErrFileTooLarge, ErrFileSizeTooLarge},
	{inquiry.ErrInvalidFileType, ErrFileTypeInvalid},
}

// FromDomain translates an error returned by a domain package into its business error.
// Anything unrecognised becomes ErrUnknown and is logged with its cause.
func FromDomain(err error) *CustomError {
	if err == nil {
		return nil
	}

	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}

	var locked *user.LockedError
	if errors.As(err, &locked) {
		return NewError(ErrItemLocked, locked.UnlockLevel)
	}
	if errors.Is(err, inquiry.ErrTooManyAttachments) {
		return NewError(ErrAttachmentCountInvalid, inquiry.MaxAttachments)
	}

	for _, dc := range domainCodes {
		if errors.Is(err, dc.target) {
			return NewError(dc.code)
		}
	}
	return NewError(ErrUnknown, err)
}
