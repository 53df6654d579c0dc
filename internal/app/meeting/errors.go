package meeting

import "errors"

var (
	ErrEnded            = errors.New("meeting: meeting has ended")
	ErrFull             = errors.New("meeting: meeting is full")
	ErrAlreadyJoined    = errors.New("meeting: already joined")
	ErrReputationTooLow = errors.New("meeting: reputation below the meeting cutoff")
	ErrAgeOutOfRange    = errors.New("meeting: age outside the meeting bounds")
	ErrNotParticipant   = errors.New("meeting: not a participant")
	ErrNotHost          = errors.New("meeting: only the host may do this")

	ErrCheckInMismatch  = errors.New("meeting: attendance code does not match")
	ErrAlreadyCheckedIn = errors.New("meeting: already checked in")

	ErrRoundInProgress = errors.New("meeting: a round is already playing")
	ErrRoundNotPlaying = errors.New("meeting: no round is playing")

	ErrMessageEmpty   = errors.New("meeting: message is empty")
	ErrMessageTooLong = errors.New("meeting: message is too long")
)

// errUnchanged aborts an update that turned out to be a no-op.
var errUnchanged = errors.New("meeting: unchanged")
