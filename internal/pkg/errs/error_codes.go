/*
Package errs defines the business error codes shared by the HTTP API and the WebSocket protocol.

Codes are grouped by thousand: 1xxx request handling, 2xxx meetings and rounds,
3xxx users and sessions, 4xxx support inquiries, 5xxx internal failures.
*/
package errs

// 1xxx: request handling
const (
	ErrInvalidParams         = 1001
	ErrUnsupportedMediaType  = 1002
	ErrInvalidJSONFormat     = 1003
	ErrExtraContentInBody    = 1004
	ErrRequestEntityTooLarge = 1006
	ErrRateLimitExceeded     = 1007
)

// 2xxx: meetings, attendance and rounds
const (
	// ErrMeetingNotFound indicates that no meeting exists with the requested identifier.
	ErrMeetingNotFound = 2101

	// ErrMeetingEnded indicates the meeting was ended by its host or expired.
	ErrMeetingEnded = 2102

	// ErrMeetingFull indicates the participant list already reached capacity.
	ErrMeetingFull = 2103

	// ErrAlreadyJoined indicates the caller is already a participant.
	ErrAlreadyJoined = 2104

	// ErrReputationTooLow indicates the caller's reputation is below the meeting cutoff.
	ErrReputationTooLow = 2105

	// ErrAgeOutOfRange indicates the caller's age falls outside the meeting's bounds.
	ErrAgeOutOfRange = 2106

	// ErrNotParticipant indicates the caller has not joined the meeting.
	ErrNotParticipant = 2107

	// ErrNotHost indicates the operation is reserved for the meeting host.
	ErrNotHost = 2108

	// ErrInvalidMeetingDraft indicates the meeting creation input failed validation.
	ErrInvalidMeetingDraft = 2109

	// ErrInvalidSettings indicates the round settings failed validation.
	ErrInvalidSettings = 2110

	// ErrCheckInCodeMismatch indicates the scanned attendance code is not this meeting's code.
	ErrCheckInCodeMismatch = 2201

	// ErrAlreadyCheckedIn indicates the caller is already on the checked-in list.
	ErrAlreadyCheckedIn = 2202

	// ErrNotEnoughPlayers indicates fewer than two participants are checked in.
	ErrNotEnoughPlayers = 2301

	// ErrRoundInProgress indicates a round is already being played.
	ErrRoundInProgress = 2302

	// ErrRoundNotPlaying indicates there is no round to finish.
	ErrRoundNotPlaying = 2303

	// ErrInvalidWinner indicates the declared winner is not a known role.
	ErrInvalidWinner = 2304

	// ErrMessageContentTooLong indicates a chat message exceeded the size limit.
	ErrMessageContentTooLong = 2401

	// ErrMessageEmpty indicates a chat message had no text.
	ErrMessageEmpty = 2402
)

// 3xxx: users, sessions and profiles
const (
	ErrUnauthorized       = 3001
	ErrAlreadyLoggedIn    = 3002
	ErrInvalidUsername    = 3003
	ErrInvalidPassword    = 3004
	ErrUserAlreadyExists  = 3005
	ErrNicknameTaken      = 3006
	ErrInvalidNickname    = 3007
	ErrInvalidBirthYear   = 3008
	ErrInvalidCredentials = 3009
	ErrUserNotFound       = 3010
	ErrItemLocked         = 3101
	ErrGearIncompatible   = 3102
	ErrUnknownItem        = 3103
	ErrUnknownAlarmType   = 3201
	ErrSessionKicked      = 3301
)

// 4xxx: support inquiries and attachments
const (
	ErrInquiryReasonInvalid   = 4001
	ErrInquiryContentInvalid  = 4002
	ErrAttachmentCountInvalid = 4003
	ErrAttachmentKeyInvalid   = 4004
	ErrFileSizeTooLarge       = 4005
	ErrFileTypeInvalid        = 4006
	ErrStorageUnavailable     = 4007
)

// 5xxx: internal failures
const (
	// ErrUnknown is the catch-all for unclassified server failures.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates the object storage rejected a presign or delete call.
	ErrFileStorageFailed = 5001
)
