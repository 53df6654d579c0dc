package errs

import "net/http"

// errorMap holds the client-facing message and HTTP status for every code.
// A zero Status is reported as 200 OK with the business code in the envelope.
var errorMap = map[int]CustomError{
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Malformed JSON body.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrMeetingNotFound:       {Code: ErrMeetingNotFound, Message: "Meeting not found.", Status: http.StatusNotFound},
	ErrMeetingEnded:          {Code: ErrMeetingEnded, Message: "This meeting has already ended.", Status: http.StatusConflict},
	ErrMeetingFull:           {Code: ErrMeetingFull, Message: "This meeting is full.", Status: http.StatusConflict},
	ErrAlreadyJoined:         {Code: ErrAlreadyJoined, Message: "You already joined this meeting.", Status: http.StatusConflict},
	ErrReputationTooLow:      {Code: ErrReputationTooLow, Message: "Your reputation is below this meeting's cutoff.", Status: http.StatusForbidden},
	ErrAgeOutOfRange:         {Code: ErrAgeOutOfRange, Message: "Your age is outside this meeting's range.", Status: http.StatusForbidden},
	ErrNotParticipant:        {Code: ErrNotParticipant, Message: "Join the meeting first.", Status: http.StatusForbidden},
	ErrNotHost:               {Code: ErrNotHost, Message: "Only the host can do that.", Status: http.StatusForbidden},
	ErrInvalidMeetingDraft:   {Code: ErrInvalidMeetingDraft, Message: "Please fill in every meeting option.", Status: http.StatusBadRequest},
	ErrInvalidSettings:       {Code: ErrInvalidSettings, Message: "Invalid game settings.", Status: http.StatusBadRequest},
	ErrCheckInCodeMismatch:   {Code: ErrCheckInCodeMismatch, Message: "This code belongs to a different meeting.", Status: http.StatusBadRequest},
	ErrAlreadyCheckedIn:      {Code: ErrAlreadyCheckedIn, Message: "You are already checked in.", Status: http.StatusConflict},
	ErrNotEnoughPlayers:      {Code: ErrNotEnoughPlayers, Message: "At least 2 players must be checked in.", Status: http.StatusConflict},
	ErrRoundInProgress:       {Code: ErrRoundInProgress, Message: "A round is already in progress.", Status: http.StatusConflict},
	ErrRoundNotPlaying:       {Code: ErrRoundNotPlaying, Message: "There is no round in progress.", Status: http.StatusConflict},
	ErrInvalidWinner:         {Code: ErrInvalidWinner, Message: "Winner must be POLICE or THIEF.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrMessageEmpty:          {Code: ErrMessageEmpty, Message: "Message is empty.", Status: http.StatusBadRequest},

	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrAlreadyLoggedIn:    {Code: ErrAlreadyLoggedIn, Message: "You are already signed in.", Status: http.StatusConflict},
	ErrInvalidUsername:    {Code: ErrInvalidUsername, Message: "Invalid username.", Status: http.StatusBadRequest},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Invalid password.", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username is already taken.", Status: http.StatusConflict},
	ErrNicknameTaken:      {Code: ErrNicknameTaken, Message: "This nickname already exists.", Status: http.StatusConflict},
	ErrInvalidNickname:    {Code: ErrInvalidNickname, Message: "Invalid nickname.", Status: http.StatusBadRequest},
	ErrInvalidBirthYear:   {Code: ErrInvalidBirthYear, Message: "Birth year must have 4 digits.", Status: http.StatusBadRequest},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect username or password.", Status: http.StatusUnauthorized},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrItemLocked:         {Code: ErrItemLocked, Message: "Unlocks at Lv.%d.", Status: http.StatusForbidden},
	ErrGearIncompatible:   {Code: ErrGearIncompatible, Message: "This avatar cannot wear that gear.", Status: http.StatusBadRequest},
	ErrUnknownItem:        {Code: ErrUnknownItem, Message: "Unknown avatar item.", Status: http.StatusBadRequest},
	ErrUnknownAlarmType:   {Code: ErrUnknownAlarmType, Message: "Unknown notification type.", Status: http.StatusBadRequest},
	ErrSessionKicked:      {Code: ErrSessionKicked, Message: "You were signed in on another device."},

	ErrInquiryReasonInvalid:   {Code: ErrInquiryReasonInvalid, Message: "Please choose a reason.", Status: http.StatusBadRequest},
	ErrInquiryContentInvalid:  {Code: ErrInquiryContentInvalid, Message: "Please enter the details.", Status: http.StatusBadRequest},
	ErrAttachmentCountInvalid: {Code: ErrAttachmentCountInvalid, Message: "Attach at most %d images.", Status: http.StatusBadRequest},
	ErrAttachmentKeyInvalid:   {Code: ErrAttachmentKeyInvalid, Message: "Invalid attachment.", Status: http.StatusBadRequest},
	ErrFileSizeTooLarge:       {Code: ErrFileSizeTooLarge, Message: "File is too large.", Status: http.StatusBadRequest},
	ErrFileTypeInvalid:        {Code: ErrFileTypeInvalid, Message: "Only JPEG, PNG or WebP images are allowed.", Status: http.StatusBadRequest},
	ErrStorageUnavailable:     {Code: ErrStorageUnavailable, Message: "Attachments are not available right now.", Status: http.StatusServiceUnavailable},

	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
}
