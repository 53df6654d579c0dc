package game

import (
	"slices"
	"time"
)

// MeetingStatus is the coarse state of a meeting.
type MeetingStatus string

const (
	// StatusRecruiting covers everything before the meeting is closed: recruiting,
	// checking in and playing rounds.
	StatusRecruiting MeetingStatus = "RECRUITING"

	// StatusEnded is terminal.
	StatusEnded MeetingStatus = "ENDED"
)

// RoundStatus tracks the current round inside a live meeting.
type RoundStatus string

const (
	// RoundIdle means no round has been started yet.
	RoundIdle RoundStatus = ""

	RoundPlaying  RoundStatus = "PLAYING"
	RoundFinished RoundStatus = "FINISHED"
)

// ExpiryCutoff is how long after its scheduled start a meeting may stay open.
const ExpiryCutoff = 6 * time.Hour

// Attendance and closing rewards.
const (
	AttendanceExperience = 10
	AttendanceReputation = 0.5
	HostEndReputation    = 1.0
	NoShowPenalty        = -3.0
)

// IsExpired reports whether a meeting scheduled at scheduledAt is past its cutoff at now.
func IsExpired(scheduledAt, now time.Time) bool {
	if scheduledAt.IsZero() {
		return false
	}
	return now.After(scheduledAt.Add(ExpiryCutoff))
}

// AcceptCheckIn reports whether a scanned attendance code admits the scanner to the
// meeting. The code is the meeting identifier itself.
func AcceptCheckIn(scanned, meetingID string) bool {
	return meetingID != "" && scanned == meetingID
}

// NoShows lists participants who never checked in, excluding the host.
func NoShows(participants, checkedIn []string, hostID string) []string {
	var out []string
	for _, id := range participants {
		if id == hostID || slices.Contains(checkedIn, id) || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// ClosingReputation returns the reputation deltas applied when the host ends a meeting:
// the host earns HostEndReputation and every no-show receives NoShowPenalty.
func ClosingReputation(participants, checkedIn []string, hostID string) map[string]float64 {
	deltas := make(map[string]float64)
	if hostID != "" {
		deltas[hostID] = HostEndReputation
	}
	for _, id := range NoShows(participants, checkedIn, hostID) {
		deltas[id] = NoShowPenalty
	}
	return deltas
}

// RoundDeadline returns when a round started at start with the given length runs out.
func RoundDeadline(start time.Time, minutes int) time.Time {
	if start.IsZero() {
		return time.Time{}
	}
	return start.Add(time.Duration(minutes) * time.Minute)
}
