package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policethief/internal/app/game"
)

func TestLifecycleCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := NewLifecycle(reg)

	l.MeetingCreated()
	l.PlayerJoined()
	l.PlayerJoined()
	l.PlayerCheckedIn()
	l.RoundStarted(4)
	l.RoundSettled(game.RoleThief, 12)
	l.RoundSettled(game.RoleThief, 3)
	l.RoundSettled(game.RolePolice, 15)
	l.ExperienceAwardFailed()
	l.MeetingEnded(false)
	l.MeetingEnded(true)
	l.MeetingEnded(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(l.meetingsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(l.playersJoined))
	assert.Equal(t, 2.0, testutil.ToFloat64(l.roundsSettled.WithLabelValues("THIEF")))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.roundsSettled.WithLabelValues("POLICE")))
	assert.Equal(t, 2.0, testutil.ToFloat64(l.meetingsEnded.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.awardFailures))

	expected := `
# HELP policethief_meetings_ended_total Meetings closed, by cause (host or expired).
# TYPE policethief_meetings_ended_total counter
policethief_meetings_ended_total{cause="expired"} 2
policethief_meetings_ended_total{cause="host"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "policethief_meetings_ended_total"))
}

func TestLifecycleRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewLifecycle(reg)
	assert.Panics(t, func() { NewLifecycle(reg) })
}
