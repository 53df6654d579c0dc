// Package metrics exposes Prometheus collectors for the meeting lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"policethief/internal/app/game"
	"policethief/internal/app/meeting"
)

const namespace = "policethief"

var _ meeting.Recorder = (*Lifecycle)(nil)

// Lifecycle counts meeting, attendance and round events. It satisfies meeting.Recorder.
type Lifecycle struct {
	meetingsCreated prometheus.Counter
	meetingsEnded   *prometheus.CounterVec
	playersJoined   prometheus.Counter
	checkIns        prometheus.Counter

	roundsStarted prometheus.Counter
	roundPlayers  prometheus.Histogram
	roundsSettled *prometheus.CounterVec
	roundMinutes  prometheus.Histogram
	awardFailures prometheus.Counter
}

// NewLifecycle registers the collectors on reg.
func NewLifecycle(reg prometheus.Registerer) *Lifecycle {
	factory := promauto.With(reg)

	return &Lifecycle{
		meetingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_created_total",
			Help:      "Meetings created.",
		}),
		meetingsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_ended_total",
			Help:      "Meetings closed, by cause (host or expired).",
		}, []string{"cause"}),
		playersJoined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_joined_total",
			Help:      "Successful meeting joins.",
		}),
		checkIns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_ins_total",
			Help:      "Accepted attendance check-ins.",
		}),
		roundsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Rounds dealt.",
		}),
		roundPlayers: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_players",
			Help:      "Checked-in players per dealt round.",
			Buckets:   []float64{2, 4, 6, 8, 12, 16, 24, 32, 50, 100},
		}),
		roundsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_settled_total",
			Help:      "Settled rounds, by winning side.",
		}, []string{"winner"}),
		roundMinutes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_played_minutes",
			Help:      "Whole minutes a settled round lasted.",
			Buckets:   []float64{1, 5, 10, 15, 20, 30, 45, 60, 90, 120},
		}),
		awardFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "experience_award_failures_total",
			Help:      "Per-participant experience awards that could not be applied.",
		}),
	}
}

func (l *Lifecycle) MeetingCreated()  { l.meetingsCreated.Inc() }
func (l *Lifecycle) PlayerJoined()    { l.playersJoined.Inc() }
func (l *Lifecycle) PlayerCheckedIn() { l.checkIns.Inc() }

func (l *Lifecycle) RoundStarted(players int) {
	l.roundsStarted.Inc()
	l.roundPlayers.Observe(float64(players))
}

func (l *Lifecycle) RoundSettled(winner game.Role, minutes int) {
	l.roundsSettled.WithLabelValues(string(winner)).Inc()
	l.roundMinutes.Observe(float64(minutes))
}

func (l *Lifecycle) ExperienceAwardFailed() { l.awardFailures.Inc() }

func (l *Lifecycle) MeetingEnded(expired bool) {
	cause := "host"
	if expired {
		cause = "expired"
	}
	l.meetingsEnded.WithLabelValues(cause).Inc()
}
