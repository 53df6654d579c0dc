package meeting

import (
	"cmp"
	"slices"
	"strings"
)

// SortOrder selects how listed meetings are ordered.
type SortOrder string

const (
	SortByDate         SortOrder = "date"
	SortByParticipants SortOrder = "participants"
	SortByCutoff       SortOrder = "cutoff"
	SortByMinAge       SortOrder = "minAge"
)

// ParseSortOrder falls back to SortByDate for empty or unknown input.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(s); o {
	case SortByParticipants, SortByCutoff, SortByMinAge:
		return o
	default:
		return SortByDate
	}
}

// ListQuery narrows the recruiting list.
type ListQuery struct {
	// Region matches as a whitespace-insensitive substring of the place name.
	Region         string
	AfterPartyOnly bool

	// MinCutoff keeps meetings whose reputation cutoff is at least this value.
	MinCutoff float64

	Sort  SortOrder
	Limit int
}

// Matches reports whether m passes every filter. Ended meetings never match.
func (q ListQuery) Matches(m *Meeting) bool {
	if m.IsEnded() {
		return false
	}
	if q.AfterPartyOnly && !m.HasAfterParty {
		return false
	}
	if m.ReputationCutoff < q.MinCutoff {
		return false
	}
	if region := compact(q.Region); region != "" && !strings.Contains(compact(m.PlaceName), region) {
		return false
	}
	return true
}

// Apply filters and orders meetings in place and returns the surviving prefix.
func (q ListQuery) Apply(ms []*Meeting) []*Meeting {
	out := ms[:0]
	for _, m := range ms {
		if q.Matches(m) {
			out = append(out, m)
		}
	}

	byDate := func(a, b *Meeting) int { return a.ScheduledAt.Compare(b.ScheduledAt) }

	var less func(a, b *Meeting) int
	switch q.Sort {
	case SortByParticipants:
		less = func(a, b *Meeting) int { return cmp.Compare(len(b.ParticipantIDs), len(a.ParticipantIDs)) }
	case SortByCutoff:
		less = func(a, b *Meeting) int { return cmp.Compare(b.ReputationCutoff, a.ReputationCutoff) }
	case SortByMinAge:
		less = func(a, b *Meeting) int { return cmp.Compare(a.MinAge, b.MinAge) }
	default:
		less = byDate
	}

	slices.SortStableFunc(out, func(a, b *Meeting) int {
		if c := less(a, b); c != 0 {
			return c
		}
		return byDate(a, b)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func compact(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
