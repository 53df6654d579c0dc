package meeting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policethief/internal/app/game"
)

var base = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func listed(id, place string, at time.Duration, people int, cutoff float64, minAge int, party bool) *Meeting {
	pids := make([]string, people)
	for i := range pids {
		pids[i] = id + "-p" + string(rune('a'+i))
	}
	return &Meeting{
		ID:               id,
		PlaceName:        place,
		ScheduledAt:      base.Add(at),
		ParticipantIDs:   pids,
		ReputationCutoff: cutoff,
		MinAge:           minAge,
		HasAfterParty:    party,
		Status:           game.StatusRecruiting,
	}
}

func ids(ms []*Meeting) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func fixtures() []*Meeting {
	ended := listed("gone", "Seoul Gangnam", time.Hour, 1, 0, 20, true)
	ended.Status = game.StatusEnded

	return []*Meeting{
		listed("m1", "Seoul Gangnam Station", 3*time.Hour, 2, 36.5, 25, false),
		listed("m2", "Busan Haeundae", 1*time.Hour, 5, 50, 30, true),
		listed("m3", "Seoul Hongdae", 2*time.Hour, 3, 70, 20, true),
		ended,
	}
}

func TestListQuerySorts(t *testing.T) {
	tests := []struct {
		sort SortOrder
		want []string
	}{
		{sort: SortByDate, want: []string{"m2", "m3", "m1"}},
		{sort: SortByParticipants, want: []string{"m2", "m3", "m1"}},
		{sort: SortByCutoff, want: []string{"m3", "m2", "m1"}},
		{sort: SortByMinAge, want: []string{"m3", "m1", "m2"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			got := ListQuery{Sort: tt.sort}.Apply(fixtures())
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestListQueryFilters(t *testing.T) {
	assert.Equal(t, []string{"m3", "m1"}, ids(ListQuery{Region: "seoul"}.Apply(fixtures())))
	assert.Equal(t, []string{"m1"}, ids(ListQuery{Region: "gangnam station"}.Apply(fixtures())))
	assert.Equal(t, []string{"m2", "m3"}, ids(ListQuery{AfterPartyOnly: true}.Apply(fixtures())))
	assert.Equal(t, []string{"m2", "m3"}, ids(ListQuery{MinCutoff: 50}.Apply(fixtures())))
	assert.Equal(t, []string{"m2"}, ids(ListQuery{Limit: 1}.Apply(fixtures())))
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortByCutoff, ParseSortOrder("cutoff"))
	assert.Equal(t, SortByDate, ParseSortOrder(""))
	assert.Equal(t, SortByDate, ParseSortOrder("bogus"))
}

func validDraft() Draft {
	return Draft{
		Title:       "Chase",
		PlaceName:   "Park",
		ScheduledAt: base.Add(time.Hour),
		Capacity:    10,
		MinAge:      20,
		MaxAge:      30,
	}
}

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Draft)
		ok     bool
	}{
		{name: "valid", mutate: func(d *Draft) {}, ok: true},
		{name: "half step cutoff", mutate: func(d *Draft) { d.ReputationCutoff = 36.5 }, ok: true},
		{name: "quarter step cutoff", mutate: func(d *Draft) { d.ReputationCutoff = 36.25 }},
		{name: "blank title", mutate: func(d *Draft) { d.Title = "   " }},
		{name: "past", mutate: func(d *Draft) { d.ScheduledAt = base.Add(-time.Hour) }},
		{name: "capacity", mutate: func(d *Draft) { d.Capacity = 1 }},
		{name: "ages inverted", mutate: func(d *Draft) { d.MinAge, d.MaxAge = 30, 20 }},
		{name: "round minutes off step", mutate: func(d *Draft) { d.RoundMinutes = 12 }},
		{name: "round minutes set", mutate: func(d *Draft) { d.RoundMinutes = 30 }, ok: true},
		{name: "too many rounds", mutate: func(d *Draft) { d.TotalRounds = 11 }},
		{name: "latitude", mutate: func(d *Draft) { d.Latitude = 91 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			err := d.Validate(base)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidDraft)
			}
		})
	}
}

func TestObserveExpiry(t *testing.T) {
	m := &Meeting{ScheduledAt: base, Status: game.StatusRecruiting}

	assert.False(t, m.ObserveExpiry(base.Add(game.ExpiryCutoff)))
	assert.True(t, m.ObserveExpiry(base.Add(game.ExpiryCutoff+time.Second)))
	assert.True(t, m.IsEnded())
	assert.False(t, m.ObserveExpiry(base.Add(24*time.Hour)), "already ended")
}

func TestCloneIsDeep(t *testing.T) {
	m := &Meeting{ParticipantIDs: []string{"a"}, CheckedInIDs: []string{"a"}, Roles: game.Assignment{"a": game.RolePolice}}
	c := m.Clone()

	c.ParticipantIDs[0] = "x"
	c.Roles["a"] = game.RoleThief

	assert.Equal(t, "a", m.ParticipantIDs[0])
	assert.Equal(t, game.RolePolice, m.Roles["a"])
}

func TestAttendanceQR(t *testing.T) {
	png, err := AttendanceQR("5f0c7a9e-1b4e-4d7a-9d1e-7e1a2b3c4d5e")
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
