package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreshold(t *testing.T) {
	assert.Equal(t, 100, Threshold(1))
	assert.Equal(t, 400, Threshold(4))
}

func TestAward(t *testing.T) {
	tests := []struct {
		name             string
		lvl, exp, earned int
		wantLvl, wantExp int
	}{
		{name: "no level up", lvl: 1, exp: 0, earned: 10, wantLvl: 1, wantExp: 10},
		{name: "single level up", lvl: 1, exp: 90, earned: 30, wantLvl: 2, wantExp: 20},
		{name: "exact threshold", lvl: 1, exp: 50, earned: 50, wantLvl: 2, wantExp: 0},
		{name: "multi level jump", lvl: 2, exp: 50, earned: 500, wantLvl: 4, wantExp: 50},
		{name: "zero earned", lvl: 7, exp: 3, earned: 0, wantLvl: 7, wantExp: 3},
		{name: "round win", lvl: 3, exp: 280, earned: 50, wantLvl: 4, wantExp: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLvl, gotExp := Award(tt.lvl, tt.exp, tt.earned)
			assert.Equal(t, tt.wantLvl, gotLvl)
			assert.Equal(t, tt.wantExp, gotExp)
		})
	}
}

// The resulting level is the unique L' whose cumulative threshold range contains the
// player's lifetime experience.
func TestAwardMatchesCumulativeThresholds(t *testing.T) {
	for lvl := 1; lvl <= 12; lvl++ {
		for exp := 0; exp < Threshold(lvl); exp += 37 {
			for _, earned := range []int{0, 1, 10, 50, 99, 100, 250, 1000, 5000} {
				gotLvl, gotExp := Award(lvl, exp, earned)
				total := Total(lvl, exp) + earned

				assert.LessOrEqual(t, Total(gotLvl, 0), total)
				assert.Less(t, total, Total(gotLvl+1, 0))
				assert.Equal(t, total, Total(gotLvl, gotExp))
				assert.GreaterOrEqual(t, gotExp, 0)
				assert.Less(t, gotExp, Threshold(gotLvl))
			}
		}
	}
}

func TestAwardNormalisesInputs(t *testing.T) {
	lvl, exp := Award(0, -5, 10)
	assert.Equal(t, 1, lvl)
	assert.Equal(t, 10, exp)
}
