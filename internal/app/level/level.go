/*
Package level implements the player leveling rule.

A player at level L needs Threshold(L) = 100·L experience to advance. Experience is kept
per level: after advancing, the bucket restarts with whatever overflowed.
*/
package level

// ExpPerLevel scales the per-level threshold.
const ExpPerLevel = 100

// Threshold returns the experience needed to leave level l.
func Threshold(l int) int {
	return l * ExpPerLevel
}

// Award adds earned experience to (lvl, exp) and returns the resulting level and
// in-level experience. Several levels can be gained at once; there is no level cap.
// Inputs below their minimums (level 1, zero experience) are raised to them first.
func Award(lvl, exp, earned int) (newLevel, newExp int) {
	if lvl < 1 {
		lvl = 1
	}
	if exp < 0 {
		exp = 0
	}
	if earned < 0 {
		earned = 0
	}

	newLevel, newExp = lvl, exp+earned
	for newExp >= Threshold(newLevel) {
		newExp -= Threshold(newLevel)
		newLevel++
	}

	return newLevel, newExp
}

// Total converts (lvl, exp) into lifetime experience: the sum of every threshold below
// lvl plus the in-level bucket.
func Total(lvl, exp int) int {
	// sum_{k=1}^{lvl-1} 100k
	return ExpPerLevel*(lvl-1)*lvl/2 + exp
}
