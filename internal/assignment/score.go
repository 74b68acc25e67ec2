package assignment

// ScorePolicy holds the tunable weights of the candidate scoring function.
// The zero value disables every term; use DefaultScorePolicy for the stock
// weighting.
type ScorePolicy struct {
	// PreferenceBonus is added when the candidate lists the task's category
	// among their preferred categories.
	PreferenceBonus float64
	// LoadBalanceWeight scales the inverse-load term, which favours
	// physicians with little accumulated heaviness.
	LoadBalanceWeight float64
	// CapacityWeight scales the remaining-capacity fraction, which favours
	// physicians far from their fairness ceiling.
	CapacityWeight float64
	// ConsecutivePenalty is subtracted when the candidate worked the same
	// category on the immediately preceding schedulable date.
	ConsecutivePenalty float64
}

// DefaultScorePolicy returns the stock weights.
func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		PreferenceBonus:    10,
		LoadBalanceWeight:  5,
		CapacityWeight:     5,
		ConsecutivePenalty: 3,
	}
}

// Score rates one candidate for one task. Higher is better. remaining is the
// candidate's remaining capacity before this assignment and ceiling their
// personal fairness ceiling; the capacity term degrades gracefully to zero
// when the roster has no ceiling (basis zero) or the candidate is already
// over it.
func (sp ScorePolicy) Score(preferred bool, cumulativeHeaviness int, remaining, ceiling float64, prevSameCategory bool) float64 {
	score := sp.LoadBalanceWeight / float64(1+cumulativeHeaviness)
	if preferred {
		score += sp.PreferenceBonus
	}
	if ceiling > 0 {
		fraction := remaining / ceiling
		if fraction < 0 {
			fraction = 0
		}
		score += sp.CapacityWeight * fraction
	}
	if prevSameCategory {
		score -= sp.ConsecutivePenalty
	}
	return score
}
