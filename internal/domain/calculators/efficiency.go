package calculators

// HatchRate is hatched / (eggsSet - discardedPreLockdown) * 100, or 0 when the
// denominator is not positive.
func HatchRate(hatchedCount, eggsSet, discardedPreLockdown int) float64 {
	denominator := eggsSet - discardedPreLockdown
	if denominator <= 0 {
		return 0
	}
	return float64(hatchedCount) / float64(denominator) * 100
}

// HatchOfSet is hatched / eggsSet * 100, or 0 when eggsSet is not positive.
func HatchOfSet(hatchedCount, eggsSet int) float64 {
	if eggsSet <= 0 {
		return 0
	}
	return float64(hatchedCount) / float64(eggsSet) * 100
}
