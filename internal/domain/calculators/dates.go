// Package calculators holds the pure incubation date and efficiency arithmetic.
package calculators

import "time"

// DateOnly truncates t to its calendar date at midnight UTC. Only the year, month and
// day of t participate; its time of day and location are dropped.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays moves a calendar date by n days, rolling months, years and leap days.
func AddDays(date time.Time, n int) time.Time {
	return DateOnly(date).AddDate(0, 0, n)
}

// ExpectedHatchDate is startDate + incubationDays.
func ExpectedHatchDate(startDate time.Time, incubationDays int) time.Time {
	return AddDays(startDate, incubationDays)
}

// LockdownDate precedes the expected hatch date by lockdownDays. No clamping is
// applied: lockdownDays >= incubationDays yields a date on or before startDate.
func LockdownDate(startDate time.Time, incubationDays, lockdownDays int) time.Time {
	return AddDays(startDate, incubationDays-lockdownDays)
}

// DiscardDate is expectedHatchDate + discardGraceDays.
func DiscardDate(expectedHatchDate time.Time, discardGraceDays int) time.Time {
	return AddDays(expectedHatchDate, discardGraceDays)
}

// Milestones bundles the three derived dates of a batch.
type Milestones struct {
	ExpectedHatch time.Time `json:"expected_hatch_date"`
	Lockdown      time.Time `json:"lockdown_date"`
	Discard       time.Time `json:"discard_date"`
}

// ComputeMilestones derives every milestone from a start date and breed parameters.
func ComputeMilestones(startDate time.Time, incubationDays, lockdownDays, discardGraceDays int) Milestones {
	hatch := ExpectedHatchDate(startDate, incubationDays)
	return Milestones{
		ExpectedHatch: hatch,
		Lockdown:      LockdownDate(startDate, incubationDays, lockdownDays),
		Discard:       DiscardDate(hatch, discardGraceDays),
	}
}

// SameDay compares calendar year and day-of-year only.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
