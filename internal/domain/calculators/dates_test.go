package calculators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpectedHatchDate_RollsOverYear(t *testing.T) {
	got := ExpectedHatchDate(day(2023, time.December, 20), 21)
	assert.Equal(t, day(2024, time.January, 10), got)
}

func TestLockdownDate_PrecedesHatchByLockdownDays(t *testing.T) {
	start := day(2023, time.December, 20)
	for incubation := 0; incubation <= 40; incubation++ {
		for lockdown := 0; lockdown <= incubation; lockdown++ {
			hatch := ExpectedHatchDate(start, incubation)
			lock := LockdownDate(start, incubation, lockdown)
			assert.Equal(t, hatch, lock.AddDate(0, 0, lockdown), "incubation=%d lockdown=%d", incubation, lockdown)
		}
	}
}

func TestLockdownDate_NotClamped(t *testing.T) {
	start := day(2024, time.March, 10)
	assert.Equal(t, start, LockdownDate(start, 3, 3))
	assert.Equal(t, day(2024, time.March, 8), LockdownDate(start, 3, 5))
}

func TestDiscardDate_LeapYear(t *testing.T) {
	assert.Equal(t, day(2024, time.March, 1), DiscardDate(day(2024, time.February, 28), 2))
	assert.Equal(t, day(2023, time.March, 2), DiscardDate(day(2023, time.February, 28), 2))
}

func TestComputeMilestones(t *testing.T) {
	m := ComputeMilestones(day(2024, time.January, 1), 21, 3, 2)
	assert.Equal(t, day(2024, time.January, 22), m.ExpectedHatch)
	assert.Equal(t, day(2024, time.January, 19), m.Lockdown)
	assert.Equal(t, day(2024, time.January, 24), m.Discard)
}

func TestDateOnly_IgnoresTimeOfDayAndZone(t *testing.T) {
	zone := time.FixedZone("UTC+5", 5*3600)
	late := time.Date(2024, time.June, 3, 23, 59, 0, 0, zone)
	assert.Equal(t, day(2024, time.June, 3), DateOnly(late))
	assert.Equal(t, day(2024, time.June, 24), ExpectedHatchDate(late, 21))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2024, time.June, 3, 1, 0, 0, 0, time.UTC)
	b := time.Date(2024, time.June, 3, 22, 0, 0, 0, time.UTC)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, a.AddDate(1, 0, 0)))
	assert.False(t, SameDay(a, a.AddDate(0, 0, 1)))
}
