package cogsched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAvailabilityWindow(t *testing.T) {
	p := DefaultProfile()

	avail, err := buildAvailability("09:00", "17:00", p)
	require.NoError(t, err)
	assert.Equal(t, Interval{Start: 540, End: 1020}, avail.window)
	require.Len(t, avail.free, 1)
	assert.Equal(t, 480, avail.FreeMinutes())
}

func TestBuildAvailabilityInvalidWindow(t *testing.T) {
	p := DefaultProfile()

	_, err := buildAvailability("18:00", "09:00", p)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = buildAvailability("09:00", "09:00", p)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestBuildAvailabilitySubtractsCommitments(t *testing.T) {
	p := DefaultProfile()
	p.DailyCommitments = []string{"10:00-11:00 Math Lecture", "14:00-15:00 Standup"}
	p.BreakPreferences = []string{"12:30-13:00"}

	avail, err := buildAvailability("09:00", "17:00", p)
	require.NoError(t, err)

	require.Len(t, avail.fixed, 3)
	assert.Equal(t, "Math Lecture", avail.fixed[0].Label)
	assert.Equal(t, "Break", avail.fixed[1].Label)

	require.Len(t, avail.free, 4)
	assert.Equal(t, Interval{Start: 540, End: 600}, avail.free[0])
	assert.Equal(t, Interval{Start: 660, End: 750}, avail.free[1])
	assert.Equal(t, Interval{Start: 780, End: 840}, avail.free[2])
	assert.Equal(t, Interval{Start: 900, End: 1020}, avail.free[3])
}

func TestBuildAvailabilityDropsOutsideWindow(t *testing.T) {
	p := DefaultProfile()
	p.DailyCommitments = []string{"07:00-08:00 Gym", "16:30-18:00 Dinner"}

	avail, err := buildAvailability("09:00", "17:00", p)
	require.NoError(t, err)

	// Gym is gone; dinner is clamped to the window edge.
	require.Len(t, avail.fixed, 1)
	assert.Equal(t, Interval{Start: 990, End: 1020}, avail.fixed[0].Interval)
}

func TestBuildAvailabilityMergesOverlaps(t *testing.T) {
	p := DefaultProfile()
	p.DailyCommitments = []string{"10:00-11:00 Lecture A", "10:30-11:30 Lecture B"}
	p.BreakPreferences = []string{"10:45-11:15"}

	avail, err := buildAvailability("09:00", "17:00", p)
	require.NoError(t, err)

	require.Len(t, avail.fixed, 1)
	assert.Equal(t, Interval{Start: 600, End: 690}, avail.fixed[0].Interval)
	// The later commitment's label wins; the break never outranks one.
	assert.Equal(t, "Lecture B", avail.fixed[0].Label)
	assert.Equal(t, fixedCommitment, avail.fixed[0].kind)
}

func TestBuildAvailabilityNoFreeTime(t *testing.T) {
	p := DefaultProfile()
	p.DailyCommitments = []string{"09:00-17:00 Conference"}

	_, err := buildAvailability("09:00", "17:00", p)
	assert.ErrorIs(t, err, ErrNoFreeTime)
}
