package cogsched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestTaskValidate(t *testing.T) {
	cfg := DefaultConfig()

	valid := Task{Title: "Study Calculus", Category: "math", Difficulty: 7, DurationMinutes: 60}
	require.NoError(t, valid.Validate(cfg))

	cases := []struct {
		name string
		task Task
	}{
		{"empty title", Task{Category: "math", Difficulty: 5, DurationMinutes: 60}},
		{"duration below quantum", Task{Title: "x", Category: "math", Difficulty: 5, DurationMinutes: 10}},
		{"difficulty too low", Task{Title: "x", Category: "math", Difficulty: 0, DurationMinutes: 60}},
		{"difficulty too high", Task{Title: "x", Category: "math", Difficulty: 11, DurationMinutes: 60}},
		{"load out of range", Task{Title: "x", Category: "math", Difficulty: 5, DurationMinutes: 60, CognitiveLoad: floatPtr(12)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.task.Validate(cfg), ErrMalformedTask)
		})
	}
}

func TestCategoryWeightFuzzyMatch(t *testing.T) {
	assert.Equal(t, 1.2, categoryWeight("math"))
	assert.Equal(t, 1.2, categoryWeight("maths"))       // distance 1
	assert.Equal(t, 1.2, categoryWeight("programing"))  // distance 1
	assert.Equal(t, 0.85, categoryWeight("reeding"))    // distance 2
	assert.Equal(t, 1.0, categoryWeight("gardening"))   // no near match
	assert.Equal(t, 1.0, categoryWeight(""))
}

func TestEstimateLoad(t *testing.T) {
	cfg := DefaultConfig()

	// Supplied load wins, clamped to [0,10].
	supplied := Task{Title: "x", Category: "math", Difficulty: 5, DurationMinutes: 60, CognitiveLoad: floatPtr(9)}
	assert.Equal(t, 9.0, EstimateLoad(supplied, 0, cfg))

	// Derived: difficulty * category weight + lecture penalty.
	derived := Task{Title: "x", Category: "reading", Difficulty: 5, DurationMinutes: 60}
	assert.InDelta(t, 4.25, EstimateLoad(derived, 0, cfg), 1e-9)

	lectures := Task{Title: "x", Category: "general", Difficulty: 5, DurationMinutes: 60}
	assert.InDelta(t, 5.2, EstimateLoad(lectures, 4, cfg), 1e-9)

	// Clamp at 10.
	heavy := Task{Title: "x", Category: "math", Difficulty: 10, DurationMinutes: 60}
	assert.Equal(t, 10.0, EstimateLoad(heavy, 10, cfg))
}

func TestSplitIntoQuanta(t *testing.T) {
	cfg := DefaultConfig()
	task := Task{Title: "x", Category: "math", Difficulty: 7, DurationMinutes: 100}

	qs := splitIntoQuanta(task, 8.4, 0, cfg)
	require.Len(t, qs, 4)
	for i, q := range qs {
		assert.Equal(t, cfg.QuantumMin, q.minutes)
		assert.True(t, q.deep)
		assert.Equal(t, i, q.index)
		assert.Equal(t, 4, q.of)
	}

	// Duration rounds up, never down.
	task.DurationMinutes = 101
	assert.Len(t, splitIntoQuanta(task, 8.4, 0, cfg), 5)

	task.DurationMinutes = 25
	assert.Len(t, splitIntoQuanta(task, 8.4, 0, cfg), 1)
}
