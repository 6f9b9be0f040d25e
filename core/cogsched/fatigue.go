package cogsched

// fatigueTracker accumulates fatigue over the placed sequence so far. It is
// updated during placement and placement decisions read it back, so it lives
// inside the plan builder rather than as a standalone pass.
type fatigueTracker struct {
	cfg Config

	consecDeepMin int     // consecutive deep-work minutes since the last break
	totalDeepMin  int     // cumulative deep-work minutes today
	level         float64 // F in [0,1]
}

func newFatigueTracker(cfg Config) *fatigueTracker {
	return &fatigueTracker{cfg: cfg}
}

// Fatigue returns the current F value.
func (ft *fatigueTracker) Fatigue() float64 {
	return ft.level
}

// recompute refreshes F from the two accumulators.
func (ft *fatigueTracker) recompute() {
	consec := float64(ft.consecDeepMin) / float64(ft.cfg.ConsecThresholdMin)
	total := float64(ft.totalDeepMin) / float64(ft.cfg.TotalDeepThresholdMin)
	ft.level = clamp(ft.cfg.FatigueConsecWeight*consec+ft.cfg.FatigueTotalWeight*total, 0, 1)
}

// AddWork accounts for a placed work quantum of d minutes. Only quanta at or
// above the deep-work threshold accumulate; lighter work resets the
// consecutive counter.
func (ft *fatigueTracker) AddWork(load float64, d int) {
	if load >= ft.cfg.DeepWorkLoadThreshold {
		ft.consecDeepMin += d
		ft.totalDeepMin += d
	} else {
		ft.consecDeepMin = 0
	}
	ft.recompute()
}

// AddBreak accounts for a break block of b minutes: the consecutive counter
// resets fully and F recovers proportionally to the break length.
func (ft *fatigueTracker) AddBreak(b int) {
	ft.consecDeepMin = 0
	long := float64(ft.cfg.LongBreakDuration)
	if long <= 0 {
		long = 15
	}
	frac := float64(b) / long
	if frac > 1 {
		frac = 1
	}
	ft.level *= 1 - ft.cfg.BreakRecoveryFactor*frac
	if ft.level < 0 {
		ft.level = 0
	}
}

// ForceBreak reports whether a break must be inserted before more work.
func (ft *fatigueTracker) ForceBreak() bool {
	return ft.level >= ft.cfg.FatigueForceBreak ||
		ft.consecDeepMin >= ft.cfg.ShortBreakTriggerMin
}

// BreakDuration picks the forced break length: long once the day's deep-work
// total has saturated, short otherwise.
func (ft *fatigueTracker) BreakDuration() int {
	if ft.totalDeepMin >= ft.cfg.TotalDeepThresholdMin {
		return ft.cfg.LongBreakDuration
	}
	return ft.cfg.ShortBreakDuration
}
