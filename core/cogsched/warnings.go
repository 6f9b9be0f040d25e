package cogsched

import (
	"fmt"
	"strings"
)

// maxWarnings caps the list; lower-severity entries fall off first.
const maxWarnings = 6

type warningFacts struct {
	profile      Profile
	cfg          Config
	anyDeep      bool
	truncated    bool
	deadlineHit  bool
	requestedMin int
	freeMin      int
	cappedTasks  []string
	stressed     bool
	blocks       []Block
	breaksAsked  bool
}

// buildWarnings derives the severity-ordered caution list from a produced
// plan. At most maxWarnings entries survive.
func buildWarnings(f warningFacts) []string {
	var out []string

	if f.profile.SleepHours <= 5 {
		out = append(out, fmt.Sprintf(
			"Low sleep (%.1fh) — burnout risk; consider a lighter day", f.profile.SleepHours))
	}
	if f.profile.StressLevel == 5 && f.anyDeep {
		out = append(out, "Stress at maximum and deep work scheduled — consider deferring the hardest task")
	}
	switch {
	case f.requestedMin > f.freeMin:
		out = append(out, fmt.Sprintf(
			"Not enough time for remaining tasks — requested %d min but only %d min free; plan truncated",
			f.requestedMin, f.freeMin))
	case f.truncated && !f.deadlineHit:
		// Inserted recovery breaks ate the slack even though the raw task
		// minutes fit the free time.
		out = append(out, "Not enough time for remaining tasks — recovery breaks consumed the window; plan truncated")
	}
	// The force-break check sits between quanta, so a run tops out just
	// under trigger + quantum. Anything past that bound is a placement bug.
	if run := longestDeepRun(f.blocks, f.cfg); run >= f.cfg.ShortBreakTriggerMin+f.cfg.QuantumMin {
		out = append(out, fmt.Sprintf(
			"Deep-work run of %d min exceeds the %d min break trigger", run, f.cfg.ShortBreakTriggerMin))
	}
	if f.stressed && len(f.cappedTasks) > 0 {
		out = append(out, fmt.Sprintf(
			"High stress (level %d): load above %.1f on %s — scheduled anyway, pace yourself",
			f.profile.StressLevel, f.cfg.MaxLoadUnderStress, strings.Join(f.cappedTasks, ", ")))
	}
	if !f.breaksAsked && deepMinutes(f.blocks, f.cfg) > 120 {
		out = append(out, "No breaks requested but over 2h of deep work planned — breaks were inserted automatically")
	}
	if f.deadlineHit {
		out = append(out, "truncated_by_deadline")
	}

	if len(out) > maxWarnings {
		out = out[:maxWarnings]
	}
	return out
}

// longestDeepRun measures the longest stretch of consecutive non-break deep
// blocks with no intervening break.
func longestDeepRun(blocks []Block, cfg Config) int {
	longest, run := 0, 0
	for _, b := range blocks {
		if b.IsBreak || b.CognitiveLoad < cfg.DeepWorkLoadThreshold {
			run = 0
			continue
		}
		run += b.EndMin - b.StartMin
		if run > longest {
			longest = run
		}
	}
	return longest
}

func deepMinutes(blocks []Block, cfg Config) int {
	total := 0
	for _, b := range blocks {
		if !b.IsBreak && b.CognitiveLoad >= cfg.DeepWorkLoadThreshold {
			total += b.EndMin - b.StartMin
		}
	}
	return total
}
