package cogsched

import (
	"time"

	"github.com/emirpasic/gods/v2/sets/linkedhashset"
)

// GamificationSnapshot is derived deterministically from a produced plan plus
// the per-user streak history.
type GamificationSnapshot struct {
	XP     int      `json:"xp"`
	Level  string   `json:"level"`
	Streak int      `json:"streak"`
	Badges []string `json:"badges"`
}

// PriorPlan summarizes the most recent persisted plan, used for streaks.
type PriorPlan struct {
	CreatedAt   time.Time
	HadDeepWork bool
	Streak      int
}

var levelThresholds = []struct {
	xp   int
	name string
}{
	{0, "Student"},
	{200, "Scholar"},
	{600, "Genius"},
	{1200, "Mastermind"},
}

func levelForXP(xp int) string {
	level := "Student"
	for _, lt := range levelThresholds {
		if xp >= lt.xp {
			level = lt.name
		}
	}
	return level
}

// ComputeGamification scores a plan: XP per block, level from thresholds,
// streak against the prior stored plan, and condition badges.
func ComputeGamification(blocks []Block, truncated bool, stressLevel int, prior *PriorPlan, now time.Time, cfg Config) GamificationSnapshot {
	xp := 0
	workBlocks := 0
	breakBlocks := 0
	hasDeep := false

	for _, b := range blocks {
		if b.IsBreak {
			breakBlocks++
			xp += 2
			continue
		}
		workBlocks++
		xp += 5
		if b.CognitiveLoad >= cfg.DeepWorkLoadThreshold {
			xp += 10
			hasDeep = true
		}
	}
	if truncated {
		xp -= 5
	}
	if xp < 0 {
		xp = 0
	}

	streak := 0
	if hasDeep {
		streak = 1
		if prior != nil && prior.HadDeepWork && isPreviousCalendarDay(prior.CreatedAt, now) {
			streak = prior.Streak + 1
		}
	}

	badges := linkedhashset.New[string]()
	if maxDeepChain(blocks, cfg) >= 3 {
		badges.Add("Deep Diver")
	}
	if breakBlocks >= 2 && distinctTaskTitles(blocks) >= 3 {
		badges.Add("Balanced")
	}
	if stressLevel >= 4 && !truncated {
		badges.Add("Stress-Proof")
	}

	return GamificationSnapshot{
		XP:     xp,
		Level:  levelForXP(xp),
		Streak: streak,
		Badges: badges.Values(),
	}
}

// isPreviousCalendarDay uses the server-local day boundary.
func isPreviousCalendarDay(prev, now time.Time) bool {
	py, pm, pd := prev.Local().Date()
	ny, nm, nd := now.Local().AddDate(0, 0, -1).Date()
	return py == ny && pm == nm && pd == nd
}

// maxDeepChain counts the longest run of deep blocks separated only by
// forced recovery breaks. Light work, commitments, and preferred breaks
// reset the chain.
func maxDeepChain(blocks []Block, cfg Config) int {
	longest, chain := 0, 0
	for _, b := range blocks {
		if b.IsBreak {
			if !b.Forced {
				chain = 0
			}
			continue
		}
		if b.CognitiveLoad >= cfg.DeepWorkLoadThreshold {
			chain++
			if chain > longest {
				longest = chain
			}
		} else {
			chain = 0
		}
	}
	return longest
}

func distinctTaskTitles(blocks []Block) int {
	titles := linkedhashset.New[string]()
	for _, b := range blocks {
		if !b.IsBreak {
			titles.Add(b.TaskTitle)
		}
	}
	return titles.Size()
}
