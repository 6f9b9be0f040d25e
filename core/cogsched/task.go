package cogsched

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Task is a single user-supplied (or parser-extracted) unit of work.
// CognitiveLoad is optional; when nil it is derived from difficulty and the
// category weight table.
type Task struct {
	Title           string   `json:"title"`
	Category        string   `json:"category"`
	Difficulty      float64  `json:"difficulty"`
	DurationMinutes int      `json:"duration_minutes"`
	CognitiveLoad   *float64 `json:"cognitive_load,omitempty"`
}

// Validate checks field ranges. The returned error names the offending field.
func (t Task) Validate(cfg Config) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrMalformedTask)
	}
	if t.DurationMinutes < cfg.QuantumMin {
		return fmt.Errorf("%w: duration_minutes %d below quantum %d for %q",
			ErrMalformedTask, t.DurationMinutes, cfg.QuantumMin, t.Title)
	}
	if t.Difficulty < 1 || t.Difficulty > 10 {
		return fmt.Errorf("%w: difficulty %.1f out of [1,10] for %q",
			ErrMalformedTask, t.Difficulty, t.Title)
	}
	if t.CognitiveLoad != nil && (*t.CognitiveLoad < 0 || *t.CognitiveLoad > 10) {
		return fmt.Errorf("%w: cognitive_load %.1f out of [0,10] for %q",
			ErrMalformedTask, *t.CognitiveLoad, t.Title)
	}
	return nil
}

// categoryWeight resolves a free-form category string against the weight
// table. Near-misses ("programing", "maths") snap to the closest known
// category within edit distance 2; everything else weighs 1.0.
func categoryWeight(category string) float64 {
	key := strings.ToLower(strings.TrimSpace(category))
	if w, ok := CategoryWeights[key]; ok {
		return w
	}
	known := make([]string, 0, len(CategoryWeights))
	for k := range CategoryWeights {
		known = append(known, k)
	}
	sort.Strings(known) // deterministic tie-breaking
	bestDist := 3
	bestWeight := 1.0
	for _, k := range known {
		if d := levenshtein.ComputeDistance(key, k); d < bestDist {
			bestDist = d
			bestWeight = CategoryWeights[k]
		}
	}
	return bestWeight
}

// EstimateLoad returns the task's cognitive load on [0,10]. A supplied load
// wins; otherwise difficulty scales by category weight with a small penalty
// per lecture already attended today.
func EstimateLoad(t Task, lecturesToday int, cfg Config) float64 {
	if t.CognitiveLoad != nil {
		return clamp(*t.CognitiveLoad, 0, 10)
	}
	load := t.Difficulty*categoryWeight(t.Category) +
		float64(lecturesToday)*cfg.LecturePenaltyPer
	return clamp(load, 0, 10)
}

// quantum is one placement unit of a task.
type quantum struct {
	task     Task
	load     float64
	minutes  int
	deep     bool
	capped   bool // load exceeded the stress cap
	index    int  // quantum index within its task
	of       int  // total quanta for the task
	taskSeq  int  // stable input order of the parent task
}

// splitIntoQuanta turns a task into its placement units. Deep tasks split
// into exact quantum_min units; duration rounds up to a whole number of
// quanta, never down.
func splitIntoQuanta(t Task, load float64, seq int, cfg Config) []quantum {
	q := cfg.QuantumMin
	n := (t.DurationMinutes + q - 1) / q
	if n < 1 {
		n = 1
	}
	deep := load >= cfg.DeepWorkLoadThreshold
	out := make([]quantum, n)
	for i := 0; i < n; i++ {
		out[i] = quantum{
			task:    t,
			load:    load,
			minutes: q,
			deep:    deep,
			index:   i,
			of:      n,
			taskSeq: seq,
		}
	}
	return out
}
