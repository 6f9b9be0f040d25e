package cogsched

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Block is one entry of the produced plan: a placed work quantum run, a
// forced or preferred break, or a commitment carried verbatim.
type Block struct {
	TaskTitle      string  `json:"task_title"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	CognitiveLoad  float64 `json:"cognitive_load"`
	EnergyAtStart  float64 `json:"energy_at_start"`
	FatigueAtStart float64 `json:"fatigue_at_start"`
	IsBreak        bool    `json:"is_break"`
	Explanation    string  `json:"explanation"`

	StartMin int `json:"-"`
	EndMin   int `json:"-"`

	// Forced marks a fatigue-inserted recovery break, as opposed to a
	// commitment or a user-preferred break.
	Forced bool `json:"-"`
}

// Request is one scheduling call. The engine is a pure function of it.
type Request struct {
	Profile       Profile
	Tasks         []Task
	AvailableFrom string
	AvailableTo   string

	// SoftDeadline bounds the placement loop; zero means the 2s default.
	SoftDeadline time.Duration
}

// Plan is the engine output: the ordered block list, the two curves, and the
// human-readable warnings.
type Plan struct {
	Blocks       []Block      `json:"schedule"`
	EnergyCurve  []CurvePoint `json:"energy_curve"`
	FatigueCurve []CurvePoint `json:"fatigue_curve"`
	Warnings     []string     `json:"warnings"`

	Truncated           bool `json:"-"`
	TruncatedByDeadline bool `json:"-"`
}

const defaultSoftDeadline = 2 * time.Second

// planBuilder bundles the fatigue accumulator with the growing block list;
// placement decisions read the accumulator that placement itself updates.
type planBuilder struct {
	cfg     Config
	profile Profile
	ft      *fatigueTracker
	blocks  []Block

	lastForcedBreak int // duration of the immediately preceding forced break, 0 if none
}

func (pb *planBuilder) appendBreak(iv Interval, title, explanation string, forced bool) {
	pb.blocks = append(pb.blocks, Block{
		TaskTitle:      title,
		StartTime:      FormatClock(iv.Start),
		EndTime:        FormatClock(iv.End),
		StartMin:       iv.Start,
		EndMin:         iv.End,
		CognitiveLoad:  0,
		EnergyAtStart:  round3(EnergyAt(iv.Start, pb.profile, pb.cfg)),
		FatigueAtStart: round3(pb.ft.Fatigue()),
		IsBreak:        true,
		Explanation:    explanation,
		Forced:         forced,
	})
	pb.ft.AddBreak(iv.Duration())
	if forced {
		pb.lastForcedBreak = iv.Duration()
	} else {
		pb.lastForcedBreak = 0
	}
}

// appendWork emits one quantum, merging into the previous block when two
// back-to-back light quanta of the same task line up. Fatigue accounting
// stays per-quantum either way.
func (pb *planBuilder) appendWork(q quantum, start int) {
	end := start + q.minutes

	if n := len(pb.blocks); n > 0 && !q.deep {
		prev := &pb.blocks[n-1]
		if !prev.IsBreak && prev.TaskTitle == q.task.Title &&
			prev.EndMin == start && prev.EndMin-prev.StartMin < 2*pb.cfg.QuantumMin {
			prev.EndMin = end
			prev.EndTime = FormatClock(end)
			pb.ft.AddWork(q.load, q.minutes)
			pb.lastForcedBreak = 0
			return
		}
	}

	pb.blocks = append(pb.blocks, Block{
		TaskTitle:      q.task.Title,
		StartTime:      FormatClock(start),
		EndTime:        FormatClock(end),
		StartMin:       start,
		EndMin:         end,
		CognitiveLoad:  q.load,
		EnergyAtStart:  round3(EnergyAt(start, pb.profile, pb.cfg)),
		FatigueAtStart: round3(pb.ft.Fatigue()),
		IsBreak:        false,
		Explanation:    pb.explainWork(q, start),
	})
	pb.ft.AddWork(q.load, q.minutes)
	pb.lastForcedBreak = 0
}

// explainWork synthesizes the one-line placement rationale for a quantum.
func (pb *planBuilder) explainWork(q quantum, start int) string {
	e := EnergyAt(start, pb.profile, pb.cfg)
	f := pb.ft.Fatigue()

	switch {
	case pb.lastForcedBreak > 0 && pb.lastForcedBreak >= pb.cfg.LongBreakDuration:
		return "scheduled after long break for recovery"
	case pb.lastForcedBreak > 0:
		return "scheduled after short break for recovery"
	case q.deep && e >= 0.65 && f < 0.35:
		return "high energy, low fatigue — ideal for deep focus"
	case !q.deep && e < 0.55:
		return "lighter task placed during energy dip"
	case q.deep:
		return fmt.Sprintf("deep work slot — energy %.0f%%", e*100)
	default:
		return "steady slot — energy managed by breaks"
	}
}

// Schedule runs the full pipeline for one call: availability, ordering,
// quantum split, cursor placement with forced breaks, curves and warnings.
func Schedule(ctx context.Context, req Request, cfg Config) (*Plan, error) {
	if err := req.Profile.Validate(); err != nil {
		return nil, err
	}
	avail, err := buildAvailability(req.AvailableFrom, req.AvailableTo, req.Profile)
	if err != nil {
		return nil, err
	}
	for _, t := range req.Tasks {
		if err := t.Validate(cfg); err != nil {
			return nil, err
		}
	}

	window := avail.window

	// Zero tasks: curves only, no blocks, no warnings.
	if len(req.Tasks) == 0 {
		return &Plan{
			EnergyCurve:  SampleEnergyCurve(window, req.Profile, cfg),
			FatigueCurve: sampleFatigueCurve(window, nil, cfg),
		}, nil
	}

	// Step A: order by load desc, difficulty desc, input order stable.
	type ordered struct {
		task Task
		load float64
		seq  int
	}
	tasks := make([]ordered, len(req.Tasks))
	for i, t := range req.Tasks {
		tasks[i] = ordered{task: t, load: EstimateLoad(t, req.Profile.LecturesToday, cfg), seq: i}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].load != tasks[j].load {
			return tasks[i].load > tasks[j].load
		}
		return tasks[i].task.Difficulty > tasks[j].task.Difficulty
	})

	// Step B: stress cap tags but never drops or defers work.
	stressed := req.Profile.StressLevel >= cfg.StressCapThreshold
	var cappedTasks []string

	// Step C: quantum split.
	var queue []quantum
	requestedMin := 0
	for _, o := range tasks {
		if stressed && o.load > cfg.MaxLoadUnderStress {
			cappedTasks = append(cappedTasks, o.task.Title)
		}
		qs := splitIntoQuanta(o.task, o.load, o.seq, cfg)
		queue = append(queue, qs...)
		requestedMin += len(qs) * cfg.QuantumMin
	}

	// Step D: placement loop.
	pb := &planBuilder{cfg: cfg, profile: req.Profile, ft: newFatigueTracker(cfg)}
	deadline := req.SoftDeadline
	if deadline <= 0 {
		deadline = defaultSoftDeadline
	}
	started := time.Now()

	ivIdx := 0
	cursor := avail.free[0].Start
	fixedIdx := 0
	truncated := false
	deadlineHit := false

	// emitFixedThrough emits fixed events that start before the given minute.
	emitFixedThrough := func(limit int) {
		for fixedIdx < len(avail.fixed) && avail.fixed[fixedIdx].Start < limit {
			ev := avail.fixed[fixedIdx]
			switch ev.kind {
			case fixedCommitment:
				pb.appendBreak(ev.Interval, ev.Label, "fixed commitment — unavailable for tasks", false)
			default:
				pb.appendBreak(ev.Interval, ev.Label, "preferred break honored", false)
			}
			fixedIdx++
		}
	}

	// advanceInterval moves the cursor to the next free interval, emitting
	// the fixed events that sit in the gap. Returns false when none remain.
	advanceInterval := func() bool {
		ivIdx++
		if ivIdx >= len(avail.free) {
			return false
		}
		cursor = avail.free[ivIdx].Start
		emitFixedThrough(cursor)
		return true
	}

	emitFixedThrough(cursor)

placement:
	for qi := 0; qi < len(queue); {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if time.Since(started) > deadline {
			deadlineHit = true
			truncated = true
			break placement
		}

		q := queue[qi]

		// Step D.3: force a break before the quantum if fatigue demands it.
		if dur := pb.ft.BreakDuration(); pb.ft.ForceBreak() && dur > 0 {
			if cursor+dur <= avail.free[ivIdx].End {
				kind := "short"
				if dur >= cfg.LongBreakDuration {
					kind = "long"
				}
				pb.appendBreak(
					Interval{Start: cursor, End: cursor + dur},
					"Recovery Break",
					fmt.Sprintf("%s break — fatigue recovery before next block", kind),
					true,
				)
				cursor += dur
			} else if !advanceInterval() {
				// The interval gap itself acts as the break; none left.
				truncated = true
				break placement
			}
			continue
		}

		// Step D.4/D.5: place the quantum or jump intervals.
		if cursor+q.minutes > avail.free[ivIdx].End {
			if !advanceInterval() {
				truncated = true
				break placement
			}
			continue
		}
		pb.appendWork(q, cursor)
		cursor += q.minutes
		qi++
	}

	// Commitments later in the day stay in the plan even when work ends early.
	emitFixedThrough(window.End)

	freeMin := avail.FreeMinutes()
	anyDeep := false
	for _, b := range pb.blocks {
		if !b.IsBreak && b.CognitiveLoad >= cfg.DeepWorkLoadThreshold {
			anyDeep = true
			break
		}
	}

	plan := &Plan{
		Blocks:              pb.blocks,
		EnergyCurve:         SampleEnergyCurve(window, req.Profile, cfg),
		FatigueCurve:        sampleFatigueCurve(window, pb.blocks, cfg),
		Truncated:           truncated || requestedMin > freeMin,
		TruncatedByDeadline: deadlineHit,
	}
	plan.Warnings = buildWarnings(warningFacts{
		profile:       req.Profile,
		cfg:           cfg,
		anyDeep:       anyDeep,
		truncated:     plan.Truncated,
		deadlineHit:   deadlineHit,
		requestedMin:  requestedMin,
		freeMin:       freeMin,
		cappedTasks:   cappedTasks,
		stressed:      stressed,
		blocks:        pb.blocks,
		breaksAsked:   len(req.Profile.BreakPreferences) > 0,
	})
	return plan, nil
}

// sampleFatigueCurve replays the block list at the curve cadence. Each
// sample reflects every block completed, plus the partial block in flight.
func sampleFatigueCurve(window Interval, blocks []Block, cfg Config) []CurvePoint {
	step := cfg.CurveSampleMin
	if step <= 0 {
		step = 15
	}
	var out []CurvePoint
	for t := window.Start; t <= window.End; t += step {
		out = append(out, CurvePoint{Time: FormatClock(t), Value: round3(replayFatigueAt(blocks, t, cfg))})
	}
	return out
}

func replayFatigueAt(blocks []Block, t int, cfg Config) float64 {
	ft := newFatigueTracker(cfg)
	for _, b := range blocks {
		switch {
		case b.EndMin <= t:
			if b.IsBreak {
				ft.AddBreak(b.EndMin - b.StartMin)
			} else {
				ft.AddWork(b.CognitiveLoad, b.EndMin-b.StartMin)
			}
		case b.StartMin < t:
			if b.IsBreak {
				ft.AddBreak(t - b.StartMin)
			} else {
				ft.AddWork(b.CognitiveLoad, t-b.StartMin)
			}
			return ft.Fatigue()
		default:
			return ft.Fatigue()
		}
	}
	return ft.Fatigue()
}
