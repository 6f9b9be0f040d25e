// Package engine ties scheduling, parsing, persistence, and gamification
// into one façade. Handlers and the CLI talk to Engine only; they never
// reach into cogsched or memory directly.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sohamukute/CogScheduler/core/cogsched"
	"github.com/sohamukute/CogScheduler/core/llm"
	"github.com/sohamukute/CogScheduler/core/memory"
)

// Engine is safe for concurrent use. Scheduling calls share nothing; TLX
// submissions serialize per user so the read-recalibrate-append cycle never
// interleaves.
type Engine struct {
	store  memory.Store
	parser llm.Provider
	base   cogsched.Config

	tlxMu sync.Mutex
	tlx   map[string]*sync.Mutex
}

// New builds an engine over the given store and task parser. parser may be
// nil when only direct task scheduling is needed.
func New(store memory.Store, parser llm.Provider, base cogsched.Config) *Engine {
	return &Engine{
		store:  store,
		parser: parser,
		base:   base,
		tlx:    make(map[string]*sync.Mutex),
	}
}

// Result is one scheduling outcome: the plan, its gamification snapshot, and
// persistence metadata.
type Result struct {
	ScheduleID   string                         `json:"schedule_id,omitempty"`
	Plan         *cogsched.Plan                 `json:"plan"`
	Gamification cogsched.GamificationSnapshot  `json:"gamification"`
	ParsedTasks  []cogsched.Task                `json:"parsed_tasks,omitempty"`
	Persisted    bool                           `json:"persisted"`
}

// EffectiveConfig merges the engine defaults with the user's stored
// overrides.
func (e *Engine) EffectiveConfig(ctx context.Context, userID string) (cogsched.Config, error) {
	cfg := e.base
	overrides, err := e.store.ConfigOverrides(ctx, userID)
	if err != nil {
		return cfg, fmt.Errorf("load config overrides: %w", err)
	}
	if len(overrides) > 0 {
		if err := cfg.Apply(overrides); err != nil {
			// Stored overrides predate a rename or were hand-edited; fall
			// back to defaults rather than failing every schedule.
			return e.base, nil
		}
	}
	return cfg, nil
}

// UpdateConfig applies a PUT /config style map on top of the user's current
// effective config. Unknown keys reject the whole update.
func (e *Engine) UpdateConfig(ctx context.Context, userID string, updates map[string]any) (cogsched.Config, error) {
	cfg, err := e.EffectiveConfig(ctx, userID)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Apply(updates); err != nil {
		return cfg, err
	}
	overrides, err := e.store.ConfigOverrides(ctx, userID)
	if err != nil {
		return cfg, fmt.Errorf("load config overrides: %w", err)
	}
	for k, v := range updates {
		overrides[k] = v
	}
	if err := e.store.SetConfigOverrides(ctx, userID, overrides); err != nil {
		return cfg, fmt.Errorf("store config overrides: %w", err)
	}
	return cfg, nil
}

// Profile returns the stored profile, or defaults when none exists.
func (e *Engine) Profile(ctx context.Context, userID string) (cogsched.Profile, error) {
	p, err := e.store.GetProfile(ctx, userID)
	if errors.Is(err, memory.ErrNotFound) {
		return cogsched.DefaultProfile(), nil
	}
	if err != nil {
		return cogsched.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return *p, nil
}

// SaveProfile validates and stores the profile.
func (e *Engine) SaveProfile(ctx context.Context, userID string, p cogsched.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := e.store.UpsertProfile(ctx, userID, p); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

// Schedule runs one scheduling call and persists the outcome. Persistence
// failures do not fail the call; the plan is returned with Persisted false.
func (e *Engine) Schedule(ctx context.Context, userID string, req cogsched.Request) (*Result, error) {
	cfg, err := e.EffectiveConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, err := cogsched.Schedule(ctx, req, cfg)
	if err != nil {
		return nil, err
	}

	prior := e.priorPlan(ctx, userID)
	game := cogsched.ComputeGamification(plan.Blocks, plan.Truncated, req.Profile.StressLevel, prior, time.Now(), cfg)

	res := &Result{Plan: plan, Gamification: game}
	e.persist(ctx, userID, res, cfg)
	return res, nil
}

// Converse parses tasks out of a free-text message with the provider chain,
// then schedules them against the stored profile.
func (e *Engine) Converse(ctx context.Context, userID, message, from, to string) (*Result, error) {
	if e.parser == nil {
		return nil, llm.ErrParseFailed
	}
	tasks, err := e.parser.ParseTasks(ctx, message)
	if err != nil {
		return nil, err
	}

	profile, err := e.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, err := e.Schedule(ctx, userID, cogsched.Request{
		Profile:       profile,
		Tasks:         tasks,
		AvailableFrom: from,
		AvailableTo:   to,
	})
	if err != nil {
		return nil, err
	}
	res.ParsedTasks = tasks
	return res, nil
}

// TLXResult reports one feedback submission.
type TLXResult struct {
	Entries      int     `json:"entries"`
	Recalibrated bool    `json:"recalibrated"`
	ConsecWeight float64 `json:"fatigue_consec_weight"`
	TotalWeight  float64 `json:"fatigue_total_weight"`
	ForceBreak   float64 `json:"fatigue_force_break"`
}

// SubmitTLX appends one feedback entry and recalibrates when the count hits
// a multiple of three. Submissions for the same user serialize.
func (e *Engine) SubmitTLX(ctx context.Context, userID string, entry cogsched.TLXEntry) (*TLXResult, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	mu := e.userTLXLock(userID)
	mu.Lock()
	defer mu.Unlock()

	history, err := e.store.TLXHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load tlx history: %w", err)
	}
	history = append(history, entry)

	cfg, err := e.EffectiveConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated, recalibrated := cogsched.Recalibrate(cfg, history)

	var overrides map[string]any
	if recalibrated {
		overrides, err = e.store.ConfigOverrides(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load config overrides: %w", err)
		}
		overrides["fatigue_consec_weight"] = updated.FatigueConsecWeight
		overrides["fatigue_total_weight"] = updated.FatigueTotalWeight
		overrides["fatigue_force_break"] = updated.FatigueForceBreak
	}

	count, err := e.store.AppendTLX(ctx, userID, entry, overrides)
	if err != nil {
		return nil, fmt.Errorf("append tlx: %w", err)
	}

	return &TLXResult{
		Entries:      count,
		Recalibrated: recalibrated,
		ConsecWeight: updated.FatigueConsecWeight,
		TotalWeight:  updated.FatigueTotalWeight,
		ForceBreak:   updated.FatigueForceBreak,
	}, nil
}

// LatestSchedule returns the user's most recent persisted plan record.
func (e *Engine) LatestSchedule(ctx context.Context, userID string) (*memory.ScheduleRecord, error) {
	return e.store.LatestSchedule(ctx, userID)
}

// MarkCalendarSynced records a completed calendar export.
func (e *Engine) MarkCalendarSynced(ctx context.Context, scheduleID string) error {
	return e.store.MarkCalendarSynced(ctx, scheduleID)
}

func (e *Engine) userTLXLock(userID string) *sync.Mutex {
	e.tlxMu.Lock()
	defer e.tlxMu.Unlock()
	mu, ok := e.tlx[userID]
	if !ok {
		mu = &sync.Mutex{}
		e.tlx[userID] = mu
	}
	return mu
}

func (e *Engine) priorPlan(ctx context.Context, userID string) *cogsched.PriorPlan {
	rec, err := e.store.LatestSchedule(ctx, userID)
	if err != nil {
		return nil
	}
	return &cogsched.PriorPlan{
		CreatedAt:   rec.CreatedAt,
		HadDeepWork: rec.HadDeepWork,
		Streak:      rec.Streak,
	}
}

// storedPlan is the schedule_data payload shape.
type storedPlan struct {
	Plan         *cogsched.Plan                `json:"plan"`
	Gamification cogsched.GamificationSnapshot `json:"gamification"`
}

func (e *Engine) persist(ctx context.Context, userID string, res *Result, cfg cogsched.Config) {
	raw, err := json.Marshal(storedPlan{Plan: res.Plan, Gamification: res.Gamification})
	if err != nil {
		return
	}
	hadDeep := false
	for _, b := range res.Plan.Blocks {
		if !b.IsBreak && b.CognitiveLoad >= cfg.DeepWorkLoadThreshold {
			hadDeep = true
			break
		}
	}
	rec, err := e.store.SaveSchedule(ctx, memory.ScheduleRecord{
		UserID:      userID,
		Data:        raw,
		HadDeepWork: hadDeep,
		Streak:      res.Gamification.Streak,
	})
	if err != nil {
		return
	}
	res.ScheduleID = rec.ID
	res.Persisted = true
}
