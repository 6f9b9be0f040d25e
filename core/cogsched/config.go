package cogsched

import (
	"fmt"
	"math"
)

// Config carries every tunable coefficient for the scheduler. The three
// fatigue_* weights are the ones TLX recalibration adjusts at runtime.
type Config struct {
	// Sleep & circadian
	SleepBaseline float64 `json:"sleep_baseline"`

	// Fatigue accumulation weights (tuned by TLX feedback)
	FatigueConsecWeight float64 `json:"fatigue_consec_weight"`
	FatigueTotalWeight  float64 `json:"fatigue_total_weight"`

	// Thresholds
	ConsecThresholdMin    int `json:"consec_threshold_min"`
	TotalDeepThresholdMin int `json:"total_deep_threshold_min"`

	// Breaks
	ShortBreakTriggerMin int `json:"short_break_trigger_min"`
	ShortBreakDuration   int `json:"short_break_duration"`
	LongBreakDuration    int `json:"long_break_duration"`

	// Fatigue force-break
	FatigueForceBreak float64 `json:"fatigue_force_break"`

	// Stress cap
	StressCapThreshold int     `json:"stress_cap_threshold"`
	MaxLoadUnderStress float64 `json:"max_load_under_stress"`

	// Lectures
	LecturePenaltyPer float64 `json:"lecture_penalty_per"`

	// Break recovery
	BreakRecoveryFactor float64 `json:"break_recovery_factor"`

	// Quantum size (minutes)
	QuantumMin int `json:"quantum_min"`

	// Deep work threshold (cognitive_load >= this)
	DeepWorkLoadThreshold float64 `json:"deep_work_load_threshold"`

	// Curve sampling cadence (minutes)
	CurveSampleMin int `json:"curve_sample_min"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		SleepBaseline:         7.5,
		FatigueConsecWeight:   0.4,
		FatigueTotalWeight:    0.3,
		ConsecThresholdMin:    90,
		TotalDeepThresholdMin: 180,
		ShortBreakTriggerMin:  90,
		ShortBreakDuration:    10,
		LongBreakDuration:     15,
		FatigueForceBreak:     0.75,
		StressCapThreshold:    4,
		MaxLoadUnderStress:    6.0,
		LecturePenaltyPer:     0.05,
		BreakRecoveryFactor:   0.4,
		QuantumMin:            25,
		DeepWorkLoadThreshold: 6.0,
		CurveSampleMin:        15,
	}
}

// CategoryWeights maps task categories to load multipliers. Categories are
// free-form strings; anything unrecognized falls back to 1.0.
var CategoryWeights = map[string]float64{
	"math":        1.2,
	"programming": 1.2,
	"science":     1.1,
	"writing":     1.0,
	"general":     1.0,
	"reading":     0.85,
	"review":      0.8,
}

// Map serializes the config as a flat key→value map, keyed exactly like the
// PUT /config payload.
func (c Config) Map() map[string]any {
	return map[string]any{
		"sleep_baseline":           c.SleepBaseline,
		"fatigue_consec_weight":    c.FatigueConsecWeight,
		"fatigue_total_weight":     c.FatigueTotalWeight,
		"consec_threshold_min":     c.ConsecThresholdMin,
		"total_deep_threshold_min": c.TotalDeepThresholdMin,
		"short_break_trigger_min":  c.ShortBreakTriggerMin,
		"short_break_duration":     c.ShortBreakDuration,
		"long_break_duration":      c.LongBreakDuration,
		"fatigue_force_break":      c.FatigueForceBreak,
		"stress_cap_threshold":     c.StressCapThreshold,
		"max_load_under_stress":    c.MaxLoadUnderStress,
		"lecture_penalty_per":      c.LecturePenaltyPer,
		"break_recovery_factor":    c.BreakRecoveryFactor,
		"quantum_min":              c.QuantumMin,
		"deep_work_load_threshold": c.DeepWorkLoadThreshold,
		"curve_sample_min":         c.CurveSampleMin,
	}
}

// Apply mutates known keys from a PUT /config style map. An unknown key
// rejects the whole update; the config is left untouched.
func (c *Config) Apply(updates map[string]any) error {
	staged := *c
	for key, raw := range updates {
		if err := staged.set(key, raw); err != nil {
			return err
		}
	}
	*c = staged
	return nil
}

func (c *Config) set(key string, raw any) error {
	switch key {
	case "sleep_baseline":
		return setFloat(&c.SleepBaseline, key, raw)
	case "fatigue_consec_weight":
		return setFloat(&c.FatigueConsecWeight, key, raw)
	case "fatigue_total_weight":
		return setFloat(&c.FatigueTotalWeight, key, raw)
	case "consec_threshold_min":
		return setInt(&c.ConsecThresholdMin, key, raw)
	case "total_deep_threshold_min":
		return setInt(&c.TotalDeepThresholdMin, key, raw)
	case "short_break_trigger_min":
		return setInt(&c.ShortBreakTriggerMin, key, raw)
	case "short_break_duration":
		return setInt(&c.ShortBreakDuration, key, raw)
	case "long_break_duration":
		return setInt(&c.LongBreakDuration, key, raw)
	case "fatigue_force_break":
		return setFloat(&c.FatigueForceBreak, key, raw)
	case "stress_cap_threshold":
		return setInt(&c.StressCapThreshold, key, raw)
	case "max_load_under_stress":
		return setFloat(&c.MaxLoadUnderStress, key, raw)
	case "lecture_penalty_per":
		return setFloat(&c.LecturePenaltyPer, key, raw)
	case "break_recovery_factor":
		return setFloat(&c.BreakRecoveryFactor, key, raw)
	case "quantum_min":
		return setInt(&c.QuantumMin, key, raw)
	case "deep_work_load_threshold":
		return setFloat(&c.DeepWorkLoadThreshold, key, raw)
	case "curve_sample_min":
		return setInt(&c.CurveSampleMin, key, raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownConfigKey, key)
	}
}

func setFloat(dst *float64, key string, raw any) error {
	switch v := raw.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	default:
		return fmt.Errorf("%w: %q expects a number", ErrUnknownConfigKey, key)
	}
	return nil
}

func setInt(dst *int, key string, raw any) error {
	switch v := raw.(type) {
	case int:
		*dst = v
	case float64:
		if v != math.Trunc(v) {
			return fmt.Errorf("%w: %q expects an integer", ErrUnknownConfigKey, key)
		}
		*dst = int(v)
	default:
		return fmt.Errorf("%w: %q expects an integer", ErrUnknownConfigKey, key)
	}
	return nil
}
