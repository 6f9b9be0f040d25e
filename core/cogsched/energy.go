package cogsched

import "math"

// CurvePoint is one sample of the energy or fatigue curve.
type CurvePoint struct {
	Time  string  `json:"time"` // HH:MM
	Value float64 `json:"value"`
}

// chronotypePeak maps chronotype to the hour of peak alertness.
func chronotypePeak(chronotype string) float64 {
	switch chronotype {
	case "early":
		return 10.0
	case "late":
		return 15.0
	default:
		return 11.0
	}
}

func gauss(t, center, sigma float64) float64 {
	d := t - center
	return math.Exp(-(d * d) / (2 * sigma * sigma))
}

// CircadianBase returns the baseline alertness C(t) for an hour of day,
// shaped as a sum of Gaussians and mapped into [0.4, 1.0]. Morning types
// carry a post-lunch dip around 14:30; everyone troughs at 04:00.
func CircadianBase(hour float64, chronotype string) float64 {
	peak := chronotypePeak(chronotype)

	shape := gauss(hour, peak, 3.5)
	shape += 0.5 * gauss(hour, peak+4.5, 2.5) // second wind
	shape -= 0.6 * gauss(hour, 4.0, 2.0)      // pre-dawn trough
	if chronotype != "late" {
		shape -= 0.25 * gauss(hour, 14.5, 1.5) // post-lunch dip
	}
	shape = clamp(shape, 0, 1)

	return 0.4 + 0.6*shape
}

// SleepFactor scales energy by last night's sleep relative to baseline,
// clamped to [0.6, 1.1].
func SleepFactor(sleepHours, baseline float64) float64 {
	if baseline <= 0 {
		baseline = 7.5
	}
	return clamp(sleepHours/baseline, 0.6, 1.1)
}

// stressDecay is the affine energy penalty for self-reported stress 1-5.
func stressDecay(stressLevel int) float64 {
	if stressLevel < 1 {
		stressLevel = 1
	}
	return 0.03 * float64(stressLevel-1)
}

// EnergyAt evaluates E(t) in [0,1] for a minute of the day.
func EnergyAt(minuteOfDay int, p Profile, cfg Config) float64 {
	hour := float64(minuteOfDay) / 60.0
	c := CircadianBase(hour, p.Chronotype)
	s := SleepFactor(p.SleepHours, cfg.SleepBaseline)
	return clamp(s*c-stressDecay(p.StressLevel), 0, 1)
}

// SampleEnergyCurve samples E(t) across the window (inclusive of both ends)
// at the configured cadence.
func SampleEnergyCurve(window Interval, p Profile, cfg Config) []CurvePoint {
	step := cfg.CurveSampleMin
	if step <= 0 {
		step = 15
	}
	var out []CurvePoint
	for t := window.Start; t <= window.End; t += step {
		out = append(out, CurvePoint{
			Time:  FormatClock(t),
			Value: round3(EnergyAt(t, p, cfg)),
		})
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
