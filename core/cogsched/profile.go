package cogsched

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Profile captures everything the engine needs to know about the user for
// one scheduling call. Immutable for the duration of the call.
type Profile struct {
	Name       string `json:"name"`
	Role       string `json:"role"`       // student | professional | researcher
	Chronotype string `json:"chronotype"` // early | normal | late

	WakeTime    string  `json:"wake_time"`  // HH:MM
	SleepTime   string  `json:"sleep_time"` // HH:MM
	SleepHours  float64 `json:"sleep_hours"`
	StressLevel int     `json:"stress_level"` // 1-5

	// "HH:MM-HH:MM label" strings, e.g. "10:00-11:00 Math Lecture"
	DailyCommitments []string `json:"daily_commitments"`
	// "HH:MM-HH:MM" strings the scheduler must honor as breaks
	BreakPreferences []string `json:"break_preferences"`

	LecturesToday int `json:"lectures_today"`
	MeetingsToday int `json:"meetings_today"`

	// Opaque timetable payload carried for the OCR collaborator.
	Timetable json.RawMessage `json:"timetable,omitempty"`
}

// DefaultProfile returns a profile with sensible student defaults.
func DefaultProfile() Profile {
	return Profile{
		Role:        "student",
		Chronotype:  "normal",
		WakeTime:    "07:00",
		SleepTime:   "23:00",
		SleepHours:  7.0,
		StressLevel: 2,
	}
}

// Validate checks ranges before a scheduling call.
func (p Profile) Validate() error {
	if p.SleepHours < 0 || p.SleepHours > 24 {
		return fmt.Errorf("%w: sleep_hours %.1f out of [0,24]", ErrMalformedTask, p.SleepHours)
	}
	if p.StressLevel < 1 || p.StressLevel > 5 {
		return fmt.Errorf("%w: stress_level %d out of [1,5]", ErrMalformedTask, p.StressLevel)
	}
	switch p.Chronotype {
	case "early", "normal", "late":
	default:
		return fmt.Errorf("%w: chronotype %q", ErrMalformedTask, p.Chronotype)
	}
	return nil
}

// Commitment is a fixed, unmovable interval with a display label.
type Commitment struct {
	Interval
	Label string
}

// parseCommitment splits "HH:MM-HH:MM label" into interval and label. The
// label defaults to "Commitment" when absent.
func parseCommitment(s string) (Commitment, error) {
	s = strings.TrimSpace(s)
	timePart := s
	label := "Commitment"
	if idx := strings.IndexByte(s, ' '); idx > 0 {
		timePart = s[:idx]
		label = strings.TrimSpace(s[idx+1:])
	}
	iv, err := ParseRange(timePart)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{Interval: iv, Label: label}, nil
}
