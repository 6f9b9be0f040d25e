package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

// durationPattern captures "2 hours", "90 min", "1.5h" style phrases along
// with optional connectives ("for 2 hours") so the title can be cleaned.
var durationPattern = regexp2.MustCompile(
	`(?:\bfor\s+)?(?<num>\d+(?:\.\d+)?)\s*(?<unit>hours?|hrs?|h|minutes?|mins?|m)\b`,
	regexp2.IgnoreCase)

// segmentSplitter breaks a message into task candidates on common list
// separators without splitting inside a duration phrase.
var segmentSplitter = regexp2.MustCompile(
	`\s*(?:,|;|\n|\.\s|\band\s+(?:then\s+)?(?=\w))\s*`,
	regexp2.IgnoreCase)

// categoryKeywords maps title keywords to load categories.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"calculus", "math"}, {"math", "math"}, {"algebra", "math"}, {"graph", "math"},
	{"code", "programming"}, {"coding", "programming"}, {"program", "programming"},
	{"assignment", "programming"}, {"project", "programming"}, {"ml", "programming"},
	{"chem", "science"}, {"physics", "science"}, {"bio", "science"}, {"science", "science"},
	{"essay", "writing"}, {"write", "writing"}, {"writing", "writing"}, {"report", "writing"},
	{"read", "reading"}, {"reading", "reading"}, {"chapter", "reading"},
	{"review", "review"}, {"revise", "review"}, {"flashcard", "review"},
}

// RegexProvider is the offline fallback parser: duration phrases plus a
// keyword category guess. It never fails outright; a message with no
// recognizable task yields an empty list.
type RegexProvider struct{}

// NewRegexProvider builds the fallback parser.
func NewRegexProvider() *RegexProvider { return &RegexProvider{} }

func (p *RegexProvider) Name() string { return "regex" }

// ParseTasks extracts one task per message segment.
func (p *RegexProvider) ParseTasks(_ context.Context, message string) ([]cogsched.Task, error) {
	segments, err := splitSegments(message)
	if err != nil {
		return nil, err
	}

	var tasks []cogsched.Task
	for _, seg := range segments {
		task, ok, err := parseSegment(seg)
		if err != nil {
			return nil, err
		}
		if ok {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func splitSegments(message string) ([]string, error) {
	replaced, err := segmentSplitter.Replace(message, "\x00", -1, -1)
	if err != nil {
		return nil, fmt.Errorf("split message: %w", err)
	}
	var out []string
	for _, s := range strings.Split(replaced, "\x00") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func parseSegment(seg string) (cogsched.Task, bool, error) {
	duration := 60
	m, err := durationPattern.FindStringMatch(seg)
	if err != nil {
		return cogsched.Task{}, false, fmt.Errorf("match duration: %w", err)
	}
	if m != nil {
		num := m.GroupByName("num").String()
		unit := strings.ToLower(m.GroupByName("unit").String())
		var val float64
		fmt.Sscanf(num, "%f", &val)
		if strings.HasPrefix(unit, "h") {
			duration = int(val * 60)
		} else {
			duration = int(val)
		}
		cleaned, rerr := durationPattern.Replace(seg, "", -1, -1)
		if rerr == nil {
			seg = cleaned
		}
	}

	title := cleanTitle(seg)
	if title == "" {
		return cogsched.Task{}, false, nil
	}
	if duration < 25 {
		duration = 25
	}

	return cogsched.Task{
		Title:           title,
		Category:        guessCategory(title),
		Difficulty:      5,
		DurationMinutes: duration,
	}, true, nil
}

// cleanTitle trims filler words and normalizes casing.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"i need to ", "i want to ", "i have to ", "please ", "then ", "also "} {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			s = s[len(prefix):]
		}
	}
	s = strings.Trim(s, " .!?")
	if len(s) < 3 {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func guessCategory(title string) string {
	lower := strings.ToLower(title)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.category
		}
	}
	return "general"
}
