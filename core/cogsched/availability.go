package cogsched

import (
	"fmt"
	"sort"
)

type fixedKind int

const (
	fixedCommitment fixedKind = iota
	fixedPreferredBreak
)

// fixedEvent is an interval the scheduler must not place work into: a
// commitment carried verbatim into the plan, or a user-preferred break.
type fixedEvent struct {
	Interval
	Label string
	kind  fixedKind
}

// availability is the normalized view of the user's day: the overall window,
// the fixed events inside it, and the ordered free intervals between them.
type availability struct {
	window Interval
	fixed  []fixedEvent
	free   []Interval
}

// buildAvailability normalizes commitments and preferred breaks against the
// scheduling window. Events outside the window are dropped; overlapping
// events merge, the later label winning for display.
func buildAvailability(from, to string, p Profile) (*availability, error) {
	start, err := ParseClock(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(to)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, fmt.Errorf("%w: available_from %s >= available_to %s",
			ErrInvalidWindow, from, to)
	}
	window := Interval{Start: start, End: end}

	var events []fixedEvent
	for _, raw := range p.DailyCommitments {
		c, err := parseCommitment(raw)
		if err != nil {
			return nil, err
		}
		if iv, ok := c.Interval.Clamp(window); ok {
			events = append(events, fixedEvent{Interval: iv, Label: c.Label, kind: fixedCommitment})
		}
	}
	for _, raw := range p.BreakPreferences {
		iv, err := ParseRange(raw)
		if err != nil {
			return nil, err
		}
		if iv, ok := iv.Clamp(window); ok {
			events = append(events, fixedEvent{Interval: iv, Label: "Break", kind: fixedPreferredBreak})
		}
	}

	events = mergeFixedEvents(events)

	free := subtractEvents(window, events)
	if len(free) == 0 {
		return nil, fmt.Errorf("%w: commitments cover %s-%s", ErrNoFreeTime, from, to)
	}

	return &availability{window: window, fixed: events, free: free}, nil
}

// mergeFixedEvents sorts events and merges overlaps. A commitment absorbs an
// overlapping preferred break; between commitments the later one in input
// order keeps its label.
func mergeFixedEvents(events []fixedEvent) []fixedEvent {
	if len(events) == 0 {
		return nil
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})
	merged := []fixedEvent{events[0]}
	for _, ev := range events[1:] {
		last := &merged[len(merged)-1]
		if ev.Start >= last.End {
			merged = append(merged, ev)
			continue
		}
		if ev.End > last.End {
			last.End = ev.End
		}
		if ev.kind == fixedCommitment {
			last.kind = fixedCommitment
			last.Label = ev.Label
		}
	}
	return merged
}

// subtractEvents removes the fixed events from the window, yielding the
// ordered free intervals.
func subtractEvents(window Interval, events []fixedEvent) []Interval {
	var free []Interval
	cursor := window.Start
	for _, ev := range events {
		if ev.Start > cursor {
			free = append(free, Interval{Start: cursor, End: ev.Start})
		}
		if ev.End > cursor {
			cursor = ev.End
		}
	}
	if cursor < window.End {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// FreeMinutes totals the schedulable minutes.
func (a *availability) FreeMinutes() int {
	total := 0
	for _, iv := range a.free {
		total += iv.Duration()
	}
	return total
}
