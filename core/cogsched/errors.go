package cogsched

import "errors"

// Error kinds surfaced by the engine. Callers match with errors.Is; the
// wrapped message names the offending field.
var (
	// ErrInvalidWindow means available_from >= available_to or a malformed time.
	ErrInvalidWindow = errors.New("invalid scheduling window")

	// ErrNoFreeTime means commitments fully cover the window.
	ErrNoFreeTime = errors.New("no free time in window")

	// ErrCancelled means the scheduling call was cooperatively cancelled.
	ErrCancelled = errors.New("scheduling cancelled")

	// ErrUnknownConfigKey rejects a config update with an unrecognized key.
	ErrUnknownConfigKey = errors.New("unknown config key")

	// ErrMalformedTask rejects a task with out-of-range fields.
	ErrMalformedTask = errors.New("malformed task")
)
