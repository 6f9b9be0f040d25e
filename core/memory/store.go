// Package memory persists users, profiles, schedules, the per-user TLX log
// and config overrides. The engine itself performs no I/O; everything
// flows through the Store interface so SQLite, Supabase, and the in-memory
// test double are interchangeable.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

// ErrNotFound is returned for missing users, profiles, or schedules.
var ErrNotFound = errors.New("not found")

// User mirrors the users table. ExternalID carries the OAuth subject; the
// auth flow itself lives outside this repository.
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScheduleRecord mirrors the schedules table. Data holds the full plan
// payload; HadDeepWork and Streak are denormalized for streak lookups.
type ScheduleRecord struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Data           json.RawMessage `json:"schedule_data"`
	CreatedAt      time.Time       `json:"created_at"`
	CalendarSynced bool            `json:"calendar_synced"`
	HadDeepWork    bool            `json:"had_deep_work"`
	Streak         int             `json:"streak"`
}

// Store is the persistence contract. Implementations must make AppendTLX
// transactional: the log append and the weight-override update land
// together or not at all. Write methods provision a bare user row when the
// user ID has never been seen; header-identified callers (X-User-ID) reach
// the store without ever passing through UpsertUser.
type Store interface {
	UpsertUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	// DeleteUser cascades the profile, schedules, TLX log, and overrides.
	DeleteUser(ctx context.Context, userID string) error

	UpsertProfile(ctx context.Context, userID string, p cogsched.Profile) error
	GetProfile(ctx context.Context, userID string) (*cogsched.Profile, error)

	SaveSchedule(ctx context.Context, rec ScheduleRecord) (ScheduleRecord, error)
	LatestSchedule(ctx context.Context, userID string) (*ScheduleRecord, error)
	MarkCalendarSynced(ctx context.Context, scheduleID string) error

	TLXHistory(ctx context.Context, userID string) ([]cogsched.TLXEntry, error)
	AppendTLX(ctx context.Context, userID string, e cogsched.TLXEntry, overrides map[string]any) (int, error)

	ConfigOverrides(ctx context.Context, userID string) (map[string]any, error)
	SetConfigOverrides(ctx context.Context, userID string, overrides map[string]any) error

	Close() error
}
