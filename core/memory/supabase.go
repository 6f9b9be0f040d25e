package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

// SupabaseStore persists to a hosted Postgres via PostgREST. Table layout
// matches the SQLite schema; RLS policies are expected to scope rows by
// user_id on the hosted side.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore connects to the project at url with the given service key.
func NewSupabaseStore(url, key string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

// Close is a no-op; the underlying client is stateless HTTP.
func (s *SupabaseStore) Close() error { return nil }

type supaUser struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// UpsertUser inserts or refreshes a user keyed by external_id.
func (s *SupabaseStore) UpsertUser(_ context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	row := supaUser{ID: u.ID, ExternalID: u.ExternalID, Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL, CreatedAt: u.CreatedAt}
	data, _, err := s.client.From("users").
		Upsert(row, "external_id", "representation", "").
		Execute()
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	var rows []supaUser
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return User{}, fmt.Errorf("upsert user: decode response: %w", err)
	}
	r := rows[0]
	return User{ID: r.ID, ExternalID: r.ExternalID, Email: r.Email, Name: r.Name, AvatarURL: r.AvatarURL, CreatedAt: r.CreatedAt}, nil
}

// GetUser fetches a user by id.
func (s *SupabaseStore) GetUser(_ context.Context, userID string) (*User, error) {
	data, _, err := s.client.From("users").
		Select("*", "", false).
		Eq("id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var rows []supaUser
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("get user: decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	r := rows[0]
	return &User{ID: r.ID, ExternalID: r.ExternalID, Email: r.Email, Name: r.Name, AvatarURL: r.AvatarURL, CreatedAt: r.CreatedAt}, nil
}

// DeleteUser removes the user; ON DELETE CASCADE on the hosted schema drops
// the profile, schedules, TLX log, and overrides.
func (s *SupabaseStore) DeleteUser(_ context.Context, userID string) error {
	data, _, err := s.client.From("users").
		Delete("representation", "").
		Eq("id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	var rows []supaUser
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

// ensureUser provisions a bare user for header-identified callers so the
// hosted foreign keys hold. A concurrent OAuth upsert wins the full record;
// the race resolves to whichever lands last, both with the same id.
func (s *SupabaseStore) ensureUser(userID string) error {
	data, _, err := s.client.From("users").
		Select("id", "", false).
		Eq("id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	var rows []supaUser
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("ensure user: decode: %w", err)
	}
	if len(rows) > 0 {
		return nil
	}
	row := supaUser{ID: userID, ExternalID: userID, CreatedAt: time.Now().UTC()}
	if _, _, err := s.client.From("users").Upsert(row, "id", "", "").Execute(); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

type supaProfile struct {
	UserID    string          `json:"user_id"`
	Profile   json.RawMessage `json:"profile"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// UpsertProfile stores the profile JSON one-to-one with the user.
func (s *SupabaseStore) UpsertProfile(_ context.Context, userID string, p cogsched.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.ensureUser(userID); err != nil {
		return err
	}
	_, _, err = s.client.From("profiles").
		Upsert(supaProfile{UserID: userID, Profile: raw, UpdatedAt: time.Now().UTC()}, "user_id", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile loads the user's profile.
func (s *SupabaseStore) GetProfile(_ context.Context, userID string) (*cogsched.Profile, error) {
	data, _, err := s.client.From("profiles").
		Select("profile", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var rows []supaProfile
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("get profile: decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	var p cogsched.Profile
	if err := json.Unmarshal(rows[0].Profile, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

type supaSchedule struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Data           json.RawMessage `json:"schedule_data"`
	CreatedAt      time.Time       `json:"created_at"`
	CalendarSynced bool            `json:"calendar_synced"`
	HadDeepWork    bool            `json:"had_deep_work"`
	Streak         int             `json:"streak"`
}

// SaveSchedule inserts a schedule row.
func (s *SupabaseStore) SaveSchedule(_ context.Context, rec ScheduleRecord) (ScheduleRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.ensureUser(rec.UserID); err != nil {
		return ScheduleRecord{}, err
	}
	row := supaSchedule{
		ID: rec.ID, UserID: rec.UserID, Data: rec.Data, CreatedAt: rec.CreatedAt,
		CalendarSynced: rec.CalendarSynced, HadDeepWork: rec.HadDeepWork, Streak: rec.Streak,
	}
	_, _, err := s.client.From("schedules").Insert(row, false, "", "", "").Execute()
	if err != nil {
		return ScheduleRecord{}, fmt.Errorf("save schedule: %w", err)
	}
	return rec, nil
}

// LatestSchedule returns the newest schedule for the user, or ErrNotFound.
func (s *SupabaseStore) LatestSchedule(_ context.Context, userID string) (*ScheduleRecord, error) {
	data, _, err := s.client.From("schedules").
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("latest schedule: %w", err)
	}
	var rows []supaSchedule
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("latest schedule: decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	r := rows[0]
	return &ScheduleRecord{
		ID: r.ID, UserID: r.UserID, Data: r.Data, CreatedAt: r.CreatedAt,
		CalendarSynced: r.CalendarSynced, HadDeepWork: r.HadDeepWork, Streak: r.Streak,
	}, nil
}

// MarkCalendarSynced flips the sync flag after an export.
func (s *SupabaseStore) MarkCalendarSynced(_ context.Context, scheduleID string) error {
	_, _, err := s.client.From("schedules").
		Update(map[string]any{"calendar_synced": true}, "", "").
		Eq("id", scheduleID).
		Execute()
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

type supaTLX struct {
	UserID       string    `json:"user_id"`
	BlockIndex   int       `json:"block_index"`
	MentalDemand int       `json:"mental_demand"`
	Effort       int       `json:"effort"`
	CreatedAt    time.Time `json:"created_at"`
}

// TLXHistory returns the append-only TLX log in insertion order.
func (s *SupabaseStore) TLXHistory(_ context.Context, userID string) ([]cogsched.TLXEntry, error) {
	data, _, err := s.client.From("tlx_log").
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("tlx history: %w", err)
	}
	var rows []supaTLX
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("tlx history: decode: %w", err)
	}
	out := make([]cogsched.TLXEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, cogsched.TLXEntry{
			BlockIndex: r.BlockIndex, MentalDemand: r.MentalDemand,
			Effort: r.Effort, Timestamp: r.CreatedAt,
		})
	}
	return out, nil
}

// AppendTLX appends a log entry and updates overrides. PostgREST offers no
// client-side transactions, so the append lands first and the override
// update follows; a crash between the two leaves the overrides one
// recalibration behind, which the next entry repairs.
func (s *SupabaseStore) AppendTLX(ctx context.Context, userID string, e cogsched.TLXEntry, overrides map[string]any) (int, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := s.ensureUser(userID); err != nil {
		return 0, err
	}
	row := supaTLX{UserID: userID, BlockIndex: e.BlockIndex, MentalDemand: e.MentalDemand, Effort: e.Effort, CreatedAt: e.Timestamp}
	_, _, err := s.client.From("tlx_log").Insert(row, false, "", "", "").Execute()
	if err != nil {
		return 0, fmt.Errorf("append tlx: %w", err)
	}

	if overrides != nil {
		if err := s.SetConfigOverrides(ctx, userID, overrides); err != nil {
			return 0, err
		}
	}

	_, count, err := s.client.From("tlx_log").
		Select("id", "exact", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("count tlx: %w", err)
	}
	return int(count), nil
}

type supaOverrides struct {
	UserID    string          `json:"user_id"`
	Overrides json.RawMessage `json:"overrides"`
}

// ConfigOverrides returns the user's config overrides, empty when unset.
func (s *SupabaseStore) ConfigOverrides(_ context.Context, userID string) (map[string]any, error) {
	data, _, err := s.client.From("config_overrides").
		Select("overrides", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("get overrides: %w", err)
	}
	var rows []supaOverrides
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("get overrides: decode: %w", err)
	}
	out := map[string]any{}
	if len(rows) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(rows[0].Overrides, &out); err != nil {
		return nil, fmt.Errorf("decode overrides: %w", err)
	}
	return out, nil
}

// SetConfigOverrides replaces the user's config overrides.
func (s *SupabaseStore) SetConfigOverrides(_ context.Context, userID string, overrides map[string]any) error {
	raw, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encode overrides: %w", err)
	}
	if err := s.ensureUser(userID); err != nil {
		return err
	}
	_, _, err = s.client.From("config_overrides").
		Upsert(supaOverrides{UserID: userID, Overrides: raw}, "user_id", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("set overrides: %w", err)
	}
	return nil
}
