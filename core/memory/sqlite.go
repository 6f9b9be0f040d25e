package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	external_id TEXT UNIQUE NOT NULL,
	email       TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	avatar_url  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS profiles (
	user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	profile    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS schedules (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	schedule_data   TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	calendar_synced INTEGER NOT NULL DEFAULT 0,
	had_deep_work   INTEGER NOT NULL DEFAULT 0,
	streak          INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_schedules_user_created
	ON schedules(user_id, created_at DESC);
CREATE TABLE IF NOT EXISTS tlx_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	block_index   INTEGER NOT NULL,
	mental_demand INTEGER NOT NULL,
	effort        INTEGER NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS config_overrides (
	user_id   TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	overrides TEXT NOT NULL
);
`

// SQLiteStore is the default Store, one file per deployment.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) a SQLite database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ensureUserRow provisions a bare user for header-identified callers so the
// foreign keys on profiles, schedules, tlx_log, and config_overrides hold.
// The OAuth flow fills the row in via UpsertUser later.
func ensureUserRow(ctx context.Context, db execer, userID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (id, external_id, email, name, avatar_url, created_at)
		VALUES (?, ?, '', '', '', ?)`, userID, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// UpsertUser inserts or refreshes a user row keyed by external_id.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, external_id, email, name, avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			email = excluded.email, name = excluded.name, avatar_url = excluded.avatar_url`,
		u.ID, u.ExternalID, u.Email, u.Name, u.AvatarURL, u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, email, name, avatar_url, created_at FROM users WHERE external_id = ?`,
		u.ExternalID)
	var out User
	if err := row.Scan(&out.ID, &out.ExternalID, &out.Email, &out.Name, &out.AvatarURL, &out.CreatedAt); err != nil {
		return User{}, fmt.Errorf("reload user: %w", err)
	}
	return out, nil
}

// GetUser fetches a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, email, name, avatar_url, created_at FROM users WHERE id = ?`, userID)
	var u User
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.AvatarURL, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// DeleteUser removes the user; foreign keys cascade the rest.
func (s *SQLiteStore) DeleteUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertProfile stores the profile JSON one-to-one with the user.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, userID string, p cogsched.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := ensureUserRow(ctx, s.db, userID); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, profile, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		userID, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile loads the user's profile.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*cogsched.Profile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM profiles WHERE user_id = ?`, userID).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var p cogsched.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// SaveSchedule inserts a schedule row.
func (s *SQLiteStore) SaveSchedule(ctx context.Context, rec ScheduleRecord) (ScheduleRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := ensureUserRow(ctx, s.db, rec.UserID); err != nil {
		return ScheduleRecord{}, err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, user_id, schedule_data, created_at, calendar_synced, had_deep_work, streak)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, string(rec.Data), rec.CreatedAt, rec.CalendarSynced, rec.HadDeepWork, rec.Streak)
	if err != nil {
		return ScheduleRecord{}, fmt.Errorf("save schedule: %w", err)
	}
	return rec, nil
}

// LatestSchedule returns the newest schedule for the user, or ErrNotFound.
func (s *SQLiteStore) LatestSchedule(ctx context.Context, userID string) (*ScheduleRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, schedule_data, created_at, calendar_synced, had_deep_work, streak
		FROM schedules WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`, userID)
	var rec ScheduleRecord
	var data string
	err := row.Scan(&rec.ID, &rec.UserID, &data, &rec.CreatedAt, &rec.CalendarSynced, &rec.HadDeepWork, &rec.Streak)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest schedule: %w", err)
	}
	rec.Data = json.RawMessage(data)
	return &rec, nil
}

// MarkCalendarSynced flips the sync flag after an export.
func (s *SQLiteStore) MarkCalendarSynced(ctx context.Context, scheduleID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET calendar_synced = 1 WHERE id = ?`, scheduleID)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TLXHistory returns the append-only TLX log in insertion order.
func (s *SQLiteStore) TLXHistory(ctx context.Context, userID string) ([]cogsched.TLXEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT block_index, mental_demand, effort, created_at
		FROM tlx_log WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("tlx history: %w", err)
	}
	defer rows.Close()
	var out []cogsched.TLXEntry
	for rows.Next() {
		var e cogsched.TLXEntry
		if err := rows.Scan(&e.BlockIndex, &e.MentalDemand, &e.Effort, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan tlx: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendTLX appends a log entry and, when overrides is non-nil, updates the
// per-user config overrides in the same transaction.
func (s *SQLiteStore) AppendTLX(ctx context.Context, userID string, e cogsched.TLXEntry, overrides map[string]any) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tlx tx: %w", err)
	}
	defer tx.Rollback()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := ensureUserRow(ctx, tx, userID); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tlx_log (user_id, block_index, mental_demand, effort, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, e.BlockIndex, e.MentalDemand, e.Effort, e.Timestamp); err != nil {
		return 0, fmt.Errorf("append tlx: %w", err)
	}

	if overrides != nil {
		raw, err := json.Marshal(overrides)
		if err != nil {
			return 0, fmt.Errorf("encode overrides: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO config_overrides (user_id, overrides) VALUES (?, ?)
			ON CONFLICT(user_id) DO UPDATE SET overrides = excluded.overrides`,
			userID, string(raw)); err != nil {
			return 0, fmt.Errorf("update overrides: %w", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tlx_log WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tlx: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tlx: %w", err)
	}
	return count, nil
}

// ConfigOverrides returns the user's config overrides, empty when unset.
func (s *SQLiteStore) ConfigOverrides(ctx context.Context, userID string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT overrides FROM config_overrides WHERE user_id = ?`, userID).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("get overrides: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode overrides: %w", err)
	}
	return out, nil
}

// SetConfigOverrides replaces the user's config overrides.
func (s *SQLiteStore) SetConfigOverrides(ctx context.Context, userID string, overrides map[string]any) error {
	raw, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encode overrides: %w", err)
	}
	if err := ensureUserRow(ctx, s.db, userID); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config_overrides (user_id, overrides) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET overrides = excluded.overrides`,
		userID, string(raw))
	if err != nil {
		return fmt.Errorf("set overrides: %w", err)
	}
	return nil
}
