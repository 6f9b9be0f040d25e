package memory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store Store) User {
	t.Helper()
	u, err := store.UpsertUser(context.Background(), User{
		ExternalID: "oauth|123",
		Email:      "sam@example.com",
		Name:       "Sam",
	})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	return u
}

func TestSQLiteUserRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	u := seedUser(t, store)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", got.Email)

	// Upserting the same external id updates in place.
	again, err := store.UpsertUser(ctx, User{ExternalID: "oauth|123", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "new@example.com", again.Email)

	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteProfileRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, store)

	p := cogsched.DefaultProfile()
	p.Name = "Sam"
	p.Chronotype = "late"
	p.DailyCommitments = []string{"10:00-11:00 Math Lecture"}

	require.NoError(t, store.UpsertProfile(ctx, u.ID, p))

	got, err := store.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, p, *got)

	_, err = store.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteLatestSchedule(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, store)

	_, err := store.LatestSchedule(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := store.SaveSchedule(ctx, ScheduleRecord{
		UserID: u.ID, Data: json.RawMessage(`{"n":1}`), HadDeepWork: true, Streak: 1,
	})
	require.NoError(t, err)

	second, err := store.SaveSchedule(ctx, ScheduleRecord{
		UserID: u.ID, Data: json.RawMessage(`{"n":2}`),
		CreatedAt: first.CreatedAt.Add(time.Minute), HadDeepWork: false, Streak: 0,
	})
	require.NoError(t, err)

	latest, err := store.LatestSchedule(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.JSONEq(t, `{"n":2}`, string(latest.Data))

	require.NoError(t, store.MarkCalendarSynced(ctx, latest.ID))
	latest, err = store.LatestSchedule(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, latest.CalendarSynced)

	assert.ErrorIs(t, store.MarkCalendarSynced(ctx, "missing"), ErrNotFound)
}

func TestSQLiteAppendTLX(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, store)

	entry := cogsched.TLXEntry{BlockIndex: 0, MentalDemand: 5, Effort: 4}

	count, err := store.AppendTLX(ctx, u.ID, entry, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The third append carries recalibrated weights in the same transaction.
	_, err = store.AppendTLX(ctx, u.ID, entry, nil)
	require.NoError(t, err)
	count, err = store.AppendTLX(ctx, u.ID, entry, map[string]any{"fatigue_consec_weight": 0.41})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	history, err := store.TLXHistory(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 5, history[0].MentalDemand)

	overrides, err := store.ConfigOverrides(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.41, overrides["fatigue_consec_weight"])
}

// Header-identified callers never pass through UpsertUser, so every write
// path must provision the user row itself or the foreign keys reject it.
func TestSQLiteProvisionsUnknownUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	const userID = "local"

	require.NoError(t, store.UpsertProfile(ctx, userID, cogsched.DefaultProfile()))
	require.NoError(t, store.SetConfigOverrides(ctx, userID, map[string]any{"quantum_min": 30}))

	count, err := store.AppendTLX(ctx, userID, cogsched.TLXEntry{MentalDemand: 4, Effort: 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rec, err := store.SaveSchedule(ctx, ScheduleRecord{UserID: userID, Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	u, err := store.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, u.ID)
	assert.Equal(t, userID, u.ExternalID)

	// The OAuth flow later fills in the bare row without forking a new one.
	filled, err := store.UpsertUser(ctx, User{ExternalID: userID, Email: "local@example.com"})
	require.NoError(t, err)
	assert.Equal(t, userID, filled.ID)
	assert.Equal(t, "local@example.com", filled.Email)
}

func TestSQLiteDeleteUserCascades(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, store)

	require.NoError(t, store.UpsertProfile(ctx, u.ID, cogsched.DefaultProfile()))
	_, err := store.SaveSchedule(ctx, ScheduleRecord{UserID: u.ID, Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = store.AppendTLX(ctx, u.ID, cogsched.TLXEntry{MentalDemand: 4, Effort: 4}, map[string]any{"quantum_min": 30})
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(ctx, u.ID))

	_, err = store.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetProfile(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.LatestSchedule(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := store.TLXHistory(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, store.DeleteUser(ctx, u.ID), ErrNotFound)
}

// The in-memory double must honor the same contract the SQLite store does.
func TestMemStoreContract(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	u := seedUser(t, store)

	require.NoError(t, store.UpsertProfile(ctx, u.ID, cogsched.DefaultProfile()))
	_, err := store.SaveSchedule(ctx, ScheduleRecord{UserID: u.ID, Data: json.RawMessage(`{}`)})
	require.NoError(t, err)

	count, err := store.AppendTLX(ctx, u.ID, cogsched.TLXEntry{MentalDemand: 3, Effort: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.DeleteUser(ctx, u.ID))
	_, err = store.GetProfile(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
