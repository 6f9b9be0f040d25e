package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

// MemStore is an in-memory Store for tests and the offline CLI path.
type MemStore struct {
	mu        sync.RWMutex
	users     map[string]User
	profiles  map[string]cogsched.Profile
	schedules map[string][]ScheduleRecord
	tlx       map[string][]cogsched.TLXEntry
	overrides map[string]map[string]any
}

// NewMemStore builds an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:     make(map[string]User),
		profiles:  make(map[string]cogsched.Profile),
		schedules: make(map[string][]ScheduleRecord),
		tlx:       make(map[string][]cogsched.TLXEntry),
		overrides: make(map[string]map[string]any),
	}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) UpsertUser(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.users {
		if existing.ExternalID == u.ExternalID {
			existing.Email, existing.Name, existing.AvatarURL = u.Email, u.Name, u.AvatarURL
			s.users[id] = existing
			return existing, nil
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemStore) GetUser(_ context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemStore) DeleteUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	delete(s.users, userID)
	delete(s.profiles, userID)
	delete(s.schedules, userID)
	delete(s.tlx, userID)
	delete(s.overrides, userID)
	return nil
}

// ensureUserLocked provisions a bare user row; callers hold s.mu.
func (s *MemStore) ensureUserLocked(userID string) {
	if _, ok := s.users[userID]; !ok {
		s.users[userID] = User{ID: userID, ExternalID: userID, CreatedAt: time.Now().UTC()}
	}
}

func (s *MemStore) UpsertProfile(_ context.Context, userID string, p cogsched.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureUserLocked(userID)
	s.profiles[userID] = p
	return nil
}

func (s *MemStore) GetProfile(_ context.Context, userID string) (*cogsched.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemStore) SaveSchedule(_ context.Context, rec ScheduleRecord) (ScheduleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.ensureUserLocked(rec.UserID)
	s.schedules[rec.UserID] = append(s.schedules[rec.UserID], rec)
	return rec, nil
}

func (s *MemStore) LatestSchedule(_ context.Context, userID string) (*ScheduleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.schedules[userID]
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	sorted := make([]ScheduleRecord, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	out := sorted[0]
	return &out, nil
}

func (s *MemStore) MarkCalendarSynced(_ context.Context, scheduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, recs := range s.schedules {
		for i := range recs {
			if recs[i].ID == scheduleID {
				s.schedules[userID][i].CalendarSynced = true
				return nil
			}
		}
	}
	return ErrNotFound
}

func (s *MemStore) TLXHistory(_ context.Context, userID string) ([]cogsched.TLXEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.tlx[userID]
	out := make([]cogsched.TLXEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemStore) AppendTLX(_ context.Context, userID string, e cogsched.TLXEntry, overrides map[string]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.ensureUserLocked(userID)
	s.tlx[userID] = append(s.tlx[userID], e)
	if overrides != nil {
		s.overrides[userID] = overrides
	}
	return len(s.tlx[userID]), nil
}

func (s *MemStore) ConfigOverrides(_ context.Context, userID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]any{}
	for k, v := range s.overrides[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *MemStore) SetConfigOverrides(_ context.Context, userID string, overrides map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureUserLocked(userID)
	s.overrides[userID] = overrides
	return nil
}
