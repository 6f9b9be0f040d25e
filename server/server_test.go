package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohamukute/CogScheduler/core/cogsched"
	"github.com/sohamukute/CogScheduler/core/engine"
	"github.com/sohamukute/CogScheduler/core/llm"
	"github.com/sohamukute/CogScheduler/core/memory"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	eng := engine.New(memory.NewMemStore(), llm.NewChain(llm.NewRegexProvider()), cogsched.DefaultConfig())
	return New(eng).Router()
}

func newSQLiteRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := memory.OpenSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	eng := engine.New(store, llm.NewChain(llm.NewRegexProvider()), cogsched.DefaultConfig())
	return New(eng).Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "cognitive-scheduler", body["service"])
}

func TestScheduleEndpoint(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/schedule", map[string]any{
		"profile": map[string]any{
			"chronotype": "normal", "wake_time": "07:00", "sleep_time": "23:00",
			"sleep_hours": 7.0, "stress_level": 2,
		},
		"tasks": []map[string]any{
			{"title": "Study Calculus", "category": "math", "difficulty": 7, "duration_minutes": 100},
		},
		"available_from": "09:00",
		"available_to":   "17:00",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	plan := body["plan"].(map[string]any)
	assert.NotEmpty(t, plan["schedule"])
	assert.NotEmpty(t, plan["energy_curve"])
	assert.NotEmpty(t, body["gamification"])
	assert.Equal(t, true, body["persisted"])
}

func TestScheduleEndpointRejectsBadWindow(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/schedule", map[string]any{
		"profile": map[string]any{
			"chronotype": "normal", "sleep_hours": 7.0, "stress_level": 2,
		},
		"tasks":          []map[string]any{},
		"available_from": "18:00",
		"available_to":   "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConverseEndpoint(t *testing.T) {
	router := newTestRouter()

	// Store a profile first so conversation schedules against it.
	w := doJSON(t, router, http.MethodPut, "/profile", map[string]any{
		"chronotype": "early", "wake_time": "06:00", "sleep_time": "22:00",
		"sleep_hours": 8.0, "stress_level": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/converse", map[string]any{
		"message": "study calculus for 2 hours and read chapter 3",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	parsed := body["parsed_tasks"].([]any)
	assert.Len(t, parsed, 2)
	assert.NotEmpty(t, body["plan"].(map[string]any)["schedule"])
}

func TestConverseEndpointRequiresMessage(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/converse", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigEndpoints(t *testing.T) {
	router := newTestRouter()

	w := doJSON(t, router, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25.0, decodeBody(t, w)["quantum_min"])

	// Unknown keys reject the whole update.
	w = doJSON(t, router, http.MethodPut, "/config", map[string]any{
		"quantum_min": 30, "bogus": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25.0, decodeBody(t, w)["quantum_min"])

	// A clean update lands.
	w = doJSON(t, router, http.MethodPut, "/config", map[string]any{"quantum_min": 30})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30.0, decodeBody(t, w)["quantum_min"])
}

func TestProfileEndpoints(t *testing.T) {
	router := newTestRouter()

	// Unset profile reads back as defaults.
	w := doJSON(t, router, http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "normal", decodeBody(t, w)["chronotype"])

	w = doJSON(t, router, http.MethodPut, "/profile", map[string]any{
		"chronotype": "late", "sleep_hours": 6.5, "stress_level": 3,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "late", decodeBody(t, w)["chronotype"])

	// Invalid chronotype is the caller's fault.
	w = doJSON(t, router, http.MethodPut, "/profile", map[string]any{
		"chronotype": "nocturnal", "sleep_hours": 6.5, "stress_level": 3,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTLXFeedbackEndpoint(t *testing.T) {
	router := newTestRouter()
	entry := map[string]any{"block_index": 0, "mental_demand": 5, "effort": 5}

	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodPost, "/tlx-feedback", entry)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["recalibrated"])
	}

	w := doJSON(t, router, http.MethodPost, "/tlx-feedback", entry)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["recalibrated"])
	assert.Equal(t, 3.0, body["entries"])
	assert.GreaterOrEqual(t, body["fatigue_consec_weight"].(float64), 0.40)

	// Out-of-range scales are rejected.
	w = doJSON(t, router, http.MethodPost, "/tlx-feedback", map[string]any{
		"block_index": 0, "mental_demand": 9, "effort": 5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// The default "local" user has no users row until a write path creates one;
// every endpoint that persists must work against the real database, not just
// the in-memory double.
func TestWriteEndpointsOverSQLite(t *testing.T) {
	router := newSQLiteRouter(t)

	w := doJSON(t, router, http.MethodPut, "/profile", map[string]any{
		"chronotype": "early", "wake_time": "06:00", "sleep_time": "22:00",
		"sleep_hours": 7.5, "stress_level": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPut, "/config", map[string]any{"quantum_min": 30})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30.0, decodeBody(t, w)["quantum_min"])

	entry := map[string]any{"block_index": 0, "mental_demand": 5, "effort": 5}
	for i := 0; i < 2; i++ {
		w = doJSON(t, router, http.MethodPost, "/tlx-feedback", entry)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/tlx-feedback", entry)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["recalibrated"])

	w = doJSON(t, router, http.MethodPost, "/schedule", map[string]any{
		"profile": map[string]any{
			"chronotype": "normal", "sleep_hours": 7.0, "stress_level": 2,
		},
		"tasks": []map[string]any{
			{"title": "Study Calculus", "category": "math", "difficulty": 7, "duration_minutes": 60},
		},
		"available_from": "09:00",
		"available_to":   "13:00",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["persisted"])

	w = doJSON(t, router, http.MethodGet, "/calendar/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
}

func TestCalendarExport(t *testing.T) {
	router := newTestRouter()

	// Nothing persisted yet.
	w := doJSON(t, router, http.MethodGet, "/calendar/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/schedule", map[string]any{
		"profile": map[string]any{
			"chronotype": "normal", "sleep_hours": 7.0, "stress_level": 2,
		},
		"tasks": []map[string]any{
			{"title": "Study Calculus", "category": "math", "difficulty": 7, "duration_minutes": 50},
		},
		"available_from": "09:00",
		"available_to":   "12:00",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/calendar/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")

	ics := w.Body.String()
	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Contains(t, ics, "SUMMARY:Study Calculus")
	assert.Contains(t, ics, "CATEGORIES:Deep Work")
	assert.Contains(t, ics, "TRIGGER:-PT5M")
	assert.Contains(t, ics, "END:VCALENDAR")
}
