package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

type fakeUsers struct {
	users map[uint]*entities.User
}

func (f *fakeUsers) GetUserByID(id uint) (*entities.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type fakeRuns struct {
	runs    []entities.SyncRun
	listErr error
}

func (f *fakeRuns) ListRecent(userID uint, limit int) ([]entities.SyncRun, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []entities.SyncRun
	for _, run := range f.runs {
		if run.UserID == userID {
			out = append(out, run)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRuns) LastRun(userID uint) (*entities.SyncRun, error) {
	for _, run := range f.runs {
		if run.UserID == userID {
			r := run
			return &r, nil
		}
	}
	return nil, nil
}

type fakeWatermarks struct {
	marks map[uint]string
}

func (f *fakeWatermarks) GetWatermark(userID uint) (string, error) {
	return f.marks[userID], nil
}

type fakeEnqueuer struct {
	calls []struct {
		userID   uint
		daysBack int
	}
	err error
}

func (f *fakeEnqueuer) EnqueueSync(userID uint, daysBack int) error {
	f.calls = append(f.calls, struct {
		userID   uint
		daysBack int
	}{userID, daysBack})
	return f.err
}

type fakeNextRun struct {
	next time.Time
}

func (f *fakeNextRun) NextRunTime(userID uint) *time.Time {
	if f.next.IsZero() {
		return nil
	}
	return &f.next
}

func setupSyncRouter(t *testing.T, cfg RouterConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	controller := NewSyncController(cfg.Users, cfg.Runs, cfg.Watermarks, cfg.Enqueuer, cfg.Scheduler)
	router.POST("/api/sync/:userID", controller.Trigger)
	router.GET("/api/sync/:userID/runs", controller.ListRuns)
	router.GET("/api/sync/:userID/status", controller.Status)
	return router
}

func TestSyncController_Trigger(t *testing.T) {
	users := &fakeUsers{users: map[uint]*entities.User{
		1: {ID: 1, SyncEnabled: true},
	}}

	t.Run("enqueues sync for known user", func(t *testing.T) {
		enqueuer := &fakeEnqueuer{}
		router := setupSyncRouter(t, RouterConfig{
			Users: users, Runs: &fakeRuns{}, Watermarks: &fakeWatermarks{}, Enqueuer: enqueuer,
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sync/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, enqueuer.calls, 1)
		assert.Equal(t, uint(1), enqueuer.calls[0].userID)
		assert.Equal(t, 0, enqueuer.calls[0].daysBack)
	})

	t.Run("passes days_back override", func(t *testing.T) {
		enqueuer := &fakeEnqueuer{}
		router := setupSyncRouter(t, RouterConfig{
			Users: users, Runs: &fakeRuns{}, Watermarks: &fakeWatermarks{}, Enqueuer: enqueuer,
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sync/1?days_back=30", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, enqueuer.calls, 1)
		assert.Equal(t, 30, enqueuer.calls[0].daysBack)
	})

	t.Run("rejects malformed days_back", func(t *testing.T) {
		router := setupSyncRouter(t, RouterConfig{
			Users: users, Runs: &fakeRuns{}, Watermarks: &fakeWatermarks{}, Enqueuer: &fakeEnqueuer{},
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sync/1?days_back=soon", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("404 on unknown user", func(t *testing.T) {
		router := setupSyncRouter(t, RouterConfig{
			Users: users, Runs: &fakeRuns{}, Watermarks: &fakeWatermarks{}, Enqueuer: &fakeEnqueuer{},
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sync/42", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("400 on malformed user ID", func(t *testing.T) {
		router := setupSyncRouter(t, RouterConfig{
			Users: users, Runs: &fakeRuns{}, Watermarks: &fakeWatermarks{}, Enqueuer: &fakeEnqueuer{},
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sync/abc", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("503 when task queue is not running", func(t *testing.T) {
		router := setupSyncRouter(t, RouterConfig{
			Users: users, Runs: &fakeRuns{}, Watermarks: &fakeWatermarks{},
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sync/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("500 when enqueue fails", func(t *testing.T) {
		router := setupSyncRouter(t, RouterConfig{
			Users: users, Runs: &fakeRuns{}, Watermarks: &fakeWatermarks{},
			Enqueuer: &fakeEnqueuer{err: fmt.Errorf("queue closed")},
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sync/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestSyncController_ListRuns(t *testing.T) {
	users := &fakeUsers{users: map[uint]*entities.User{
		1: {ID: 1},
	}}
	runs := &fakeRuns{runs: []entities.SyncRun{
		{ID: 2, UserID: 1, Status: entities.SyncRunSuccess, HighlightsSynced: 5},
		{ID: 1, UserID: 1, Status: entities.SyncRunFailed, Details: "bad token"},
		{ID: 3, UserID: 2, Status: entities.SyncRunSuccess},
	}}

	router := setupSyncRouter(t, RouterConfig{Users: users, Runs: runs, Watermarks: &fakeWatermarks{}})

	t.Run("returns user runs", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/sync/1/runs", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			UserID uint               `json:"user_id"`
			Runs   []entities.SyncRun `json:"runs"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, uint(1), response.UserID)
		assert.Len(t, response.Runs, 2)
	})

	t.Run("respects limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/sync/1/runs?limit=1", nil)
		router.ServeHTTP(w, req)

		var response struct {
			Runs []entities.SyncRun `json:"runs"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Runs, 1)
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/sync/1/runs?limit=0", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncController_Status(t *testing.T) {
	users := &fakeUsers{users: map[uint]*entities.User{
		1: {ID: 1, SyncEnabled: true},
		2: {ID: 2},
	}}
	runs := &fakeRuns{runs: []entities.SyncRun{
		{ID: 1, UserID: 1, Status: entities.SyncRunSuccess, HighlightsSynced: 7},
	}}
	watermarks := &fakeWatermarks{marks: map[uint]string{1: "2024-06-01T09:00:00Z"}}

	t.Run("reports watermark and last run", func(t *testing.T) {
		next := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
		router := setupSyncRouter(t, RouterConfig{
			Users: users, Runs: runs, Watermarks: watermarks, Scheduler: &fakeNextRun{next: next},
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/sync/1/status", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response SyncStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, uint(1), response.UserID)
		assert.True(t, response.SyncEnabled)
		assert.Equal(t, "2024-06-01T09:00:00Z", response.LastSyncAt)
		assert.Equal(t, "2024-06-02T09:00:00Z", response.NextRunAt)
		require.NotNil(t, response.LastRun)
		assert.Equal(t, 7, response.LastRun.HighlightsSynced)
	})

	t.Run("omits empty fields for user with no history", func(t *testing.T) {
		router := setupSyncRouter(t, RouterConfig{Users: users, Runs: runs, Watermarks: watermarks})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/sync/2/status", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.NotContains(t, body, "last_sync_at")
		assert.NotContains(t, body, "next_run_at")
		assert.NotContains(t, body, "last_run")
	})
}
