package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkdrift/inkdrift/internal/config"
	"github.com/inkdrift/inkdrift/internal/models"
)

func newTestRouter(t *testing.T, runner Runner) (*gin.Engine, *Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, _ := newTestStore(t, runner)
	cfg := &config.Config{SiteTimezone: "UTC"}

	router := gin.New()
	RegisterRoutes(router.Group("/api"), store, cfg)
	return router, store
}

func TestCreateJobEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRunner{})

	body := `{"title":"Weekly tea roundup","status":"scheduled","publish_at":"2025-05-01T10:30","ignored_field":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var job models.ScheduleJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, "Weekly tea roundup", job.Title)
	assert.Equal(t, models.JobStatusScheduled, job.Status)
	require.NotNil(t, job.PublishAt)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC), job.PublishAt.UTC())
}

func TestCreateJobEndpointInvalidJSON(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetJobEndpointNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/abc", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchJobEndpoint(t *testing.T) {
	router, store := newTestRouter(t, &fakeRunner{})

	job, err := store.Create(context.Background(), Payload{Title: strPtr("Before")}, time.UTC)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/api/jobs/1", strings.NewReader(`{"title":"After"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	reloaded, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", reloaded.Title)
}

func TestRunJobEndpoint(t *testing.T) {
	runner := &fakeRunner{ok: true, postID: 5}
	router, store := newTestRouter(t, runner)

	_, err := store.Create(context.Background(), Payload{
		Status: strPtr(models.JobStatusScheduled),
	}, time.UTC)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/1/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ran":true}`, w.Body.String())

	// A completed job cannot be re-run; the endpoint reports the conflict.
	req = httptest.NewRequest(http.MethodPost, "/api/jobs/1/run", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListJobsEndpoint(t *testing.T) {
	router, store := newTestRouter(t, &fakeRunner{})

	for i := 0; i < 2; i++ {
		_, err := store.Create(context.Background(), Payload{
			Status: strPtr(models.JobStatusScheduled),
		}, time.UTC)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?status=scheduled", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var result ListResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.EqualValues(t, 2, result.Total)
	assert.Len(t, result.Items, 2)
}
