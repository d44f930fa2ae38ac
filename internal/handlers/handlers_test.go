package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikearonapi/autorev-sub014/internal/models"
	"github.com/mikearonapi/autorev-sub014/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubJobReader struct {
	job  *models.IngestionJob
	jobs []models.IngestionJob
	err  error
}

func (s *stubJobReader) Get(context.Context, uuid.UUID) (*models.IngestionJob, error) {
	return s.job, s.err
}

func (s *stubJobReader) List(context.Context, int) ([]models.IngestionJob, error) {
	return s.jobs, s.err
}

type stubAuditRunReader struct {
	run *models.AuditRun
	err error
}

func (s *stubAuditRunReader) Latest(context.Context) (*models.AuditRun, error) {
	return s.run, s.err
}

func jobRouter(jobs JobReader) *gin.Engine {
	router := gin.New()
	handler := NewJobHandler(jobs, zap.NewNop())
	router.GET("/api/v1/jobs", handler.ListJobs)
	router.GET("/api/v1/jobs/:id", handler.GetJob)
	return router
}

func auditRouter(runs AuditRunReader) *gin.Engine {
	router := gin.New()
	handler := NewAuditHandler(runs, zap.NewNop())
	router.GET("/api/v1/audit/latest", handler.LatestRun)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetJob(t *testing.T) {
	jobID := uuid.New()
	job := &models.IngestionJob{
		ID:        jobID,
		SourceKey: "carshowfinder",
		Status:    models.JobCompleted,
		StartedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Counters:  models.RunCounters{Discovered: 5, Inserted: 4, Rejected: 1},
	}

	rec := doRequest(t, jobRouter(&stubJobReader{job: job}), "/api/v1/jobs/"+jobID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.IngestionJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, jobID, got.ID)
	assert.Equal(t, models.JobCompleted, got.Status)
	assert.Equal(t, 4, got.Counters.Inserted)
}

func TestGetJobInvalidID(t *testing.T) {
	rec := doRequest(t, jobRouter(&stubJobReader{}), "/api/v1/jobs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid job id")
}

func TestGetJobNotFound(t *testing.T) {
	rec := doRequest(t, jobRouter(&stubJobReader{err: repository.ErrNotFound}),
		"/api/v1/jobs/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobDatabaseError(t *testing.T) {
	rec := doRequest(t, jobRouter(&stubJobReader{err: errors.New("connection refused")}),
		"/api/v1/jobs/"+uuid.NewString())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused",
		"internal errors must not leak to clients")
}

func TestListJobs(t *testing.T) {
	jobs := []models.IngestionJob{
		{ID: uuid.New(), SourceKey: "all", Status: models.JobCompleted},
		{ID: uuid.New(), SourceKey: "carshowfinder", Status: models.JobFailed},
	}

	rec := doRequest(t, jobRouter(&stubJobReader{jobs: jobs}), "/api/v1/jobs?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Jobs  []models.IngestionJob `json:"jobs"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Jobs, 2)
}

func TestListJobsEmptyIsAnArray(t *testing.T) {
	rec := doRequest(t, jobRouter(&stubJobReader{}), "/api/v1/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jobs":[]`)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestListJobsInvalidLimit(t *testing.T) {
	for _, limit := range []string{"0", "-5", "9000", "abc"} {
		rec := doRequest(t, jobRouter(&stubJobReader{}), "/api/v1/jobs?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestLatestAuditRun(t *testing.T) {
	run := &models.AuditRun{
		ID:               uuid.New(),
		RanAt:            time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		Passed:           false,
		TotalEvents:      50,
		RequiredFindings: 2,
	}

	rec := doRequest(t, auditRouter(&stubAuditRunReader{run: run}), "/api/v1/audit/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.AuditRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.False(t, got.Passed)
	assert.Equal(t, 2, got.RequiredFindings)
}

func TestLatestAuditRunNoneRecorded(t *testing.T) {
	rec := doRequest(t, auditRouter(&stubAuditRunReader{err: repository.ErrNotFound}),
		"/api/v1/audit/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestAuditRunDatabaseError(t *testing.T) {
	rec := doRequest(t, auditRouter(&stubAuditRunReader{err: errors.New("timeout")}),
		"/api/v1/audit/latest")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	router := gin.New()
	router.GET("/health", NewHealthHandler().HealthCheck)

	rec := doRequest(t, router, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
