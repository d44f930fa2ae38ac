package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikearonapi/autorev-sub014/internal/models"
	"github.com/mikearonapi/autorev-sub014/internal/repository"
)

// JobReader is the read-only surface over ingestion job rows.
type JobReader interface {
	Get(ctx context.Context, jobID uuid.UUID) (*models.IngestionJob, error)
	List(ctx context.Context, limit int) ([]models.IngestionJob, error)
}

// JobHandler serves job status queries. Terminal states are authoritative:
// a job reported here as running is genuinely still active, because
// cancellation paths always land jobs in a terminal state.
type JobHandler struct {
	jobs   JobReader
	logger *zap.Logger
}

func NewJobHandler(jobs JobReader, logger *zap.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Invalid job id",
			"status": http.StatusBadRequest,
		})
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Job not found",
			"status": http.StatusNotFound,
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to load job", zap.String("job_id", jobID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Database error",
			"status": http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs?limit=N.
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Invalid limit",
				"status": http.StatusBadRequest,
			})
			return
		}
		limit = parsed
	}

	jobs, err := h.jobs.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Database error",
			"status": http.StatusInternalServerError,
		})
		return
	}
	if jobs == nil {
		jobs = []models.IngestionJob{}
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}
