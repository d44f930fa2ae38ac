package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikearonapi/autorev-sub014/internal/models"
	"github.com/mikearonapi/autorev-sub014/internal/repository"
)

// AuditRunReader is the read-only surface over recorded audit runs.
type AuditRunReader interface {
	Latest(ctx context.Context) (*models.AuditRun, error)
}

// AuditHandler serves the latest quality audit verdict.
type AuditHandler struct {
	runs   AuditRunReader
	logger *zap.Logger
}

func NewAuditHandler(runs AuditRunReader, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{runs: runs, logger: logger}
}

// LatestRun handles GET /api/v1/audit/latest.
func (h *AuditHandler) LatestRun(c *gin.Context) {
	run, err := h.runs.Latest(c.Request.Context())
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "No audit has been recorded yet",
			"status": http.StatusNotFound,
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to load latest audit run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Database error",
			"status": http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, run)
}
