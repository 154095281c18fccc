package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/productsafe/recallwatch/app/database"
	"github.com/productsafe/recallwatch/app/pipeline"
	"github.com/productsafe/recallwatch/app/sources"
)

func NewHandler(runner *pipeline.Runner, configCache *sources.ConfigCache,
	recallRepo database.RecallRepository, productRepo database.ProductRepository,
	matchRepo database.MatchRepository, notificationRepo database.NotificationRepository) *Handler {
	return &Handler{
		runner:           runner,
		configCache:      configCache,
		recallRepo:       recallRepo,
		productRepo:      productRepo,
		matchRepo:        matchRepo,
		notificationRepo: notificationRepo,
	}
}

// TriggerSync starts a full pipeline run and returns its summary. Runs are
// serialized; a concurrent trigger gets a 409 rather than a second run.
func (h *Handler) TriggerSync(c *gin.Context) {
	summary, err := h.runner.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
			return
		}
		slog.Error("Pipeline run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if recallCount, err := h.recallRepo.GetRecallCount(); err == nil {
		health["recalls"] = recallCount
	} else {
		slog.Error("Database error", "operation", "get_recall_count", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unreachable"})
		return
	}

	health["loaded_sources"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if counts, err := h.recallRepo.GetRecallCountBySource(); err == nil {
		stats["recalls_by_source"] = counts
	} else {
		slog.Error("Database error", "operation", "get_recall_counts", "error", err)
	}

	if count, err := h.recallRepo.GetRecallCount(); err == nil {
		stats["recalls"] = count
	}
	if count, err := h.productRepo.GetProductCount(); err == nil {
		stats["products"] = count
	}
	if count, err := h.matchRepo.GetMatchCount(); err == nil {
		stats["matches"] = count
	}
	if count, err := h.notificationRepo.GetNotificationCount(); err == nil {
		stats["notifications"] = count
	}

	c.JSON(http.StatusOK, stats)
}
