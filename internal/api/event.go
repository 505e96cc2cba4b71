package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/delivery"
)

// ListEvents returns delivery outcomes, newest first, narrowed by the query
// parameters.
func (r *Router) ListEvents(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit > 500 {
		limit = 500
	}

	q := delivery.Query{
		Platform:  c.Query("platform"),
		EventType: c.Query("event_type"),
		Project:   c.Query("project"),
		Status:    delivery.Status(c.Query("status")),
		Offset:    offset,
		Limit:     limit,
	}

	outcomes, total, err := r.outcomes.List(c.Request.Context(), q)
	if err != nil {
		r.logger.Error("failed_to_list_outcomes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": outcomes,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// CleanupEvents deletes outcomes older than the given number of days
// (default 90) and reports how many rows went away.
func (r *Router) CleanupEvents(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil || days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deleted, err := r.outcomes.DeleteOlderThan(c.Request.Context(), cutoff)
	if err != nil {
		r.logger.Error("failed_to_cleanup_outcomes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cleanup events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
