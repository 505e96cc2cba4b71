package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DashboardStats aggregates delivery outcomes over a trailing window
// (default 7 days) for the overview screen.
func (r *Router) DashboardStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}

	since := time.Now().AddDate(0, 0, -days)
	stats, err := r.outcomes.StatsSince(c.Request.Context(), since)
	if err != nil {
		r.logger.Error("failed_to_compute_stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"window_days": days, "stats": stats})
}
