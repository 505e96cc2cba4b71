package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/parser"
)

// HandleWebhook ingests one Git platform webhook: detect platform, verify
// signature, parse to a canonical event, fan out to destinations. Delivery
// is asynchronous; the response reports only how many deliveries were
// queued.
func (r *Router) HandleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	var payload parser.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	p, err := parser.Select(r.parsers, c.Request.Header, payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := r.validator.Validate(p.Platform(), c.Request.Header, body); err != nil {
		r.logger.Warn("webhook_signature_rejected",
			zap.String("platform", string(p.Platform())),
			zap.Error(err),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
		return
	}

	evt, err := p.Parse(c.Request.Header, payload)
	if err != nil {
		var perr *parser.Error
		if errors.As(err, &perr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process webhook"})
		return
	}

	launched, err := r.dispatcher.Dispatch(c.Request.Context(), evt)
	if err != nil {
		r.logger.Error("webhook_dispatch_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process webhook"})
		return
	}

	r.logger.Info("webhook_processed",
		zap.String("platform", string(evt.Platform)),
		zap.String("event_type", evt.EventType),
		zap.String("project", evt.Project),
		zap.Int("providers", launched),
	)

	status := "success"
	message := fmt.Sprintf("Webhook processed and queued for %d provider(s)", launched)
	if launched == 0 {
		status = "accepted"
		message = "Webhook received but no matching active providers configured"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"message": message,
		"event": gin.H{
			"platform": evt.Platform,
			"type":     evt.EventType,
			"project":  evt.Project,
			"author":   evt.Author,
		},
		"providers": launched,
	})
}

// HandleWebhookTest is a liveness probe for webhook configuration screens.
func (r *Router) HandleWebhookTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Webhook service is running",
		"version": r.cfg.AppVersion,
	})
}
