package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
	"github.com/ismoilovdevml/webhook-bridge/internal/provider"
)

type destinationRequest struct {
	Name    string               `json:"name" binding:"required"`
	Type    string               `json:"type" binding:"required"`
	Active  *bool                `json:"active"`
	Config  map[string]string    `json:"config"`
	Filters *destination.Filters `json:"filters"`
}

func validType(t string) bool {
	for _, known := range destination.Types {
		if destination.Type(t) == known {
			return true
		}
	}
	return false
}

// CreateDestination registers a new notification target. Sensitive config
// fields are encrypted before they hit the database; the stored plaintext
// never leaves this handler.
func (r *Router) CreateDestination(c *gin.Context) {
	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported destination type: " + req.Type})
		return
	}
	if len(req.Config) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "config is required"})
		return
	}

	dtype := destination.Type(req.Type)
	sealed, err := r.cipher.EncryptConfig(dtype, req.Config)
	if err != nil {
		r.logger.Error("failed_to_encrypt_destination_config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store destination"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	dst := &destination.Destination{
		Name:    req.Name,
		Type:    dtype,
		Active:  active,
		Config:  sealed,
		Filters: req.Filters,
	}
	if err := r.destinations.Create(c.Request.Context(), dst); err != nil {
		r.logger.Error("failed_to_create_destination", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store destination"})
		return
	}

	c.JSON(http.StatusCreated, dst)
}

// ListDestinations returns all destinations, without config values.
func (r *Router) ListDestinations(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	list, err := r.destinations.List(c.Request.Context(), offset, limit)
	if err != nil {
		r.logger.Error("failed_to_list_destinations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list destinations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"destinations": list, "count": len(list)})
}

// GetDestination returns one destination by ID.
func (r *Router) GetDestination(c *gin.Context) {
	dst, ok := r.findDestination(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dst)
}

// UpdateDestination replaces a destination's fields. A supplied config is
// re-encrypted in full; omitting config keeps the stored one.
func (r *Router) UpdateDestination(c *gin.Context) {
	dst, ok := r.findDestination(c)
	if !ok {
		return
	}

	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported destination type: " + req.Type})
		return
	}

	dtype := destination.Type(req.Type)
	dst.Name = req.Name
	dst.Type = dtype
	dst.Filters = req.Filters
	if req.Active != nil {
		dst.Active = *req.Active
	}
	if len(req.Config) > 0 {
		sealed, err := r.cipher.EncryptConfig(dtype, req.Config)
		if err != nil {
			r.logger.Error("failed_to_encrypt_destination_config", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store destination"})
			return
		}
		dst.Config = sealed
	}

	if err := r.destinations.Update(c.Request.Context(), dst); err != nil {
		r.logger.Error("failed_to_update_destination", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store destination"})
		return
	}
	c.JSON(http.StatusOK, dst)
}

// DeleteDestination removes a destination. Past delivery outcomes keep their
// destination name and a dangling ID.
func (r *Router) DeleteDestination(c *gin.Context) {
	dst, ok := r.findDestination(c)
	if !ok {
		return
	}
	if err := r.destinations.Delete(c.Request.Context(), dst.ID); err != nil {
		r.logger.Error("failed_to_delete_destination", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete destination"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// TestDestination performs a live connectivity check against the downstream
// chat service using the stored (decrypted) config.
func (r *Router) TestDestination(c *gin.Context) {
	dst, ok := r.findDestination(c)
	if !ok {
		return
	}

	config := r.cipher.DecryptConfig(dst.Type, dst.Config)
	p, err := provider.New(dst.WithConfig(config), r.providerDeps)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "error": err.Error()})
		return
	}

	if err := p.TestConnection(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "failed", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) findDestination(c *gin.Context) (*destination.Destination, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid destination id"})
		return nil, false
	}

	dst, err := r.destinations.FindByID(c.Request.Context(), id)
	if err != nil {
		r.logger.Error("failed_to_load_destination", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load destination"})
		return nil, false
	}
	if dst == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "destination not found"})
		return nil, false
	}
	return dst, true
}
