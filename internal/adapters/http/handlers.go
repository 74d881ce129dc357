package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hevlin/MediaGroup/internal/adapters/registry"
	"github.com/hevlin/MediaGroup/internal/app"
	"github.com/hevlin/MediaGroup/internal/core"
	"github.com/hevlin/MediaGroup/internal/domain"
)

// GroupHandlers expose the composite device to the UI.
type GroupHandlers struct {
	Group *app.GroupController
}

func (h *GroupHandlers) GetComposite(c *gin.Context) {
	c.JSON(http.StatusOK, h.Group.Composite())
}

func (h *GroupHandlers) GetSources(c *gin.Context) {
	sources := h.Group.Sources()
	if sources == nil {
		sources = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (h *GroupHandlers) GetCurrentSource(c *gin.Context) {
	source, ok := h.Group.CurrentSource()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"source": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": source})
}

func (h *GroupHandlers) SelectSource(c *gin.Context) {
	var req struct {
		Source string `json:"source" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Group.SelectSource(c.Request.Context(), req.Source); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrUnknownSource) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GroupHandlers) SetVolume(c *gin.Context) {
	var req struct {
		Level *float64 `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Group.SetVolume(c.Request.Context(), *req.Level); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrVolumeRange) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GroupHandlers) SetMute(c *gin.Context) {
	var req struct {
		Muted *bool `json:"muted" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Group.SetMute(c.Request.Context(), *req.Muted); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GroupHandlers) UpdateMembers(c *gin.Context) {
	var req struct {
		Members []domain.MemberID `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Group.UpdateMembers(c.Request.Context(), req.Members); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.Group.Composite())
}

func (h *GroupHandlers) Rename(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Group.Rename(c.Request.Context(), req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// FeedHandlers are the host-side surface of the standalone server: they
// push member snapshots into the in-memory registry, which in turn
// triggers a controller refresh through its subscription.
type FeedHandlers struct {
	Registry *registry.StaticRegistry
}

func (h *FeedHandlers) UpsertSnapshot(c *gin.Context) {
	var snap domain.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap.ID = domain.MemberID(c.Param("id"))
	if snap.State == "" {
		snap.State = domain.StateOn
	}
	h.Registry.Upsert(snap)
	c.Status(http.StatusNoContent)
}

func (h *FeedHandlers) RemoveMember(c *gin.Context) {
	h.Registry.Remove(domain.MemberID(c.Param("id")))
	c.Status(http.StatusNoContent)
}
