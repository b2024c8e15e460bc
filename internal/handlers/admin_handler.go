package handlers

import (
	"net/http"

	"jobsboard-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes localhost-only maintenance operations
type AdminHandler struct {
	indexer *services.AgentIndexService
}

// NewAdminHandler creates the admin handler; indexer may be nil when the
// reverse index is disabled.
func NewAdminHandler(indexer *services.AgentIndexService) *AdminHandler {
	return &AdminHandler{indexer: indexer}
}

// Reindex replays Registered events into the local agent index immediately
// instead of waiting for the next scheduled sync.
// POST /api/admin/reindex
func (h *AdminHandler) Reindex(c *gin.Context) {
	if h.indexer == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "agent index is disabled"})
		return
	}
	if err := h.indexer.Sync(c.Request.Context()); err != nil {
		respondClassified(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reindexed"})
}
