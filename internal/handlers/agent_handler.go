package handlers

import (
	"net/http"

	"jobsboard-backend/internal/services"
	"jobsboard-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// AgentHandler exposes wallet -> agent identity resolution
type AgentHandler struct {
	resolver *services.AgentResolverService
	wallet   string
}

// NewAgentHandler creates the agent handler; wallet is the gateway's signing
// address, "" when no key is configured.
func NewAgentHandler(resolver *services.AgentResolverService, wallet string) *AgentHandler {
	return &AgentHandler{
		resolver: resolver,
		wallet:   wallet,
	}
}

// Resolve looks up the agent identity for an arbitrary wallet. A wallet with
// no identity returns registered=false, not an error.
// GET /api/agents/resolve?wallet=0x...
func (h *AgentHandler) Resolve(c *gin.Context) {
	wallet := c.Query("wallet")
	if !utils.IsEvmAddress(wallet) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet query parameter must be a valid address"})
		return
	}

	identity, err := h.resolver.Resolve(c.Request.Context(), wallet)
	if err != nil {
		respondClassified(c, err)
		return
	}
	if identity == nil {
		c.JSON(http.StatusOK, gin.H{"registered": false, "wallet": wallet})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true, "agent": identity})
}

// Me resolves the gateway's own signing wallet
// GET /api/agents/me
func (h *AgentHandler) Me(c *gin.Context) {
	if h.wallet == "" {
		c.JSON(http.StatusOK, gin.H{"registered": false, "wallet": ""})
		return
	}

	identity, err := h.resolver.Resolve(c.Request.Context(), h.wallet)
	if err != nil {
		respondClassified(c, err)
		return
	}
	if identity == nil {
		c.JSON(http.StatusOK, gin.H{"registered": false, "wallet": h.wallet})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true, "agent": identity})
}
