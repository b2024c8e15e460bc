package handlers

import (
	"net/http"

	"jobsboard-backend/internal/config"

	"github.com/gin-gonic/gin"
)

// ManifestHandler serves the static agent discovery manifest. The document is
// assembled once from config; nothing in it changes at runtime.
type ManifestHandler struct {
	manifest gin.H
}

// NewManifestHandler builds the manifest from configuration
func NewManifestHandler(cfg *config.Config) *ManifestHandler {
	m := cfg.Manifest
	return &ManifestHandler{
		manifest: gin.H{
			"name":        m.Name,
			"description": m.Description,
			"version":     m.Version,
			"url":         m.BaseURL,
			"operator": gin.H{
				"name":   m.OperatorName,
				"wallet": m.OperatorWallet,
			},
			"social": gin.H{
				"twitter": m.Twitter,
				"github":  m.Github,
			},
			"pricing": gin.H{
				"currency":         cfg.Chain.TokenSymbol,
				"min_job_value":    m.MinJobValue,
				"platform_fee_bps": m.PlatformFeeBps,
			},
			"chain": gin.H{
				"chain_id": cfg.Chain.ChainID,
				"contracts": gin.H{
					"identity_registry":   cfg.Chain.Contracts.IdentityRegistry,
					"reputation_registry": cfg.Chain.Contracts.ReputationRegistry,
					"escrow":              cfg.Chain.Contracts.Escrow,
					"token":               cfg.Chain.Contracts.Token,
				},
			},
			"endpoints": gin.H{
				"jobs":        "/api/jobs",
				"stats":       "/api/stats",
				"leaderboard": "/api/leaderboard",
				"ws":          "/api/ws",
			},
		},
	}
}

// Serve returns the manifest
// GET /.well-known/agent.json
func (h *ManifestHandler) Serve(c *gin.Context) {
	c.JSON(http.StatusOK, h.manifest)
}
