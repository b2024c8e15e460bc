package handlers

import (
	"net/http"

	"jobsboard-backend/internal/clients"
	"jobsboard-backend/internal/models"
	"jobsboard-backend/internal/services"
	"jobsboard-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// StatsHandler serves the marketplace counters and the leaderboard, the
// latter augmented with resolved on-chain identities.
type StatsHandler struct {
	jobStore *clients.JobStoreClient
	resolver *services.AgentResolverService
}

// NewStatsHandler creates the stats handler
func NewStatsHandler(jobStore *clients.JobStoreClient, resolver *services.AgentResolverService) *StatsHandler {
	return &StatsHandler{
		jobStore: jobStore,
		resolver: resolver,
	}
}

// Stats proxies the aggregate counters
// GET /api/stats
func (h *StatsHandler) Stats(c *gin.Context) {
	stats, err := h.jobStore.Stats(c.Request.Context())
	if err != nil {
		respondClassified(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Leaderboard proxies the worker leaderboard and attaches each wallet's
// agent identity where one resolves. Resolution is best-effort; a wallet
// that fails to resolve still appears, just without an agent.
// GET /api/leaderboard
func (h *StatsHandler) Leaderboard(c *gin.Context) {
	entries, err := h.jobStore.Leaderboard(c.Request.Context())
	if err != nil {
		respondClassified(c, err)
		return
	}

	wallets := make([]string, 0, len(entries))
	for _, entry := range entries {
		wallets = append(wallets, entry.Wallet)
	}
	resolved := h.resolver.ResolveMany(c.Request.Context(), wallets)

	views := make([]models.LeaderboardView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, models.LeaderboardView{
			LeaderboardEntry: entry,
			Agent:            resolved[utils.NormalizeAddress(entry.Wallet)],
		})
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": views})
}
