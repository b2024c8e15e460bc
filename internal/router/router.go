// Package router assembles the gin engine from the handler set.
package router

import (
	"net/http"

	"jobsboard-backend/internal/config"
	"jobsboard-backend/internal/handlers"
	"jobsboard-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Handlers collects everything the router mounts
type Handlers struct {
	Jobs      *handlers.JobsHandler
	Stats     *handlers.StatsHandler
	Agents    *handlers.AgentHandler
	Workflows *handlers.WorkflowHandler
	Manifest  *handlers.ManifestHandler
	WebSocket *handlers.WebSocketHandler
	Admin     *handlers.AdminHandler
}

// SetupRouter builds the HTTP surface
func SetupRouter(cfg *config.Config, h *Handlers) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORS(&cfg.CORS))

	localhostOnly := middleware.NewLocalhostOnly(cfg.Admin.AllowedIPs)
	if len(cfg.Admin.AllowedIPs) > 0 {
		logrus.WithField("allowed_ips", cfg.Admin.AllowedIPs).Info("Admin endpoint IP whitelist configured")
	}

	r.GET("/ping", handlers.PingHandler)
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Agent discovery manifest, outside the /api prefix by convention
	r.GET("/.well-known/agent.json", h.Manifest.Serve)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheckHandler)

		api.GET("/jobs", h.Jobs.ListJobs)
		api.POST("/jobs", h.Jobs.CreateJob)
		api.GET("/jobs/:id", h.Jobs.GetJob)
		api.GET("/jobs/:id/submissions", h.Jobs.ListSubmissions)
		api.POST("/jobs/:id/submissions", h.Jobs.CreateSubmission)

		api.POST("/jobs/:id/fund", h.Workflows.Fund)
		api.POST("/jobs/:id/select-winner", h.Workflows.SelectWinner)
		api.POST("/jobs/:id/release", h.Workflows.Release)
		api.POST("/jobs/:id/mark-paid", h.Workflows.MarkPaid)
		api.POST("/jobs/:id/refund", h.Workflows.Refund)
		api.POST("/jobs/:id/feedback", h.Workflows.Feedback)
		api.GET("/payout-preview", h.Workflows.PayoutPreview)

		api.GET("/stats", h.Stats.Stats)
		api.GET("/leaderboard", h.Stats.Leaderboard)

		api.GET("/agents/resolve", h.Agents.Resolve)
		api.GET("/agents/me", h.Agents.Me)
		api.POST("/agents/register", h.Workflows.Register)

		api.GET("/ws", h.WebSocket.Handle)

		admin := api.Group("/admin", localhostOnly.Restrict())
		{
			admin.POST("/reindex", h.Admin.Reindex)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message": "endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}
