// Package handlers wires the HTTP surface: job store proxying, chain-derived
// views, workflow triggers and the discovery manifest.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"jobsboard-backend/internal/clients"
	"jobsboard-backend/internal/credentials"
	"jobsboard-backend/internal/models"
	"jobsboard-backend/internal/services"
	"jobsboard-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// minDescriptionLength is enforced locally before any job store call
const minDescriptionLength = 50

// JobsHandler proxies job and submission operations to the external store,
// overlaying on-chain escrow state on reads.
type JobsHandler struct {
	jobStore   *clients.JobStoreClient
	reconciler *services.EscrowReconcilerService
	tokens     *credentials.Store
	events     services.EventPublisher
	wallet     string
}

// NewJobsHandler creates the jobs handler; events may be nil
func NewJobsHandler(
	jobStore *clients.JobStoreClient,
	reconciler *services.EscrowReconcilerService,
	tokens *credentials.Store,
	events services.EventPublisher,
	wallet string,
) *JobsHandler {
	return &JobsHandler{
		jobStore:   jobStore,
		reconciler: reconciler,
		tokens:     tokens,
		events:     events,
		wallet:     wallet,
	}
}

// ListJobs returns all jobs with their escrow overlay
// GET /api/jobs
func (h *JobsHandler) ListJobs(c *gin.Context) {
	jobs, err := h.jobStore.ListJobs(c.Request.Context())
	if err != nil {
		respondClassified(c, err)
		return
	}

	jobIDs := make([]string, 0, len(jobs))
	for _, job := range jobs {
		jobIDs = append(jobIDs, job.ID)
	}
	escrow := h.reconciler.EscrowStates(c.Request.Context(), jobIDs)

	c.JSON(http.StatusOK, gin.H{
		"jobs": h.reconciler.MergeJobs(jobs, escrow),
	})
}

// GetJob returns one job's merged view
// GET /api/jobs/:id
func (h *JobsHandler) GetJob(c *gin.Context) {
	jobID := c.Param("id")

	jobs, err := h.jobStore.ListJobs(c.Request.Context())
	if err != nil {
		respondClassified(c, err)
		return
	}
	for _, job := range jobs {
		if job.ID != jobID {
			continue
		}
		escrow := h.reconciler.EscrowStates(c.Request.Context(), []string{jobID})
		views := h.reconciler.MergeJobs([]models.Job{job}, escrow)
		c.JSON(http.StatusOK, views[0])
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("job %s not found", jobID)})
}

// createJobRequest is the inbound POST /api/jobs payload
type createJobRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Reward      float64 `json:"reward"`
	Currency    string  `json:"currency"`
}

// CreateJob validates and forwards a new job, then stores the returned
// poster token. Validation failures never reach the job store.
// POST /api/jobs
func (h *JobsHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if len(strings.TrimSpace(req.Description)) < minDescriptionLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("description must be at least %d characters", minDescriptionLength),
		})
		return
	}
	if req.Reward <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reward must be positive"})
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USDC"
	}

	created, err := h.jobStore.CreateJob(c.Request.Context(), &clients.CreateJobRequest{
		Title:        req.Title,
		Description:  req.Description,
		Reward:       req.Reward,
		Currency:     currency,
		PosterWallet: h.wallet,
	})
	if err != nil {
		respondClassified(c, err)
		return
	}

	if created.PosterToken != "" {
		if err := h.tokens.Put(created.ID, created.PosterToken); err != nil {
			// The job exists remotely; losing the token is recoverable via the
			// posting wallet, so report the job as created anyway.
			logrus.WithFields(logrus.Fields{
				"job_id": created.ID,
				"error":  err.Error(),
			}).Error("Failed to persist poster token")
		}
	}

	if h.events != nil {
		h.events.PublishJobEvent("job.posted", created.ID, map[string]interface{}{
			"title":  req.Title,
			"reward": req.Reward,
		})
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":           created.ID,
		"token_stored": created.PosterToken != "",
	})
}

// ListSubmissions returns a job's submissions
// GET /api/jobs/:id/submissions
func (h *JobsHandler) ListSubmissions(c *gin.Context) {
	submissions, err := h.jobStore.ListSubmissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondClassified(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}

// createSubmissionRequest is the inbound submission payload
type createSubmissionRequest struct {
	WorkerWallet string `json:"worker_wallet"`
	Content      string `json:"content"`
}

// CreateSubmission forwards a work submission
// POST /api/jobs/:id/submissions
func (h *JobsHandler) CreateSubmission(c *gin.Context) {
	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	wallet := req.WorkerWallet
	if wallet == "" {
		wallet = h.wallet
	}
	if !utils.IsEvmAddress(wallet) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker wallet"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	submission, err := h.jobStore.CreateSubmission(c.Request.Context(), c.Param("id"), wallet, req.Content)
	if err != nil {
		respondClassified(c, err)
		return
	}
	c.JSON(http.StatusCreated, submission)
}
