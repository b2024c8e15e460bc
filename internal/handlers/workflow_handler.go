package handlers

import (
	"net/http"

	"jobsboard-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// WorkflowHandler triggers the multi-step transaction workflows. Every
// response carries the per-step run record, including on failure, so callers
// see exactly which steps confirmed before the failure.
type WorkflowHandler struct {
	workflows *services.WorkflowService
}

// NewWorkflowHandler creates the workflow handler
func NewWorkflowHandler(workflows *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

// respondRun writes a finished run: 200 on success, the classified status
// plus the run record on failure.
func respondRun(c *gin.Context, run *services.WorkflowRun, err error) {
	if err == nil {
		c.JSON(http.StatusOK, run)
		return
	}
	classified := services.Classify(err)
	c.JSON(statusForKind(classified.Kind), gin.H{
		"error": classified.Error(),
		"kind":  string(classified.Kind),
		"run":   run,
	})
}

// fundRequest is the inbound fund payload
type fundRequest struct {
	Amount string `json:"amount"`
}

// Fund escrows the reward for a job
// POST /api/jobs/:id/fund
func (h *WorkflowHandler) Fund(c *gin.Context) {
	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	run, err := h.workflows.FundJob(c.Request.Context(), c.Param("id"), req.Amount)
	respondRun(c, run, err)
}

// selectWinnerRequest is the inbound winner selection payload
type selectWinnerRequest struct {
	SubmissionID string `json:"submission_id"`
	WinnerWallet string `json:"winner_wallet"`
}

// SelectWinner records the winning submission on-chain (when escrowed) and
// in the job store.
// POST /api/jobs/:id/select-winner
func (h *WorkflowHandler) SelectWinner(c *gin.Context) {
	var req selectWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SubmissionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submission_id is required"})
		return
	}
	run, err := h.workflows.SelectWinner(c.Request.Context(), c.Param("id"), req.SubmissionID, req.WinnerWallet)
	respondRun(c, run, err)
}

// Release pays the escrowed reward to the winner and marks the job paid
// POST /api/jobs/:id/release
func (h *WorkflowHandler) Release(c *gin.Context) {
	run, err := h.workflows.Release(c.Request.Context(), c.Param("id"))
	respondRun(c, run, err)
}

// markPaidRequest carries the poster's optional payment reference
type markPaidRequest struct {
	TxHash string `json:"tx_hash"`
}

// MarkPaid records an out-of-escrow payment in the job store. The body is
// optional; tx_hash is only a reference.
// POST /api/jobs/:id/mark-paid
func (h *WorkflowHandler) MarkPaid(c *gin.Context) {
	var req markPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	run, err := h.workflows.MarkPaid(c.Request.Context(), c.Param("id"), req.TxHash)
	respondRun(c, run, err)
}

// refundRequest carries the explicit confirmation
type refundRequest struct {
	Confirm bool `json:"confirm"`
}

// Refund returns escrowed funds to the poster; requires confirm=true
// POST /api/jobs/:id/refund
func (h *WorkflowHandler) Refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	run, err := h.workflows.Refund(c.Request.Context(), c.Param("id"), req.Confirm)
	respondRun(c, run, err)
}

// Register mints an agent identity for the gateway's signing wallet
// POST /api/agents/register
func (h *WorkflowHandler) Register(c *gin.Context) {
	run, err := h.workflows.RegisterAgent(c.Request.Context())
	respondRun(c, run, err)
}

// feedbackRequest is the inbound rating payload
type feedbackRequest struct {
	AgentID uint64 `json:"agent_id"`
	Rating  int64  `json:"rating"`
	Comment string `json:"comment"`
}

// Feedback records an on-chain rating for the agent that completed a job
// POST /api/jobs/:id/feedback
func (h *WorkflowHandler) Feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	run, err := h.workflows.GiveFeedback(c.Request.Context(), c.Param("id"), req.AgentID, req.Rating, req.Comment)
	respondRun(c, run, err)
}

// PayoutPreview shows the fee split a release would produce
// GET /api/payout-preview?amount=10.00
func (h *WorkflowHandler) PayoutPreview(c *gin.Context) {
	amount := c.Query("amount")
	if amount == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount query parameter is required"})
		return
	}
	preview, err := h.workflows.PreviewPayout(c.Request.Context(), amount)
	if err != nil {
		respondClassified(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}
