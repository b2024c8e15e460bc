// Package clients contains typed HTTP clients for the external services this
// backend consumes.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"jobsboard-backend/internal/metrics"
	"jobsboard-backend/internal/models"
)

// ErrNoCredential is returned before any network call when a poster-gated
// action has neither a bearer token nor a wallet address to present.
var ErrNoCredential = errors.New("connect wallet or use original device")

// Credential carries the two accepted proofs of poster identity. Both are
// sent when available; the store decides which one it honors.
type Credential struct {
	Token  string
	Wallet string
}

// Present reports whether at least one proof is available
func (c Credential) Present() bool {
	return c.Token != "" || c.Wallet != ""
}

func (c Credential) apply(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("X-Token", c.Token)
	}
	if c.Wallet != "" {
		req.Header.Set("X-Wallet", c.Wallet)
	}
}

// APIError is a non-2xx response from the job store
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("job store returned status %d", e.Status)
}

// JobStoreClient is a thin CRUD proxy to the external job/submission store
type JobStoreClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewJobStoreClient creates a job store client
func NewJobStoreClient(baseURL string, timeout time.Duration) *JobStoreClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &JobStoreClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateJobRequest is the POST /jobs payload
type CreateJobRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Reward       float64 `json:"reward"`
	Currency     string  `json:"currency"`
	PosterWallet string  `json:"poster_wallet"`
}

// CreateJobResponse carries the assigned id and the one-time poster token
type CreateJobResponse struct {
	ID          string `json:"id"`
	PosterToken string `json:"poster_token"`
}

// ListJobs fetches all jobs
func (c *JobStoreClient) ListJobs(ctx context.Context) ([]models.Job, error) {
	var out struct {
		Jobs []models.Job `json:"jobs"`
	}
	if err := c.do(ctx, "list_jobs", http.MethodGet, "/jobs", nil, Credential{}, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// CreateJob posts a new job and returns its id and poster token
func (c *JobStoreClient) CreateJob(ctx context.Context, req *CreateJobRequest) (*CreateJobResponse, error) {
	var out CreateJobResponse
	if err := c.do(ctx, "create_job", http.MethodPost, "/jobs", req, Credential{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSubmissions fetches the submissions for one job
func (c *JobStoreClient) ListSubmissions(ctx context.Context, jobID string) ([]models.Submission, error) {
	var out struct {
		Submissions []models.Submission `json:"submissions"`
	}
	path := "/jobs/" + jobID + "/submissions"
	if err := c.do(ctx, "list_submissions", http.MethodGet, path, nil, Credential{}, &out); err != nil {
		return nil, err
	}
	return out.Submissions, nil
}

// CreateSubmission submits completed work for a job
func (c *JobStoreClient) CreateSubmission(ctx context.Context, jobID, workerWallet, content string) (*models.Submission, error) {
	body := map[string]string{
		"worker_wallet": workerWallet,
		"content":       content,
	}
	var out models.Submission
	path := "/jobs/" + jobID + "/submissions"
	if err := c.do(ctx, "create_submission", http.MethodPost, path, body, Credential{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SelectWinner marks a submission as the winner. Poster-gated: rejected
// locally when no credential is present.
func (c *JobStoreClient) SelectWinner(ctx context.Context, jobID, submissionID string, cred Credential) error {
	if !cred.Present() {
		return ErrNoCredential
	}
	body := map[string]string{"submission_id": submissionID}
	path := "/jobs/" + jobID + "/select-winner"
	return c.do(ctx, "select_winner", http.MethodPost, path, body, cred, nil)
}

// MarkPaid records an off-chain payment. Poster-gated: rejected locally when
// no credential is present.
func (c *JobStoreClient) MarkPaid(ctx context.Context, jobID, txHash string, cred Credential) error {
	if !cred.Present() {
		return ErrNoCredential
	}
	body := map[string]string{"tx_hash": txHash}
	path := "/jobs/" + jobID + "/mark-paid"
	return c.do(ctx, "mark_paid", http.MethodPost, path, body, cred, nil)
}

// Stats fetches the aggregate job counters
func (c *JobStoreClient) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := c.do(ctx, "stats", http.MethodGet, "/stats", nil, Credential{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard fetches the worker leaderboard
func (c *JobStoreClient) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var out struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.do(ctx, "leaderboard", http.MethodGet, "/leaderboard", nil, Credential{}, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

// do executes one request and decodes the JSON response. Non-2xx responses
// with an {error} body become APIError values.
func (c *JobStoreClient) do(ctx context.Context, operation, method, path string, body interface{}, cred Credential, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cred.apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.JobStoreRequests.WithLabelValues(operation, "network_error").Inc()
		return fmt.Errorf("job store unreachable: %w", err)
	}
	defer resp.Body.Close()

	metrics.JobStoreRequests.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errBody) == nil {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
