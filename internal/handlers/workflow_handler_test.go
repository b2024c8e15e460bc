package handlers

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"jobsboard-backend/internal/chain"
	"jobsboard-backend/internal/clients"
	"jobsboard-backend/internal/config"
	"jobsboard-backend/internal/credentials"
	"jobsboard-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// stubSubmitter satisfies the workflow service's transaction surface; the
// mark-paid flow must never reach it.
type stubSubmitter struct {
	sender string
	calls  int
}

func (s *stubSubmitter) SenderAddress() string { return s.sender }

func (s *stubSubmitter) tx() (*chain.TxResult, error) {
	s.calls++
	return &chain.TxResult{TxHash: "0xstub"}, nil
}

func (s *stubSubmitter) Approve(context.Context, *big.Int) (*chain.TxResult, error) {
	return s.tx()
}
func (s *stubSubmitter) FundJob(context.Context, string, *big.Int) (*chain.TxResult, error) {
	return s.tx()
}
func (s *stubSubmitter) SelectWinner(context.Context, string, string) (*chain.TxResult, error) {
	return s.tx()
}
func (s *stubSubmitter) ReleaseFunds(context.Context, string) (*chain.TxResult, error) {
	return s.tx()
}
func (s *stubSubmitter) RefundJob(context.Context, string) (*chain.TxResult, error) {
	return s.tx()
}
func (s *stubSubmitter) RegisterAgent(context.Context, string) (*chain.TxResult, uint64, error) {
	result, err := s.tx()
	return result, 0, err
}
func (s *stubSubmitter) GiveFeedback(context.Context, uint64, int64, string, string, [32]byte) (*chain.TxResult, error) {
	return s.tx()
}

type workflowHandlerFixture struct {
	router    *gin.Engine
	submitter *stubSubmitter
	storeSeen *[]recordedStoreCall
}

type recordedStoreCall struct {
	Path string
	Body map[string]interface{}
}

func newWorkflowHandlerFixture(t *testing.T, senderWallet string) *workflowHandlerFixture {
	t.Helper()

	var seen []recordedStoreCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedStoreCall{Path: r.URL.Path}
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
		seen = append(seen, call)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	t.Cleanup(server.Close)

	tokens, err := credentials.NewStore(filepath.Join(t.TempDir(), "tokens.json"))
	require.NoError(t, err)

	submitter := &stubSubmitter{sender: senderWallet}
	workflows := services.NewWorkflowService(
		&stubReader{},
		submitter,
		clients.NewJobStoreClient(server.URL, 5*time.Second),
		tokens,
		nil,
		nil,
		&config.ChainConfig{TokenDecimals: 6},
		&config.ManifestConfig{Name: "Test Gateway"},
	)

	handler := NewWorkflowHandler(workflows)
	r := gin.New()
	r.POST("/api/jobs/:id/mark-paid", handler.MarkPaid)
	return &workflowHandlerFixture{
		router:    r,
		submitter: submitter,
		storeSeen: &seen,
	}
}

func TestMarkPaidEndpointRecordsPayment(t *testing.T) {
	fx := newWorkflowHandlerFixture(t, testWallet)

	w := postJSON(t, fx.router, "/api/jobs/job-1/mark-paid", gin.H{"tx_hash": "0xabc"})
	require.Equal(t, http.StatusOK, w.Code)

	var run struct {
		Outcome   string `json:"outcome"`
		PromptFor string `json:"prompt_for"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	require.Equal(t, "success", run.Outcome)
	require.Equal(t, "feedback", run.PromptFor)

	require.Len(t, *fx.storeSeen, 1)
	require.Equal(t, "/jobs/job-1/mark-paid", (*fx.storeSeen)[0].Path)
	require.Equal(t, "0xabc", (*fx.storeSeen)[0].Body["tx_hash"])
	// no transaction submitted for an out-of-escrow payment
	require.Zero(t, fx.submitter.calls)
}

func TestMarkPaidEndpointBodyOptional(t *testing.T) {
	fx := newWorkflowHandlerFixture(t, testWallet)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/job-1/mark-paid", nil)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, *fx.storeSeen, 1)
	require.Equal(t, "", (*fx.storeSeen)[0].Body["tx_hash"])
}

func TestMarkPaidEndpointWithoutCredentialUnauthorized(t *testing.T) {
	fx := newWorkflowHandlerFixture(t, "")

	w := postJSON(t, fx.router, "/api/jobs/job-1/mark-paid", gin.H{})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, *fx.storeSeen)

	// failures still carry the run record
	var resp struct {
		Kind string `json:"kind"`
		Run  *struct {
			Outcome string `json:"outcome"`
		} `json:"run"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "authorization", resp.Kind)
	require.NotNil(t, resp.Run)
	require.Equal(t, "failed", resp.Run.Outcome)
}
