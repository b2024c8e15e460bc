package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Token  string
	Wallet string
	Body   map[string]interface{}
}

// newTestServer records every request and replays canned responses per path
func newTestServer(t *testing.T, responses map[string]string) (*JobStoreClient, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Token:  r.Header.Get("X-Token"),
			Wallet: r.Header.Get("X-Wallet"),
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		seen = append(seen, rec)

		if body, ok := responses[r.URL.Path]; ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "no such job"}`))
	}))
	t.Cleanup(server.Close)
	return NewJobStoreClient(server.URL, 5*time.Second), &seen
}

func TestListJobs(t *testing.T) {
	client, seen := newTestServer(t, map[string]string{
		"/jobs": `{"jobs": [{"id": "job-1", "title": "Summarize paper", "reward": 10}]}`,
	})

	jobs, err := client.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "job-1", jobs[0].ID)
	require.Equal(t, float64(10), jobs[0].Reward)

	require.Len(t, *seen, 1)
	require.Equal(t, http.MethodGet, (*seen)[0].Method)
	require.Empty(t, (*seen)[0].Token)
}

func TestCreateJobReturnsPosterToken(t *testing.T) {
	client, seen := newTestServer(t, map[string]string{
		"/jobs": `{"id": "job-9", "poster_token": "tok-secret"}`,
	})

	resp, err := client.CreateJob(context.Background(), &CreateJobRequest{
		Title:       "Label images",
		Description: "Label 500 images of streets with bounding boxes around vehicles",
		Reward:      25,
		Currency:    "USDC",
	})
	require.NoError(t, err)
	require.Equal(t, "job-9", resp.ID)
	require.Equal(t, "tok-secret", resp.PosterToken)

	require.Len(t, *seen, 1)
	require.Equal(t, "Label images", (*seen)[0].Body["title"])
}

func TestSelectWinnerSendsCredentialHeaders(t *testing.T) {
	client, seen := newTestServer(t, map[string]string{
		"/jobs/job-1/select-winner": `{"status": "ok"}`,
	})

	cred := Credential{Token: "tok-1", Wallet: "0x1111111111111111111111111111111111111111"}
	err := client.SelectWinner(context.Background(), "job-1", "sub-3", cred)
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	got := (*seen)[0]
	require.Equal(t, "tok-1", got.Token)
	require.Equal(t, cred.Wallet, got.Wallet)
	require.Equal(t, "sub-3", got.Body["submission_id"])
}

func TestSelectWinnerWithoutCredentialNeverCallsStore(t *testing.T) {
	client, seen := newTestServer(t, nil)

	err := client.SelectWinner(context.Background(), "job-1", "sub-3", Credential{})
	require.ErrorIs(t, err, ErrNoCredential)
	require.Empty(t, *seen)
}

func TestMarkPaidWithoutCredentialNeverCallsStore(t *testing.T) {
	client, seen := newTestServer(t, nil)

	err := client.MarkPaid(context.Background(), "job-1", "0xabc", Credential{})
	require.ErrorIs(t, err, ErrNoCredential)
	require.Empty(t, *seen)
}

func TestMarkPaidWalletOnlyCredentialAccepted(t *testing.T) {
	client, seen := newTestServer(t, map[string]string{
		"/jobs/job-1/mark-paid": `{"status": "ok"}`,
	})

	cred := Credential{Wallet: "0x1111111111111111111111111111111111111111"}
	require.NoError(t, client.MarkPaid(context.Background(), "job-1", "0xdeadbeef", cred))

	require.Len(t, *seen, 1)
	require.Empty(t, (*seen)[0].Token)
	require.Equal(t, cred.Wallet, (*seen)[0].Wallet)
	require.Equal(t, "0xdeadbeef", (*seen)[0].Body["tx_hash"])
}

func TestErrorBodyBecomesAPIError(t *testing.T) {
	client, _ := newTestServer(t, nil)

	_, err := client.ListSubmissions(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "no such job", apiErr.Message)
	require.Equal(t, "no such job", apiErr.Error())
}

func TestAPIErrorWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	client := NewJobStoreClient(server.URL, 5*time.Second)

	_, err := client.Stats(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Contains(t, apiErr.Error(), "502")
}

func TestUnreachableStoreIsNetworkError(t *testing.T) {
	client := NewJobStoreClient("http://127.0.0.1:1", time.Second)

	_, err := client.ListJobs(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr))
}
