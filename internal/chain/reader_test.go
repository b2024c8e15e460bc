package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"jobsboard-backend/internal/config"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var testContracts = config.ContractsConfig{
	IdentityRegistry:   "0x12D7D4F119CFd35Cb3b5308af3F3f23272447de8",
	ReputationRegistry: "0x4e3Ed4e4B98A54c9641EB92aAaf87843388f50d1",
	Escrow:             "0xD43650250cEDDAF79FF72F44d28e3082F72420Ab",
	Token:              "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
}

// fakeCallBackend routes CallContract through a user function and records
// every call it saw.
type fakeCallBackend struct {
	call     func(msg ethereum.CallMsg) ([]byte, error)
	logs     []types.Log
	logsErr  error
	head     uint64
	calls    int
	queries  []ethereum.FilterQuery
}

func (f *fakeCallBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	return f.call(msg)
}

func (f *fakeCallBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.queries = append(f.queries, q)
	return f.logs, f.logsErr
}

func (f *fakeCallBackend) BlockNumber(_ context.Context) (uint64, error) {
	return f.head, nil
}

// packOutputs encodes return data for a view method
func packOutputs(t *testing.T, contractABI string, method string, values ...interface{}) []byte {
	t.Helper()
	parsed := mustParseABI(contractABI)
	data, err := parsed.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return data
}

func TestReaderAgentOwner(t *testing.T) {
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	backend := &fakeCallBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return packOutputs(t, identityABI, "ownerOf", owner), nil
		},
	}
	reader := NewReader(backend, testContracts)

	got, err := reader.AgentOwner(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, owner.Hex(), got)
}

func TestReaderAgentOwnerRevertIsNotFound(t *testing.T) {
	backend := &fakeCallBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return nil, errors.New("execution reverted: ERC721: invalid token ID")
		},
	}
	reader := NewReader(backend, testContracts)

	_, err := reader.AgentOwner(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReaderAgentOwnerZeroAddressIsNotFound(t *testing.T) {
	backend := &fakeCallBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return packOutputs(t, identityABI, "ownerOf", common.Address{}), nil
		},
	}
	reader := NewReader(backend, testContracts)

	_, err := reader.AgentOwner(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReaderNetworkErrorIsNotNotFound(t *testing.T) {
	backend := &fakeCallBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
	}
	reader := NewReader(backend, testContracts)

	_, err := reader.TotalAgents(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestReaderEscrowJob(t *testing.T) {
	poster := common.HexToAddress("0x2222222222222222222222222222222222222222")
	winner := common.HexToAddress("0x3333333333333333333333333333333333333333")
	backend := &fakeCallBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return packOutputs(t, escrowABI, "getJob",
				poster, big.NewInt(10_000_000), winner, true, false, big.NewInt(1700000000)), nil
		},
	}
	reader := NewReader(backend, testContracts)

	job, err := reader.EscrowJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.True(t, job.Funded())
	require.Equal(t, poster, job.Poster)
	require.Equal(t, winner, job.Winner)
	require.Equal(t, "10000000", job.Amount.String())
	require.True(t, job.Released)
	require.False(t, job.Refunded)
}

func TestReaderEscrowJobZeroPosterNotFunded(t *testing.T) {
	backend := &fakeCallBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return packOutputs(t, escrowABI, "getJob",
				common.Address{}, big.NewInt(0), common.Address{}, false, false, big.NewInt(0)), nil
		},
	}
	reader := NewReader(backend, testContracts)

	job, err := reader.EscrowJob(context.Background(), "never-funded")
	require.NoError(t, err)
	require.False(t, job.Funded())
}

func TestReaderReputation(t *testing.T) {
	score, _ := new(big.Int).SetString("87500000000000000000", 10)
	backend := &fakeCallBackend{
		call: func(msg ethereum.CallMsg) ([]byte, error) {
			return packOutputs(t, reputationABI, "getReputation", score, big.NewInt(12)), nil
		},
	}
	reader := NewReader(backend, testContracts)

	gotScore, gotCount, err := reader.Reputation(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, score.String(), gotScore.String())
	require.Equal(t, int64(12), gotCount.Int64())
}

func TestReaderRegisteredEvents(t *testing.T) {
	identityAddr := common.HexToAddress(testContracts.IdentityRegistry)
	event := mustParseABI(identityABI).Events["Registered"]
	owner := common.HexToAddress("0x4444444444444444444444444444444444444444")

	backend := &fakeCallBackend{
		logs: []types.Log{
			{
				Address: identityAddr,
				Topics: []common.Hash{
					event.ID,
					common.BigToHash(big.NewInt(42)),
					common.BytesToHash(owner.Bytes()),
				},
				BlockNumber: 1234,
			},
			// malformed log with missing topics is skipped
			{Address: identityAddr, Topics: []common.Hash{event.ID}},
		},
	}
	reader := NewReader(backend, testContracts)

	regs, err := reader.RegisteredEvents(context.Background(), 1000, 2000)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, uint64(42), regs[0].AgentID)
	require.Equal(t, owner.Hex(), regs[0].Owner)
	require.Equal(t, uint64(1234), regs[0].BlockNumber)

	require.Len(t, backend.queries, 1)
	require.Equal(t, int64(1000), backend.queries[0].FromBlock.Int64())
	require.Equal(t, int64(2000), backend.queries[0].ToBlock.Int64())
}

func TestIsRevert(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"standard revert", errors.New("execution reverted: nope"), true},
		{"bare revert", errors.New("revert"), true},
		{"invalid opcode", errors.New("invalid opcode: INVALID"), true},
		{"network error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRevert(tt.err); got != tt.want {
				t.Errorf("isRevert(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
