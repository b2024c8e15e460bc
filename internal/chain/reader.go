// Package chain wraps the identity registry, reputation registry, escrow and
// payment token contracts behind read and write facades so the rest of the
// service never touches ABI packing directly.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"jobsboard-backend/internal/config"
	"jobsboard-backend/internal/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrNotFound marks "entity does not exist" outcomes (ownerOf on an unminted
// id, getJob on a never-funded job). Callers use it for existence probing; it
// is a normal result, not a failure.
var ErrNotFound = errors.New("chain: not found")

// EscrowJob is the raw getJob tuple. A zero Poster means the job was never
// funded on-chain.
type EscrowJob struct {
	Poster    common.Address
	Amount    *big.Int
	Winner    common.Address
	Released  bool
	Refunded  bool
	CreatedAt *big.Int
}

// Funded reports whether the escrow holds (or held) funds for the job
func (j *EscrowJob) Funded() bool {
	return j != nil && j.Poster != (common.Address{})
}

// Reader is the read-only contract query facade. Every query is idempotent
// and side-effect free.
type Reader interface {
	AgentBalance(ctx context.Context, wallet string) (uint64, error)
	TotalAgents(ctx context.Context) (uint64, error)
	AgentOwner(ctx context.Context, agentID uint64) (string, error)
	Reputation(ctx context.Context, agentID uint64) (score *big.Int, count *big.Int, err error)
	EscrowJob(ctx context.Context, jobID string) (*EscrowJob, error)
	Allowance(ctx context.Context, owner, spender string) (*big.Int, error)
	TokenBalance(ctx context.Context, owner string) (*big.Int, error)
	PlatformFeeBps(ctx context.Context) (int64, error)
	RegisteredEvents(ctx context.Context, fromBlock, toBlock uint64) ([]Registration, error)
	LatestBlock(ctx context.Context) (uint64, error)
}

// callBackend is the slice of ethclient.Client the reader needs; tests swap
// in a fake.
type callBackend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// contractReader implements Reader against a JSON-RPC backend.
type contractReader struct {
	backend  callBackend
	abis     *parsedABIs
	identity common.Address
	repute   common.Address
	escrow   common.Address
	token    common.Address
}

// NewReader creates a Reader bound to the configured contract addresses
func NewReader(backend callBackend, contracts config.ContractsConfig) Reader {
	return &contractReader{
		backend:  backend,
		abis:     contractABIs(),
		identity: common.HexToAddress(contracts.IdentityRegistry),
		repute:   common.HexToAddress(contracts.ReputationRegistry),
		escrow:   common.HexToAddress(contracts.Escrow),
		token:    common.HexToAddress(contracts.Token),
	}
}

// call packs, executes and unpacks one view function
func (r *contractReader) call(ctx context.Context, contract common.Address, contractABI *abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	metrics.ChainCallsTotal.WithLabelValues(method).Inc()
	result, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		if isRevert(err) {
			// Existence probes (ownerOf on a burned/unminted id, getJob on an
			// unknown job) revert; surface that as a distinguishable outcome.
			return nil, ErrNotFound
		}
		metrics.ChainCallErrors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}

	unpacked, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return unpacked, nil
}

// isRevert detects an execution revert in the RPC error string. Node
// implementations word it differently, so match loosely.
func isRevert(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") ||
		strings.Contains(msg, "revert") ||
		strings.Contains(msg, "invalid opcode")
}

func (r *contractReader) AgentBalance(ctx context.Context, wallet string) (uint64, error) {
	out, err := r.call(ctx, r.identity, &r.abis.identity, "balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return 0, err
	}
	return toBigInt(out[0]).Uint64(), nil
}

func (r *contractReader) TotalAgents(ctx context.Context) (uint64, error) {
	out, err := r.call(ctx, r.identity, &r.abis.identity, "totalAgents")
	if err != nil {
		return 0, err
	}
	return toBigInt(out[0]).Uint64(), nil
}

func (r *contractReader) AgentOwner(ctx context.Context, agentID uint64) (string, error) {
	out, err := r.call(ctx, r.identity, &r.abis.identity, "ownerOf", new(big.Int).SetUint64(agentID))
	if err != nil {
		return "", err
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected ownerOf result type %T", out[0])
	}
	if owner == (common.Address{}) {
		return "", ErrNotFound
	}
	return owner.Hex(), nil
}

func (r *contractReader) Reputation(ctx context.Context, agentID uint64) (*big.Int, *big.Int, error) {
	out, err := r.call(ctx, r.repute, &r.abis.reputation, "getReputation", new(big.Int).SetUint64(agentID))
	if err != nil {
		return nil, nil, err
	}
	if len(out) < 2 {
		return nil, nil, fmt.Errorf("unexpected getReputation result length %d", len(out))
	}
	return toBigInt(out[0]), toBigInt(out[1]), nil
}

func (r *contractReader) EscrowJob(ctx context.Context, jobID string) (*EscrowJob, error) {
	out, err := r.call(ctx, r.escrow, &r.abis.escrow, "getJob", jobID)
	if err != nil {
		return nil, err
	}
	if len(out) < 6 {
		return nil, fmt.Errorf("unexpected getJob result length %d", len(out))
	}

	job := &EscrowJob{
		Amount:    toBigInt(out[1]),
		CreatedAt: toBigInt(out[5]),
	}
	if poster, ok := out[0].(common.Address); ok {
		job.Poster = poster
	}
	if winner, ok := out[2].(common.Address); ok {
		job.Winner = winner
	}
	if released, ok := out[3].(bool); ok {
		job.Released = released
	}
	if refunded, ok := out[4].(bool); ok {
		job.Refunded = refunded
	}
	return job, nil
}

func (r *contractReader) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	out, err := r.call(ctx, r.token, &r.abis.erc20, "allowance",
		common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, err
	}
	return toBigInt(out[0]), nil
}

func (r *contractReader) TokenBalance(ctx context.Context, owner string) (*big.Int, error) {
	out, err := r.call(ctx, r.token, &r.abis.erc20, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	return toBigInt(out[0]), nil
}

func (r *contractReader) PlatformFeeBps(ctx context.Context) (int64, error) {
	out, err := r.call(ctx, r.escrow, &r.abis.escrow, "platformFeeBps")
	if err != nil {
		return 0, err
	}
	return toBigInt(out[0]).Int64(), nil
}

// Registration is one decoded Registered event from the identity registry
type Registration struct {
	AgentID     uint64
	Owner       string
	BlockNumber uint64
}

func (r *contractReader) RegisteredEvents(ctx context.Context, fromBlock, toBlock uint64) ([]Registration, error) {
	event := r.abis.identity.Events["Registered"]
	logs, err := r.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{r.identity},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter Registered logs: %w", err)
	}

	registrations := make([]Registration, 0, len(logs))
	for _, lg := range logs {
		// agentId and owner are both indexed, so they live in the topics
		if len(lg.Topics) < 3 {
			continue
		}
		registrations = append(registrations, Registration{
			AgentID:     new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64(),
			Owner:       common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
			BlockNumber: lg.BlockNumber,
		})
	}
	return registrations, nil
}

func (r *contractReader) LatestBlock(ctx context.Context) (uint64, error) {
	return r.backend.BlockNumber(ctx)
}

// toBigInt tolerates the handful of numeric types abi.Unpack can produce
func toBigInt(v interface{}) *big.Int {
	switch n := v.(type) {
	case *big.Int:
		return n
	case uint64:
		return new(big.Int).SetUint64(n)
	case uint8:
		return big.NewInt(int64(n))
	default:
		return big.NewInt(0)
	}
}
