package chain

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract ABIs, trimmed to the functions and events this service touches.

const identityABI = `[
	{"type":"function","name":"register","inputs":[{"name":"agentURI","type":"string"}],"outputs":[{"name":"agentId","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"ownerOf","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"totalAgents","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"tokenURI","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
	{"type":"event","name":"Registered","inputs":[{"name":"agentId","type":"uint256","indexed":true},{"name":"agentURI","type":"string","indexed":false},{"name":"owner","type":"address","indexed":true}]}
]`

const reputationABI = `[
	{"type":"function","name":"giveFeedback","inputs":[{"name":"agentId","type":"uint256"},{"name":"value","type":"int128"},{"name":"valueDecimals","type":"uint8"},{"name":"tag1","type":"string"},{"name":"tag2","type":"string"},{"name":"endpoint","type":"string"},{"name":"feedbackURI","type":"string"},{"name":"feedbackHash","type":"bytes32"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"getReputation","inputs":[{"name":"agentId","type":"uint256"}],"outputs":[{"name":"score","type":"int256"},{"name":"count","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"totalFeedbackCount","inputs":[{"name":"agentId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
]`

const escrowABI = `[
	{"type":"function","name":"fundJob","inputs":[{"name":"jobId","type":"string"},{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"selectWinner","inputs":[{"name":"jobId","type":"string"},{"name":"winner","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"releaseFunds","inputs":[{"name":"jobId","type":"string"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"refundJob","inputs":[{"name":"jobId","type":"string"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"getJob","inputs":[{"name":"jobId","type":"string"}],"outputs":[{"name":"poster","type":"address"},{"name":"amount","type":"uint256"},{"name":"winner","type":"address"},{"name":"released","type":"bool"},{"name":"refunded","type":"bool"},{"name":"createdAt","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"platformFeeBps","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
]`

const erc20ABI = `[
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"allowance","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
]`

type parsedABIs struct {
	identity   abi.ABI
	reputation abi.ABI
	escrow     abi.ABI
	erc20      abi.ABI
}

var (
	abis     parsedABIs
	abisOnce sync.Once
)

// contractABIs parses the embedded ABI definitions once. The definitions are
// compile-time constants, so a parse failure is a programming error.
func contractABIs() *parsedABIs {
	abisOnce.Do(func() {
		abis = parsedABIs{
			identity:   mustParseABI(identityABI),
			reputation: mustParseABI(reputationABI),
			escrow:     mustParseABI(escrowABI),
			erc20:      mustParseABI(erc20ABI),
		}
	})
	return &abis
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid embedded ABI: " + err.Error())
	}
	return parsed
}
