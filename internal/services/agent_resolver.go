package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"jobsboard-backend/internal/chain"
	"jobsboard-backend/internal/metrics"
	"jobsboard-backend/internal/models"
	"jobsboard-backend/internal/repository"
	"jobsboard-backend/internal/utils"

	"github.com/sirupsen/logrus"
)

// AgentResolverService maps wallet addresses to identity-registry agent ids
// and attaches normalized reputation. The registry offers no reverse lookup,
// so resolution is a balance probe followed by an index lookup and, failing
// that, a descending ownership scan.
type AgentResolverService struct {
	reader chain.Reader
	index  repository.AgentIndexRepository
}

// NewAgentResolverService creates the resolver; index may be nil when the
// local reverse index is disabled.
func NewAgentResolverService(reader chain.Reader, index repository.AgentIndexRepository) *AgentResolverService {
	return &AgentResolverService{
		reader: reader,
		index:  index,
	}
}

// Resolve returns the agent identity for a wallet, or nil when the wallet
// holds no identity token. A nil result is a normal outcome, not an error.
func (s *AgentResolverService) Resolve(ctx context.Context, wallet string) (*models.AgentIdentity, error) {
	if !utils.IsEvmAddress(wallet) {
		return nil, fmt.Errorf("invalid wallet address: %s", wallet)
	}

	// Balance probe first: most wallets are not agents and the probe is one
	// cheap call, so no scan runs for them.
	balance, err := s.reader.AgentBalance(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to check agent balance: %w", err)
	}
	if balance == 0 {
		return nil, nil
	}

	agentID, err := s.findAgentID(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if agentID == 0 {
		// Balance said the wallet owns a token but no owned id was found.
		// Possible mid-scan transfer; report as unresolved.
		logrus.WithField("wallet", wallet).Warn("Agent balance positive but no owned id found")
		return nil, nil
	}

	identity := &models.AgentIdentity{
		Wallet:  wallet,
		AgentID: agentID,
	}
	identity.Reputation = s.fetchReputation(ctx, agentID)
	return identity, nil
}

// ResolveMany resolves a batch of wallets best-effort. Wallets that fail to
// resolve are simply absent from the result; one bad wallet never poisons
// the batch.
func (s *AgentResolverService) ResolveMany(ctx context.Context, wallets []string) map[string]*models.AgentIdentity {
	resolved := make(map[string]*models.AgentIdentity, len(wallets))
	for _, wallet := range wallets {
		key := utils.NormalizeAddress(wallet)
		if _, done := resolved[key]; done {
			continue
		}
		identity, err := s.Resolve(ctx, wallet)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"wallet": wallet,
				"error":  err.Error(),
			}).Debug("Skipping unresolvable wallet")
			continue
		}
		if identity != nil {
			resolved[key] = identity
		}
	}
	return resolved
}

// findAgentID locates the id owned by wallet: index first, linear scan as
// fallback.
func (s *AgentResolverService) findAgentID(ctx context.Context, wallet string) (uint64, error) {
	if s.index != nil {
		entry, err := s.index.GetByWallet(ctx, utils.NormalizeAddress(wallet))
		if err != nil {
			logrus.WithField("error", err.Error()).Warn("Agent index lookup failed, falling back to scan")
		} else if entry != nil {
			// Verify against the chain; the index trails head by up to a block
			// and a token may have been transferred since.
			owner, err := s.reader.AgentOwner(ctx, entry.AgentID)
			if err == nil && utils.SameAddress(owner, wallet) {
				metrics.AgentIndexHits.Inc()
				return entry.AgentID, nil
			}
		}
	}
	return s.scanForAgentID(ctx, wallet)
}

// scanForAgentID walks ownership from totalAgents down to 1. Newest
// registrations are the common lookups, so the descending order keeps the
// expected call count low. Unminted or burned ids are skipped.
func (s *AgentResolverService) scanForAgentID(ctx context.Context, wallet string) (uint64, error) {
	total, err := s.reader.TotalAgents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch total agents: %w", err)
	}

	lookups := 0
	defer func() { metrics.AgentScanLookups.Observe(float64(lookups)) }()

	for id := total; id >= 1; id-- {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		lookups++
		owner, err := s.reader.AgentOwner(ctx, id)
		if errors.Is(err, chain.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to fetch owner of agent %d: %w", id, err)
		}
		if utils.SameAddress(owner, wallet) {
			return id, nil
		}
	}
	return 0, nil
}

// fetchReputation reads and normalizes an agent's reputation. Failures
// degrade to the zero summary so identity resolution still succeeds.
func (s *AgentResolverService) fetchReputation(ctx context.Context, agentID uint64) models.ReputationSummary {
	score, count, err := s.reader.Reputation(ctx, agentID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"agent_id": agentID,
			"error":    err.Error(),
		}).Debug("Reputation fetch failed")
		return models.ReputationSummary{Display: "No ratings"}
	}
	return summarizeReputation(score, count)
}

// summarizeReputation normalizes the registry's 1e18 fixed-point score. A
// zero feedback count always displays as "No ratings", whatever the raw
// score holds.
func summarizeReputation(score, count *big.Int) models.ReputationSummary {
	summary := models.ReputationSummary{}
	if count != nil {
		summary.Count = int(count.Int64())
	}
	if summary.Count == 0 {
		summary.Display = "No ratings"
		return summary
	}
	summary.Score = utils.NormalizeReputationScore(score)
	summary.Display = fmt.Sprintf("%.1f (%d)", summary.Score, summary.Count)
	return summary
}
