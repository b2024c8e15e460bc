package chain

import (
	"context"
	"fmt"
	"time"

	"jobsboard-backend/internal/config"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Dial connects to the first reachable RPC endpoint from the configured list.
// Each candidate is verified with a ChainID call before being accepted.
func Dial(cfg *config.ChainConfig) (*ethclient.Client, error) {
	if len(cfg.RPCEndpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints configured")
	}

	var lastErr error
	for _, endpoint := range cfg.RPCEndpoints {
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"error":    err.Error(),
			}).Warn("RPC dial failed, trying next endpoint")
			lastErr = err
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		chainID, err := client.ChainID(ctx)
		cancel()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"error":    err.Error(),
			}).Warn("RPC endpoint unresponsive, trying next")
			client.Close()
			lastErr = err
			continue
		}

		if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
			client.Close()
			lastErr = fmt.Errorf("endpoint %s reports chain id %d, expected %d", endpoint, chainID.Int64(), cfg.ChainID)
			logrus.Warn(lastErr.Error())
			continue
		}

		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"chain_id": chainID.Int64(),
		}).Info("Connected to RPC endpoint")
		return client, nil
	}

	return nil, fmt.Errorf("all RPC endpoints failed: %w", lastErr)
}
