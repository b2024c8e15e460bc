// Package app wires the service graph at startup.
package app

import (
	"fmt"
	"sync"
	"time"

	"jobsboard-backend/internal/chain"
	"jobsboard-backend/internal/clients"
	"jobsboard-backend/internal/config"
	"jobsboard-backend/internal/credentials"
	"jobsboard-backend/internal/db"
	"jobsboard-backend/internal/events"
	"jobsboard-backend/internal/repository"
	"jobsboard-backend/internal/services"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer holds every long-lived component of the gateway
type ServiceContainer struct {
	// Chain
	EthClient *ethclient.Client
	Reader    chain.Reader
	Writer    *chain.Writer

	// Local state
	DB             *gorm.DB
	AgentIndexRepo repository.AgentIndexRepository
	TokenStore     *credentials.Store

	// External services
	JobStore  *clients.JobStoreClient
	Publisher *events.NATSPublisher

	// Domain services
	Resolver   *services.AgentResolverService
	Reconciler *services.EscrowReconcilerService
	Workflows  *services.WorkflowService
	Indexer    *services.AgentIndexService
	Push       *services.PushService
}

var (
	Container     *ServiceContainer
	containerOnce sync.Once
)

// InitializeContainer builds the service graph from AppConfig. Safe to call
// more than once; only the first call constructs anything.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		cfg := config.AppConfig
		if cfg == nil {
			initErr = fmt.Errorf("configuration not loaded")
			return
		}

		container := &ServiceContainer{}

		if err := container.initChain(cfg); err != nil {
			initErr = err
			return
		}
		if err := container.initLocalState(cfg); err != nil {
			initErr = err
			return
		}
		container.initServices(cfg)

		Container = container
		logrus.Info("Service container initialized")
	})

	return Container, initErr
}

// initChain dials the RPC endpoints and builds the read/write facades
func (c *ServiceContainer) initChain(cfg *config.Config) error {
	client, err := chain.Dial(&cfg.Chain)
	if err != nil {
		return fmt.Errorf("failed to connect to chain: %w", err)
	}
	c.EthClient = client
	c.Reader = chain.NewReader(client, cfg.Chain.Contracts)

	var signer chain.Signer
	if cfg.Chain.PrivateKey != "" {
		pkSigner, err := chain.NewPrivateKeySigner(cfg.Chain.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to load signing key: %w", err)
		}
		signer = pkSigner
		logrus.WithField("address", pkSigner.Address().Hex()).Info("Signing wallet loaded")
	} else {
		logrus.Warn("No signing key configured, transaction workflows will be rejected")
	}
	c.Writer = chain.NewWriter(client, signer, &cfg.Chain)
	return nil
}

// initLocalState opens the token store and, when enabled, the agent index
func (c *ServiceContainer) initLocalState(cfg *config.Config) error {
	store, err := credentials.NewStore(cfg.Credentials.Path)
	if err != nil {
		return fmt.Errorf("failed to open poster token store: %w", err)
	}
	c.TokenStore = store

	if cfg.AgentIndex.Enabled {
		database, err := db.Open(cfg.AgentIndex.Path)
		if err != nil {
			return fmt.Errorf("failed to open agent index database: %w", err)
		}
		c.DB = database
		c.AgentIndexRepo = repository.NewAgentIndexRepository(database)
	}
	return nil
}

// initServices builds the domain services on top of the chain and state layers
func (c *ServiceContainer) initServices(cfg *config.Config) {
	c.JobStore = clients.NewJobStoreClient(cfg.JobStore.BaseURL, time.Duration(cfg.JobStore.Timeout)*time.Second)
	c.Push = services.NewPushService()

	if cfg.NATS.URL != "" {
		publisher, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			logrus.WithField("error", err.Error()).Warn("NATS unavailable, lifecycle events disabled")
		} else {
			c.Publisher = publisher
		}
	}

	c.Resolver = services.NewAgentResolverService(c.Reader, c.AgentIndexRepo)
	c.Reconciler = services.NewEscrowReconcilerService(c.Reader, cfg.Chain.TokenDecimals)

	var publisher services.EventPublisher
	if c.Publisher != nil {
		publisher = c.Publisher
	}
	c.Workflows = services.NewWorkflowService(
		c.Reader,
		c.Writer,
		c.JobStore,
		c.TokenStore,
		publisher,
		c.Push,
		&cfg.Chain,
		&cfg.Manifest,
	)

	if c.AgentIndexRepo != nil {
		c.Indexer = services.NewAgentIndexService(
			c.Reader,
			c.AgentIndexRepo,
			cfg.AgentIndex.StartBlock,
			time.Duration(cfg.AgentIndex.SyncInterval)*time.Minute,
		)
		c.Indexer.Start()
	}
}

// Cleanup releases long-lived resources in reverse dependency order
func (c *ServiceContainer) Cleanup() {
	if c.Indexer != nil {
		c.Indexer.Stop()
	}
	if c.Publisher != nil {
		c.Publisher.Close()
	}
	if c.EthClient != nil {
		c.EthClient.Close()
	}
	logrus.Info("Service container cleaned up")
}
