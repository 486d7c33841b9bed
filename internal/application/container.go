// Package application provides application-level services and
// dependency injection.
package application

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feltworks/rangesync/internal/adapters/cache"
	"github.com/feltworks/rangesync/internal/adapters/identity"
	"github.com/feltworks/rangesync/internal/adapters/remote"
	appLink "github.com/feltworks/rangesync/internal/application/link"
	"github.com/feltworks/rangesync/internal/application/player"
	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/application/session"
	appSync "github.com/feltworks/rangesync/internal/application/sync"
	"github.com/feltworks/rangesync/internal/infrastructure/config"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
	"github.com/feltworks/rangesync/internal/infrastructure/storage"
	"github.com/feltworks/rangesync/internal/infrastructure/tracing"
)

// defaultRateLimits is the per-minute policy for gated link and share
// actions. Zero or absent means unlimited.
var defaultRateLimits = map[ports.RateLimitAction]int{
	ports.ActionLinkCreate:  10,
	ports.ActionLinkAccept:  30,
	ports.ActionLinkDecline: 30,
	ports.ActionLinkRemove:  30,
	ports.ActionLinkSync:    60,
	ports.ActionShareSend:   20,
}

// Container holds all application dependencies and provides a central
// point for dependency injection. It manages the lifecycle of services
// and ensures proper initialization order.
type Container struct {
	config  *config.Config
	verbose bool

	dbConn *storage.Connection
	db     *sql.DB

	playerRepo  ports.PlayerStore
	rangeRepo   ports.RangeSetStore
	sessionRepo ports.SessionStore
	outboxRepo  ports.OutboxStore

	playerCache *cache.PlayerCache
	checkCache  *cache.TTLCache[appLink.CheckResult]

	remoteClient *remote.Client
	probe        ports.Connectivity
	limiter      ports.RateLimiter
	friends      ports.FriendChecker
	snapshots    ports.SnapshotSource
	identity     ports.Identity

	outbox       *appSync.Outbox
	synchronizer *appSync.Synchronizer
	runner       *appSync.Runner

	playerService  *player.Service
	sessionService *session.Service
	linkService    *appLink.Service

	logger *logging.Logger
	tracer *tracing.Tracer
}

// NewContainer creates a dependency injection container with all
// services initialized from the provided configuration.
func NewContainer(ctx context.Context, cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
	}

	c.initObservability(ctx)

	if err := c.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.initRepositories()
	c.initRemote()
	c.initServices()

	return c, nil
}

// initObservability sets up logging and tracing. The verbose flag
// lowers the log level to debug regardless of configuration.
func (c *Container) initObservability(ctx context.Context) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.Level(c.config.Logging.Level)
	logCfg.Format = logging.Format(c.config.Logging.Format)
	if c.verbose {
		logCfg.Level = logging.LevelDebug
	}
	c.logger = logging.Init(logCfg)

	traceCfg := tracing.DefaultConfig()
	traceCfg.Enabled = c.config.Tracing.Enabled
	traceCfg.ExporterType = tracing.ExporterType(c.config.Tracing.ExporterType)
	traceCfg.OTLPEndpoint = c.config.Tracing.OTLPEndpoint
	traceCfg.SampleRate = c.config.Tracing.SampleRate
	if c.config.Tracing.ServiceName != "" {
		traceCfg.ServiceName = c.config.Tracing.ServiceName
	}

	tracer, err := tracing.Init(ctx, traceCfg)
	if err != nil {
		c.logger.Warn("tracing disabled", "error", err)
		tracer = tracing.Default()
	}
	c.tracer = tracer
}

// initDatabase opens the SQLite database, creating it at the
// configured path (default ~/.rangesync/rangesync.db) on first run.
func (c *Container) initDatabase() error {
	conn, err := storage.NewConnection(c.config.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := conn.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db, err := conn.DB()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	c.dbConn = conn
	c.db = db
	return nil
}

func (c *Container) initRepositories() {
	c.playerRepo = storage.NewPlayerRepository(c.db)
	c.rangeRepo = storage.NewRangeSetRepository(c.db)
	c.sessionRepo = storage.NewSessionRepository(c.db)
	c.outboxRepo = storage.NewOutboxRepository(c.db)
}

// initRemote wires the remote store client. Without a configured base
// URL the probe reports offline and every remote-backed feature
// degrades to local-only behavior.
func (c *Container) initRemote() {
	c.identity = identity.FromConfig(c.config)
	c.limiter = remote.NewFixedWindowLimiter(time.Minute, defaultRateLimits)

	if c.config.Remote.BaseURL == "" {
		c.probe = offlineConnectivity{}
		return
	}

	c.remoteClient = remote.NewClient(remote.Config{
		BaseURL:    c.config.Remote.BaseURL,
		APIKey:     c.config.Remote.APIKey,
		Timeout:    c.config.Remote.Timeout,
		MaxRetries: c.config.Remote.MaxRetries,
	})
	c.probe = remote.NewProbe(c.config.Remote.BaseURL, c.config.Sync.ConnectivityTTL)
	c.friends = remote.NewFriendAdapter(c.remoteClient)
	c.snapshots = remote.NewPollingSnapshotSource(c.remoteClient, c.config.Sync.Interval)
}

func (c *Container) initServices() {
	c.playerCache = cache.NewPlayerCache()
	c.checkCache = cache.NewTTLCache[appLink.CheckResult](c.config.Links.VersionCheckTTL)

	c.outbox = appSync.NewOutbox(c.outboxRepo, c.logger)

	var (
		playerRemote  ports.PlayerRemote
		rangeRemote   ports.RangeRemote
		sessionRemote ports.SessionRemote
		linkRemote    ports.LinkRemote
		shareRemote   ports.ShareRemote
	)
	if c.remoteClient != nil {
		playerRemote = remote.NewPlayerAdapter(c.remoteClient)
		rangeRemote = remote.NewRangeAdapter(c.remoteClient)
		sessionRemote = remote.NewSessionAdapter(c.remoteClient)
		linkRemote = remote.NewLinkAdapter(c.remoteClient)
		shareRemote = remote.NewShareAdapter(c.remoteClient)
	}

	c.synchronizer = appSync.NewSynchronizer(
		c.outboxRepo,
		c.playerRepo,
		c.rangeRepo,
		c.sessionRepo,
		appSync.Remotes{
			Players:  playerRemote,
			Ranges:   rangeRemote,
			Sessions: sessionRemote,
			Links:    linkRemote,
			Shares:   shareRemote,
		},
		c.probe,
		c.identity,
		c.playerCache,
		c.logger,
		c.tracer,
	)
	c.runner = appSync.NewRunner(c.synchronizer, c.probe, c.config.Sync.Interval, c.logger)

	c.playerService = player.NewService(c.playerRepo, c.rangeRepo, c.outbox, c.playerCache, c.identity, c.logger)
	c.sessionService = session.NewService(c.sessionRepo, c.outbox, c.logger)
	c.linkService = appLink.NewService(appLink.Deps{
		Links:        linkRemote,
		PlayerRemote: playerRemote,
		RangeRemote:  rangeRemote,
		Shares:       shareRemote,
		Players:      c.playerService,
		RangeSets:    c.rangeRepo,
		Outbox:       c.outbox,
		Identity:     c.identity,
		Friends:      c.friends,
		Limiter:      c.limiter,
		Checks:       c.checkCache,
		MaxLinks:     c.config.Links.MaxLinksPerUser,
		Logger:       c.logger,
		Tracer:       c.tracer,
	})
}

// StartBackgroundSync starts the periodic outbox drain and pull loop.
func (c *Container) StartBackgroundSync(ctx context.Context) {
	c.runner.Start(ctx)
}

// Config returns the loaded configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Identity returns the current identity provider.
func (c *Container) Identity() ports.Identity {
	return c.identity
}

// Players returns the player service.
func (c *Container) Players() *player.Service {
	return c.playerService
}

// Sessions returns the session service.
func (c *Container) Sessions() *session.Service {
	return c.sessionService
}

// Links returns the link service.
func (c *Container) Links() *appLink.Service {
	return c.linkService
}

// Outbox returns the pending-change queue.
func (c *Container) Outbox() *appSync.Outbox {
	return c.outbox
}

// Synchronizer returns the synchronizer.
func (c *Container) Synchronizer() *appSync.Synchronizer {
	return c.synchronizer
}

// Snapshots returns the badge-count subscription source, or nil when
// no remote is configured.
func (c *Container) Snapshots() ports.SnapshotSource {
	return c.snapshots
}

// Connectivity returns the connectivity probe.
func (c *Container) Connectivity() ports.Connectivity {
	return c.probe
}

// Close stops background work and releases all resources.
func (c *Container) Close() error {
	if c.runner != nil {
		c.runner.Stop()
	}

	var firstErr error
	if c.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.tracer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		cancel()
	}
	if c.dbConn != nil {
		if err := c.dbConn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// offlineConnectivity is the probe used when no remote is configured.
type offlineConnectivity struct{}

func (offlineConnectivity) Online(context.Context) bool { return false }
