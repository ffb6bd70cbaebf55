package di

import (
	"chatwoot-unipile-bridge/backend/chatwoot"
	"chatwoot-unipile-bridge/backend/pkg/config"
	"chatwoot-unipile-bridge/backend/pkg/jwt"
	"chatwoot-unipile-bridge/backend/pkg/logger"
	"chatwoot-unipile-bridge/backend/relay/dedupe"
	"chatwoot-unipile-bridge/backend/relay/repository"
	"chatwoot-unipile-bridge/backend/relay/service"
	"chatwoot-unipile-bridge/backend/relay/ws"
	sharedredis "chatwoot-unipile-bridge/backend/shared/redis"
	"chatwoot-unipile-bridge/backend/unipile"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB             *gorm.DB
	Logger         *logger.Logger
	Config         *config.Config
	JWTService     *jwt.Service
	Redis          *sharedredis.RedisClient
	DedupeCache    dedupe.Cache
	EventLogs      repository.EventLogRepository
	ChatwootClient *chatwoot.Client
	UnipileClient  *unipile.Client
	Forwarder      *service.Forwarder
	Engine         *service.Engine
	Sweeper        *service.Sweeper
	Hub            *ws.Hub
}

// New wires the relay's dependency graph. The dedupe backend is chosen by
// configuration; everything else is unconditional.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.New(logger.DefaultConfig())
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)

	c := &Container{
		DB:         db,
		Logger:     log,
		Config:     cfg,
		JWTService: jwtService,
	}

	switch cfg.Dedupe.Backend {
	case "redis":
		c.Redis = sharedredis.NewRedisClient()
		c.DedupeCache = repository.NewRedisDedupeRepository(c.Redis)
	default:
		c.DedupeCache = repository.NewGormDedupeRepository(db)
	}

	c.EventLogs = repository.NewGormEventLogRepository(db)
	c.ChatwootClient = chatwoot.NewClient()
	c.UnipileClient = unipile.NewClient()
	c.Forwarder = service.NewForwarder(c.ChatwootClient, c.UnipileClient, log)
	c.Engine = service.NewEngine(c.DedupeCache, c.EventLogs, c.Forwarder, cfg.Dedupe.TTL, log)
	c.Sweeper = service.NewSweeper(c.DedupeCache, cfg.Dedupe.SweepInterval, log)

	c.Hub = ws.NewHub(log)
	c.Engine.SetPublisher(c.Hub)

	return c, nil
}
