package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/woodtrack/services/production/config"
	"example.com/woodtrack/services/production/internal/cache"
	"example.com/woodtrack/services/production/internal/database"
	"example.com/woodtrack/services/production/internal/identity"
	"example.com/woodtrack/services/production/internal/messaging"
	"example.com/woodtrack/services/production/internal/metrics"
	"example.com/woodtrack/services/production/internal/repositories"
	"example.com/woodtrack/services/production/internal/search"
	"example.com/woodtrack/services/production/internal/services"
	"example.com/woodtrack/services/production/internal/tracing"
)

// app holds the wired dependencies shared by the api and worker commands
type app struct {
	cfg       config.Config
	db        *gorm.DB
	readOnly  *gorm.DB
	cache     *cache.RedisCache
	elastic   *search.ElasticClient
	tracer    tracing.Tracer
	metrics   *metrics.Metrics
	publisher messaging.Publisher

	clients  *repositories.ClientRepository
	products *repositories.ClientProductRepository
	orders   *repositories.OrderRepository
	lines    *repositories.OrderLineRepository
	groups   *repositories.GroupRepository
	users    *repositories.UserRepository

	lifecycle    *services.LifecycleService
	groupSvc     *services.GroupService
	intake       *services.IntakeService
	notes        *services.NoteDebouncer
	provider     *identity.StoreProvider
	provisioning *identity.ProvisioningService
}

// noteQuietPeriod is how long a line's note must stay untouched before the
// pending edit is written.
const noteQuietPeriod = 500 * time.Millisecond

func setupApp() (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	readOnly, err := database.ConnectReadOnly(cfg.DB)
	if err != nil {
		return nil, err
	}
	// Migrate only through the write connection
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = nil
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.NewNoop()
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
		elasticClient = nil
	}

	publisher, err := messaging.NewPublisher(cfg.Azure)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	a := &app{
		cfg:       cfg,
		db:        db,
		readOnly:  readOnly,
		cache:     redisCache,
		elastic:   elasticClient,
		tracer:    tracer,
		metrics:   m,
		publisher: publisher,

		clients:  repositories.NewClientRepository(db, readOnly),
		products: repositories.NewClientProductRepository(db, readOnly),
		orders:   repositories.NewOrderRepository(db, readOnly),
		lines:    repositories.NewOrderLineRepository(db, readOnly),
		groups:   repositories.NewGroupRepository(db, readOnly),
		users:    repositories.NewUserRepository(db, readOnly),
	}

	var indexer services.CompletedIndexer
	if elasticClient != nil {
		indexer = elasticClient
	}

	a.lifecycle = services.NewLifecycleService(a.lines, a.groups, publisher, indexer, m)
	a.groupSvc = services.NewGroupService(a.lines, a.groups, m)
	a.intake = services.NewIntakeService(a.orders, a.lines, m)
	a.notes = services.NewNoteDebouncer(noteQuietPeriod, a.lifecycle.SetNote)

	var sessions identity.SessionStore
	if redisCache.Enabled() {
		sessions = identity.NewRedisSessionStore(redisCache, cfg.Auth.SessionTTL)
	} else {
		log.Warn().Msg("Redis disabled, using in-memory sessions")
		sessions = identity.NewMemorySessionStore()
	}
	a.provider = identity.NewStoreProvider(a.users, sessions, cfg.Auth.SessionTTL)
	a.provisioning = identity.NewProvisioningService(a.users, cfg.Auth.OTPTTL, cfg.Auth.BcryptCost)

	return a, nil
}

func (a *app) close() {
	a.notes.Close()
	if err := a.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close publisher")
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}
	a.tracer.Close()
	if err := database.Close(a.db); err != nil {
		log.Error().Err(err).Msg("Failed to close database connection")
	}
	if err := database.Close(a.readOnly); err != nil {
		log.Error().Err(err).Msg("Failed to close read-only database connection")
	}
}
