package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/diplomaregistry/internal/app/controllers"
	appMigrations "github.com/yigit/diplomaregistry/internal/app/migrations"
	appRepos "github.com/yigit/diplomaregistry/internal/app/repositories"
	appRoutes "github.com/yigit/diplomaregistry/internal/app/routes"
	appServices "github.com/yigit/diplomaregistry/internal/app/services"
	"github.com/yigit/diplomaregistry/internal/config"
	"github.com/yigit/diplomaregistry/internal/db"
	appMiddleware "github.com/yigit/diplomaregistry/internal/middleware"
	pkgAuth "github.com/yigit/diplomaregistry/internal/pkg/auth"
	"github.com/yigit/diplomaregistry/internal/pkg/filestorage"
	"github.com/yigit/diplomaregistry/internal/pkg/helpers"
	"github.com/yigit/diplomaregistry/internal/pkg/ipfs"
	"github.com/yigit/diplomaregistry/internal/pkg/ledger"
	"github.com/yigit/diplomaregistry/internal/pkg/logger"
	"github.com/yigit/diplomaregistry/internal/pkg/tracing"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Journal           appRepos.IssuanceRepository
	Publisher         ipfs.Publisher
	Ledger            *ledger.Gateway
	TempStorage       *filestorage.LocalStorage
	JWTService        *pkgAuth.JWTService
	IssuanceService   *appServices.IssuanceService
	RegistryService   *appServices.RegistryService
	AuthService       *appServices.AuthService
	AuthController    *appControllers.AuthController
	StudentController *appControllers.StudentController
	HealthController  *appControllers.HealthController
	AuthMiddleware    *appMiddleware.AuthMiddleware
	RateLimiter       *appMiddleware.RateLimiter
	Tracing           *tracing.Provider
	Logger            zerolog.Logger
}

// Close releases the ledger connection, stops background workers and flushes spans
func (d *Dependencies) Close() {
	if d.RateLimiter != nil {
		d.RateLimiter.Stop()
	}
	if d.Ledger != nil {
		d.Ledger.Close()
	}
	if d.Tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Tracing.Shutdown(ctx)
	}
}

// TracingConfig translates the tracing section into exporter settings
func TracingConfig(cfg *config.Config) tracing.Config {
	return tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		Environment:  cfg.Server.Mode,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		Insecure:     cfg.Tracing.Insecure,
		SampleRate:   cfg.Tracing.SampleRate,
		BatchTimeout: helpers.ParseDuration(cfg.Tracing.BatchTimeout, 5*time.Second),
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase connects to Postgres and applies migrations. It returns a nil pool when the
// database is disabled; the issuance journal then lives in memory.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	if !cfg.Database.Enabled {
		lgr.Warn().Msg("Database disabled, issuance journal is kept in memory")
		return nil, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsPath
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		dbPool.Close()
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		dbPool.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return dbPool, nil
}

// NewPublisher builds the content publisher selected by storage.provider
func NewPublisher(cfg *config.Config, lgr zerolog.Logger) (ipfs.Publisher, error) {
	switch cfg.Storage.Provider {
	case "local":
		store, err := ipfs.NewLocalStore(cfg.Storage.LocalPath, cfg.Storage.LocalBaseURL, lgr)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "pinata":
		return ipfs.NewPinataClient(ipfs.PinataConfig{
			APIURL:     cfg.Storage.PinataAPIURL,
			JWT:        cfg.Storage.PinataJWT,
			APIKey:     cfg.Storage.PinataKey,
			APISecret:  cfg.Storage.PinataSecret,
			GatewayURL: cfg.Storage.GatewayURL,
			Timeout:    helpers.ParseDuration(cfg.Storage.Timeout, time.Minute),
		}, lgr), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// LedgerConfig translates the ledger section into gateway settings
func LedgerConfig(cfg *config.Config) ledger.Config {
	return ledger.Config{
		RPCURL:          cfg.Ledger.RPCURL,
		PrivateKey:      cfg.Ledger.PrivateKey,
		ContractAddress: cfg.Ledger.ContractAddress,
		ChainID:         cfg.Ledger.ChainID,
		CallTimeout:     helpers.ParseDuration(cfg.Ledger.CallTimeout, 30*time.Second),
		ConfirmTimeout:  helpers.ParseDuration(cfg.Ledger.ConfirmTimeout, 3*time.Minute),
		SettleInterval:  helpers.ParseDuration(cfg.Ledger.SettleInterval, 500*time.Millisecond),
		SettleTimeout:   helpers.ParseDuration(cfg.Ledger.SettleTimeout, 30*time.Second),
		QueueSize:       cfg.Ledger.QueueSize,
	}
}

// BuildDependencies initializes repositories, services and controllers. gateway is the
// ledger implementation; pass nil to dial cfg.Ledger.RPCURL.
func BuildDependencies(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, gateway appServices.LedgerGateway, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	var err error
	deps.Tracing, err = tracing.Setup(ctx, TracingConfig(cfg), lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize tracing")
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if dbPool != nil {
		deps.Journal = appRepos.NewPostgresIssuanceRepository(dbPool)
	} else {
		deps.Journal = appRepos.NewMemoryIssuanceRepository()
	}

	deps.Publisher, err = NewPublisher(cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize content publisher")
		deps.Close()
		return nil, fmt.Errorf("failed to initialize content publisher: %w", err)
	}

	deps.TempStorage, err = filestorage.NewLocalStorage(cfg.Server.TempPath, lgr)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize temp storage: %w", err)
	}

	if gateway == nil {
		deps.Ledger, err = ledger.Dial(ctx, LedgerConfig(cfg), lgr.With().Str("component", "ledger").Logger())
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to ledger")
			deps.Close()
			return nil, fmt.Errorf("failed to connect to ledger: %w", err)
		}
		gateway = deps.Ledger
	}

	ledgerRead := helpers.ParseDuration(cfg.Ledger.CallTimeout, 30*time.Second)

	deps.IssuanceService = appServices.NewIssuanceService(
		deps.Publisher,
		gateway,
		deps.Journal,
		deps.TempStorage,
		appServices.IssuanceTimeouts{
			Publish:     helpers.ParseDuration(cfg.Storage.Timeout, time.Minute),
			LedgerWrite: helpers.ParseDuration(cfg.Server.WriteTimeout, 5*time.Minute),
			LedgerRead:  ledgerRead,
		},
		lgr.With().Str("component", "issuance").Logger(),
	)

	deps.RegistryService = appServices.NewRegistryService(
		gateway,
		deps.Publisher,
		cfg.Registry.ReadsPerSecond,
		ledgerRead,
		helpers.ParseDuration(cfg.Registry.MetadataTimeout, 10*time.Second),
		lgr.With().Str("component", "registry").Logger(),
	)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.Auth.JWTSecret,
		AccessTokenExp: helpers.ParseDuration(cfg.Auth.TokenExpiration, 8*time.Hour),
		TokenIssuer:    cfg.Auth.Issuer,
	})
	deps.AuthService = appServices.NewAuthService(cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash, deps.JWTService, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.RateLimiter = appMiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.StudentController = appControllers.NewStudentController(
		deps.IssuanceService,
		deps.RegistryService,
		int64(cfg.Server.MaxUploadMB)<<20,
		lgr,
	)
	deps.HealthController = appControllers.NewHealthController()

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20
	router.Use(
		appMiddleware.Recovery(lgr),
		appMiddleware.RequestLogger(lgr),
		deps.RateLimiter.Middleware(),
	)

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.StudentController,
		deps.HealthController,
		deps.AuthMiddleware,
	)

	// The local content store is served the way a public gateway would serve it
	if store, ok := deps.Publisher.(*ipfs.LocalStore); ok {
		router.Static("/ipfs", store.Root())
		lgr.Info().Str("path", store.Root()).Msg("Serving local content store under /ipfs")
	}

	return router, nil
}
