package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"facilitywatch/internal/clients"
	"facilitywatch/internal/config"
	"facilitywatch/internal/db"
	httpserver "facilitywatch/internal/http"
	"facilitywatch/internal/http/handlers"
	"facilitywatch/internal/live"
	"facilitywatch/internal/metrics"
	"facilitywatch/internal/password"
	redisclient "facilitywatch/internal/redis"
	"facilitywatch/internal/repository"
	"facilitywatch/internal/scheduler"
	"facilitywatch/internal/service"
	"facilitywatch/internal/sessioncache"
)

// App wires the application dependency graph.
type App struct {
	server      *httpserver.Server
	hub         *live.Hub
	job         *scheduler.Job
	db          *sql.DB
	redisClient *goredis.Client
	autoStart   bool
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	sensorRepo := repository.NewSensorRepository(sqlDB)
	readingRepo := repository.NewReadingRepository(sqlDB)
	predictionRepo := repository.NewPredictionRepository(sqlDB)
	userRepo := repository.NewUserRepository(sqlDB)
	sessionRepo := repository.NewSessionRepository(sqlDB)
	activityRepo := repository.NewActivityLogRepository(sqlDB)

	sessionCache := sessioncache.New(redisClient, cfg.SessionTTL())
	hasher := password.NewBcryptHasher(0)
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWTExpiration())

	authService := service.NewAuthService(userRepo, sessionRepo, sessionCache,
		hasher, tokens, cfg.SessionTTL(), logger)
	userService := service.NewUserService(userRepo, hasher, logger)

	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)
	sensorClient := clients.NewSensorCloudClient(cfg.SensorCloud.BaseURL,
		cfg.SensorCloud.APIKey, cfg.SensorCloud.OrganizationID, logger)
	syncService := service.NewSyncService(sensorClient, sensorRepo, readingRepo,
		service.SyncConfig{
			APIKey:         cfg.SensorCloud.APIKey,
			OrganizationID: cfg.SensorCloud.OrganizationID,
			Serials:        cfg.SensorSerials(),
		}, syncMetrics, logger)
	job := scheduler.NewJob(syncService, cfg.SyncInterval(), logger)

	dashboardService := service.NewDashboardService(readingRepo, predictionRepo, sensorRepo, logger)
	predictionService := service.NewPredictionService(predictionRepo)

	hub := live.NewHub(30*time.Second, logger)
	roomLiveService := service.NewRoomLiveService(activityRepo, hub, logger)
	activityLogService := service.NewActivityLogService(activityRepo)

	routes := httpserver.Routes{
		Auth:        handlers.NewAuthHandlers(authService, logger),
		Users:       handlers.NewUserHandlers(userService, logger),
		Sync:        handlers.NewSyncHandlers(syncService, job, logger),
		Sensors:     handlers.NewSensorHandlers(syncService, sensorRepo, logger),
		Dashboard:   handlers.NewDashboardHandlers(dashboardService, logger),
		RoomLive:    handlers.NewRoomLiveHandlers(roomLiveService, logger),
		ActivityLog: handlers.NewActivityLogHandlers(activityLogService, logger),
		Predictions: handlers.NewPredictionHandlers(predictionService, logger),
		Health:      handlers.NewHealthHandler(),
		Metrics:     metrics.Handler(),
		LiveFeed:    hub.Handler(),
		Tokens:      tokens,
		Sessions:    authService,
	}

	server := httpserver.NewServer(cfg.HTTPAddress(), httpserver.NewRouter(routes), logger)

	return &App{
		server:      server,
		hub:         hub,
		job:         job,
		db:          sqlDB,
		redisClient: redisClient,
		autoStart:   cfg.SensorCloud.AutoStart,
		logger:      logger,
	}, nil
}

// Run starts the live hub, the sync job when configured to auto start, and
// the HTTP server. It blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)

	if a.autoStart {
		a.job.Start()
	}
	defer a.job.Stop()

	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
