package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClarenceCat/awf-group-api/config"
	"github.com/ClarenceCat/awf-group-api/handlers"
	"github.com/ClarenceCat/awf-group-api/logging"
	"github.com/ClarenceCat/awf-group-api/metrics"
	"github.com/ClarenceCat/awf-group-api/middleware"
	"github.com/ClarenceCat/awf-group-api/repositories"
	"github.com/ClarenceCat/awf-group-api/services"
	"github.com/ClarenceCat/awf-group-api/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, envLoaded, err := config.Load(".env")
	logOpts := logging.Options{SystemName: config.ServiceName}
	if cfg != nil {
		logOpts.File, logOpts.Level = cfg.LogFile, cfg.LogLevel
	}
	logging.InitLogger(logOpts)
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_INVALID, Description: %v", err)
	}
	if !envLoaded {
		logging.Logger.Warn("Event ID: ENV_FILE_MISSING, Description: No .env file found, using process environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: MONGO_CONNECT_FAILED, Description: Database connection failed: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: MONGO_PING_FAILED, Description: MongoDB connection error: %v", err)
	}
	logging.Logger.Infof("Event ID: MONGO_CONNECTED, Description: Connected to MongoDB database %s", cfg.MongoDBName)

	db := client.Database(cfg.MongoDBName)
	if err := repositories.EnsureIndexes(ctx, db); err != nil {
		logging.Logger.Fatalf("Event ID: MONGO_INDEX_FAILED, Description: %v", err)
	}

	userRepo := repositories.NewMongoUserRepository(db.Collection(repositories.UsersCollection))
	projectRepo := repositories.NewMongoProjectRepository(db.Collection(repositories.ProjectsCollection))

	var notificationRepo repositories.NotificationRepository
	if len(cfg.CassandraHosts) > 0 {
		cassRepo, err := repositories.NewCassandraNotificationRepository(cfg.CassandraHosts, cfg.CassandraKeyspace)
		if err != nil {
			logging.Logger.Fatalf("Event ID: CASSANDRA_INIT_FAILED, Description: Failed to initialize repository: %v", err)
		}
		defer cassRepo.Close()
		notificationRepo = cassRepo
	} else {
		logging.Logger.Warn("Event ID: CASSANDRA_DISABLED, Description: CASS_DB not set, notifications are kept in memory")
		notificationRepo = repositories.NewMemoryNotificationRepository(100)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	notificationService := services.NewNotificationService(notificationRepo, services.NewNotificationBreaker(30*time.Second), collector)
	authService := services.NewAuthService(userRepo, utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL))
	projectService := services.NewProjectService(projectRepo, userRepo, notificationService)
	taskService := services.NewTaskService(projectRepo, userRepo, notificationService)

	authLimiter := middleware.NewRateLimiter(cfg.AuthRatePerMin, 10*time.Minute, cfg.TrustProxy, collector)
	defer authLimiter.Stop()

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:          authService,
		Authenticator: authService,
		Projects:      projectService,
		Tasks:         taskService,
		Notifications: notificationService,
		Store:         projectRepo,
		Recorder:      collector,
		Metrics:       metrics.Handler(registry),
		AuthLimiter:   authLimiter.Middleware,
		CORSOrigin:    cfg.CORSOrigin,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_STARTED, Description: Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FAILED, Description: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logging.Logger.Infof("Event ID: SERVER_SHUTDOWN, Description: Received %s, draining connections", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", err)
	}
}
