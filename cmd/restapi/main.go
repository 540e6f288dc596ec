package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-scheduling/internal/auth"
	"clinic-scheduling/internal/configs"
	"clinic-scheduling/internal/database"
	"clinic-scheduling/internal/logging"
	"clinic-scheduling/internal/metrics"
	"clinic-scheduling/internal/redisclient"
	"clinic-scheduling/internal/scheduling"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	configPath = flag.String("config", "", "Config file path")
	migrate    = flag.Bool("migrate", false, "Apply the database migrations before serving")
)

// loadConfigurations loads system configurations based on the given config file.
func loadConfigurations() configs.Config {
	if *configPath == "" {
		log.Fatal().Msg("no config file path was given")
	}
	config, err := configs.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	return config
}

// createDBConnection creates a new database connection based on the given configuration.
func createDBConnection(logger zerolog.Logger, config configs.Config) database.Connection {
	dbConn, err := database.NewConnection(config)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not connect to the database")
	}
	if !*migrate {
		return dbConn
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err = database.Migrate(ctx, dbConn); err != nil {
		logger.Fatal().Err(err).Msg("could not migrate the database")
	}
	logger.Info().Msg("database migrated")
	return dbConn
}

// schedulingOptions wires Redis into the scheduling service when an address is configured.
// Without Redis, bookings rely on the ledger unique index alone and events are dropped.
func schedulingOptions(logger zerolog.Logger, config configs.Config) ([]scheduling.ServiceOption, func()) {
	if config.RedisAddr() == "" {
		logger.Warn().Msg("no redis address was given, slot locks and appointment events are disabled")
		return nil, func() {}
	}
	client, err := redisclient.NewRedisClient(config.RedisAddr(), config.RedisPassword())
	if err != nil {
		logger.Fatal().Err(err).Str("addr", config.RedisAddr()).Msg("could not connect to redis")
	}
	opts := []scheduling.ServiceOption{
		scheduling.WithLocker(redisclient.NewRedisSlotLocker(client, config.SlotLockTTL())),
		scheduling.WithNotifier(scheduling.NewPublisherNotifier(redisclient.NewRedisPublisher(client), logger)),
	}
	return opts, func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("could not close the redis client")
		}
	}
}

func main() {
	// Load dependencies
	flag.Parse()
	config := loadConfigurations()
	logger := logging.New(os.Stdout, config.Env())
	dbConn := createDBConnection(logger, config)
	opts, closeRedis := schedulingOptions(logger, config)

	// Init Authorizer service
	authorizer := auth.NewService(config, dbConn)

	// Setup the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.Heartbeat("/health"))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(metrics.PrometheusMiddleware)
	router.Use(middleware.SetHeader("Content-type", "application/json"))

	router.Handle("/metrics", metrics.Handler())

	// Setup Auth routes
	auth.Setup(router, logger, config, dbConn)

	// Setup Scheduling routes
	scheduling.Setup(router, logger, authorizer, dbConn, opts...)

	// Creates the HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.ServerPort()),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// Channel to listen OS signalling in order to gracefully shutdown the HTTP server and other resources
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	// Starts the server
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	logger.Info().Int32("port", config.ServerPort()).Msg("server started")

	// Listens until server stop
	<-exit
	logger.Warn().Msg("server stopped")

	// Creates a timeout to handle resources release
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer func() {
		closeRedis()
		dbConn.Close()
		cancel()
	}()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("an error occurred while server is shutting down")
		return
	}

	logger.Info().Msg("server shutdown successfully")
}
