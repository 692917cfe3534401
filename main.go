package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-hub/domain/repository"
	"social-hub/infrastructure/cache"
	"social-hub/infrastructure/clients/platform"
	"social-hub/infrastructure/configuration"
	"social-hub/infrastructure/cryptox"
	"social-hub/infrastructure/logger"
	"social-hub/infrastructure/persistence"
	"social-hub/infrastructure/pubsub"
	"social-hub/infrastructure/servicebus"
	httpHandler "social-hub/interfaces/http"
	"social-hub/server"
	"social-hub/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	// The encryption secret is mandatory. Refusing to start beats silently
	// storing tokens under a weak or missing key.
	if err := configuration.ValidateCrypto(configuration.C.Crypto); err != nil {
		logger.GetLogger().WithField("error", err.Error()).Error("Crypto configuration invalid")
		os.Exit(1)
	}
	tokenCipher, err := cryptox.NewTokenCipher(configuration.C.Crypto.EncryptionSecret, configuration.C.Crypto.KeySalt)
	if err != nil {
		logger.GetLogger().WithField("error", err.Error()).Error("Token cipher initialization failed")
		os.Exit(1)
	}

	db, vendor, err := initiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}
	logger.GetLogger().WithField("vendor", vendor).Info("Database connected")

	var accountRepository repository.ILinkedAccount
	var userRepository repository.IUser
	if vendor == "mssql" {
		if err := persistence.EnsureLinkedAccountSchemaMSSQL(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed ensuring linked account schema")
		}
		accountRepository = persistence.NewLinkedAccountRepositoryMSSQL(db)
		userRepository = persistence.NewUserRepositoryMSSQL(db)
	} else {
		if err := persistence.EnsureLinkedAccountSchema(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed ensuring linked account schema")
		}
		accountRepository = persistence.NewLinkedAccountRepository(db)
		userRepository = persistence.NewUserRepository(db)
	}

	// State tokens need an atomic get-and-delete. Redis is the production
	// backend; the in-process cache keeps local development working.
	var stateCache repository.ICache
	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - using in-process state cache")
		stateCache = cache.NewMemoryCache()
	} else {
		stateCache = cache.NewRedisCache(redisClient)
		logger.GetLogger().Info("Redis client initialized successfully")
	}

	eventPublisher := initiateEventPublisher(ctx)

	adapters := platform.NewRegistry(configuration.C.OAuth)
	stateStore := usecase.NewStateStore(stateCache)
	connectionUsecase := usecase.NewConnectionUsecase(accountRepository, stateStore, adapters, tokenCipher, eventPublisher)
	connectionHandler := httpHandler.NewConnectionHandler(connectionUsecase, app.FrontendURL)

	router := server.InitiateRouter(connectionHandler, userRepository)

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if app.TLSEnabled {
			cert, key := app.TLSCertFile, app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			} else {
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-interrupt:
			logger.GetLogger().Info("Interrupt received, shutting down")
		case <-ctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if httpServer != nil {
			return httpServer.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application stopped")
	}
}

// initiateDatabase picks the vendor: MSSQL in production (or when forced via
// DB_VENDOR), PostgreSQL otherwise.
func initiateDatabase() (*sql.DB, string, error) {
	env := os.Getenv("ENV")
	if v := os.Getenv("DB_VENDOR"); v == "mssql" || env == "production" || env == "prod" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, "", err
		}
		return db, "mssql", nil
	}
	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, "", err
	}
	return db, "psql", nil
}

// initiateEventPublisher wires whichever broker is configured: Google Pub/Sub
// when a project id is set, Azure Service Bus when a connection string or
// namespace is available. Nil disables lifecycle events.
func initiateEventPublisher(ctx context.Context) repository.IEventPublisher {
	if projectID := configuration.C.Pubsub.ProjectID; projectID != "" {
		client, err := pubsub.NewPubSub(ctx, projectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - continuing without lifecycle events")
		} else {
			logger.GetLogger().Info("Pub/Sub event publisher initialized")
			return pubsub.NewEventPublisher(client)
		}
	}

	if configuration.C.ServiceBus.Namespace != "" || os.Getenv("SERVICEBUS_CONNECTION_STRING") != "" {
		client, err := servicebus.NewServiceBus(configuration.C.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without lifecycle events")
		} else {
			logger.GetLogger().Info("Service Bus event publisher initialized")
			return servicebus.NewEventPublisher(client, "")
		}
	}

	logger.GetLogger().Info("No event broker configured - lifecycle events disabled")
	return nil
}
