package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"eventtracker/cmd/buildCFG"
	"eventtracker/internal/api/api"
	"eventtracker/internal/auth"
	rabbitReader "eventtracker/internal/consumerWorker"
	"eventtracker/internal/mailer"
	"eventtracker/internal/rabbit"
	"eventtracker/internal/repo"
	"eventtracker/internal/service"
	"eventtracker/internal/store"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "EVENTTRACKER"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	authCfg, err := buildCFG.BuildAuthConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build auth config")
	}

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}

	var repository repo.Repository
	if masterDSN == "" {
		log.Warn().Msg("no database configured, using the in-memory repository")
		repository = repo.NewMemoryRepository()
	} else {
		db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
		if err != nil {
			log.Fatal().Msgf("failed to connect to DB: %v", err)
		}
		repository, err = repo.NewRepository(db, &log)
		if err != nil {
			log.Fatal().Msgf("failed to initialize repository: %v", err)
		}
		log.Info().Msg("Database connected successfully")

		cwd, err := os.Getwd()
		if err != nil {
			log.Fatal().Err(err).Msg("cannot get working directory")
		}
		if err := repository.MigrateUp(filepath.Join(cwd, "migrations/postgres")); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	}

	st := store.New(&log)
	snap, err := repo.LoadSnapshot(context.Background(), repository)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load initial state")
	}
	st.Dispatch(store.BulkLoad{
		Events:            &snap.Events,
		Venues:            &snap.Venues,
		Participants:      &snap.Participants,
		AttendanceRecords: &snap.AttendanceRecords,
		UserRoles:         &snap.UserRoles,
	})
	log.Info().
		Int("events", len(snap.Events)).
		Int("participants", len(snap.Participants)).
		Int("roles", len(snap.UserRoles)).
		Msg("initial state loaded")

	rabbitCfg, useRabbit, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}

	var (
		mirror service.Mirror
		reader *rabbitReader.Reader
		local  *service.LocalMirror
	)
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	if useRabbit {
		rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()

		mirror = service.NewQueueMirror(rmq, &log)
		reader = rabbitReader.NewReader(rmq, repository, &log)
		reader.Start(workerCtx)
	} else {
		local = service.NewLocalMirror(repository, &log, 256)
		mirror = local
	}

	var notifier service.Notifier
	if mailCfg, ok := buildCFG.BuildMailConfig(cfg, &log); ok {
		notifier = mailer.New(mailCfg, &log)
	}

	cmds := service.NewCommands(st, mirror, notifier, &log)
	session := service.NewSession(cmds, &log)
	if local != nil {
		session.OnIdentityResolved(service.Reconcile(repository, cmds, local, &log))
	}
	serviceInstance := service.NewService(cmds, session, &log, serverCfg.Timezone)

	app := api.NewRouters(&api.Routers{
		Service: serviceInstance,
		Tokens:  auth.NewTokenParser(authCfg.Secret, authCfg.Issuer),
	})
	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	if local != nil {
		local.Close()
	}
	cancelWorkers()
	if reader != nil {
		reader.Stop()
	}
	log.Info().Msg("Shutdown complete")
}
