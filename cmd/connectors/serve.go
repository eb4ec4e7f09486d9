package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dust-tt/connectors-go/internal/adapters/driven/assistant"
	"github.com/dust-tt/connectors-go/internal/adapters/driven/auth"
	"github.com/dust-tt/connectors-go/internal/adapters/driven/queue"
	"github.com/dust-tt/connectors-go/internal/adapters/driven/search"
	"github.com/dust-tt/connectors-go/internal/adapters/driven/storage/memory"
	"github.com/dust-tt/connectors-go/internal/adapters/driven/storage/sqlite"
	"github.com/dust-tt/connectors-go/internal/adapters/driving/api"
	"github.com/dust-tt/connectors-go/internal/config"
	"github.com/dust-tt/connectors-go/internal/connectors/slack"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
	"github.com/dust-tt/connectors-go/internal/core/services"
	"github.com/dust-tt/connectors-go/internal/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the connector service",
		Long:  "Starts the HTTP API, the workflow queue and the periodic scheduler, and blocks until interrupted.",
		RunE:  runServe,
	}
}

// stores groups the persistence interfaces behind one backend choice.
type stores struct {
	connectors  driven.ConnectorStore
	resources   driven.ResourceStore
	syncStates  driven.SyncStateStore
	botMessages driven.BotMessageStore
	scheduler   driven.SchedulerStore
	transactor  driven.Transactor
	close       func() error
}

func openStores(cfg config.StorageConfig) (*stores, error) {
	if cfg.Backend == "memory" {
		return &stores{
			connectors:  memory.NewConnectorStore(),
			resources:   memory.NewResourceStore(),
			syncStates:  memory.NewSyncStateStore(),
			botMessages: memory.NewBotMessageStore(),
			scheduler:   memory.NewSchedulerStore(),
			transactor:  memory.NewTransactor(),
			close:       func() error { return nil },
		}, nil
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	return &stores{
		connectors:  store.ConnectorStore(),
		resources:   store.ResourceStore(),
		syncStates:  store.SyncStateStore(),
		botMessages: store.BotMessageStore(),
		scheduler:   store.SchedulerStore(),
		transactor:  store,
		close:       store.Close,
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := openStores(cfg.Storage)
	if err != nil {
		return err
	}
	defer db.close()

	broker := auth.NewBroker(cfg.Connections.URL, cfg.Connections.Secret)
	index := search.NewClient(cfg.Search.URL, cfg.Search.APIKey)
	assistantClient := assistant.NewClient(cfg.Assistant.URL, cfg.Assistant.APIKey)
	factory := slack.NewFactory(broker)
	jobs := queue.New()

	orchestrator := services.NewSyncOrchestrator(
		db.connectors, db.resources, db.syncStates, factory, index, jobs)
	permissions := services.NewPermissionService(
		db.connectors, db.resources, db.syncStates, factory, jobs)
	lifecycle := services.NewLifecycleService(
		db.connectors, db.resources, db.syncStates, db.botMessages,
		factory, broker, jobs, db.transactor)
	bot := services.NewBotService(
		db.connectors, db.botMessages, factory, assistantClient, jobs)
	webhooks := services.NewWebhookRouter(db.connectors, jobs, bot)
	scheduler := services.NewScheduler(services.SchedulerConfig{
		SyncInterval: cfg.Scheduler.SyncInterval,
		GCInterval:   cfg.Scheduler.GCInterval,
	}, db.scheduler, db.connectors, db.syncStates, jobs)

	jobs.SetExecutor(services.NewExecutor(orchestrator, bot, lifecycle))

	server, err := api.New(api.Config{
		ListenAddr:         cfg.Server.Listen,
		CORSOrigins:        cfg.Server.CORSOrigins,
		APISecret:          cfg.Server.APISecret,
		WebhookSecret:      cfg.Server.WebhookSecret,
		SlackSigningSecret: cfg.Slack.SigningSecret,
	}, api.Services{
		Lifecycle:   lifecycle,
		Permissions: permissions,
		Sync:        orchestrator,
		Webhooks:    webhooks,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Start(groupCtx)
	})
	group.Go(func() error {
		return scheduler.Start(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		if err := scheduler.Stop(); err != nil {
			logger.Warn("Stopping scheduler: %v", err)
		}
		jobs.Stop()
		return nil
	})

	logger.Info("Connector service started")
	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("Connector service stopped")
	return nil
}
