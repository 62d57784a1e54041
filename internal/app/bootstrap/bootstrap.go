package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	ballotengine "plenum/contexts/governance/ballot-engine"
	ballotpostgres "plenum/contexts/governance/ballot-engine/adapters/postgres"
	ballotworkers "plenum/contexts/governance/ballot-engine/application/workers"
	integrityledger "plenum/contexts/governance/integrity-ledger"
	participantregistry "plenum/contexts/governance/participant-registry"
	registrypostgres "plenum/contexts/governance/participant-registry/adapters/postgres"
	sessionlifecycle "plenum/contexts/governance/session-lifecycle"
	sessionpostgres "plenum/contexts/governance/session-lifecycle/adapters/postgres"
	"plenum/internal/platform/config"
	"plenum/internal/platform/db"
	"plenum/internal/platform/httpserver"
	"plenum/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  ballotworkers.OutboxRelay
	sweeper      ballotworkers.DeadlineSweeper
	relayEnabled bool
	sweepEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	registryRepo := registrypostgres.NewRepository(pg.DB, logger)
	sessionRepo := sessionpostgres.NewRepository(pg.DB, logger)
	ballotRepo := ballotpostgres.NewRepository(pg.DB, logger)
	ledger := integrityledger.New([]byte(cfg.IntegritySecret))
	notifier := logNotifier{logger: logger}

	registryModule := participantregistry.NewModule(participantregistry.Dependencies{
		Participants: registryRepo,
		Identities:   openDirectory{},
		Audit:        registryRepo,
		Notifier:     notifier,
		Clock:        registrypostgres.SystemClock{},
		IDGen:        registrypostgres.UUIDGenerator{},
		Logger:       logger,
	})

	ballotModule := ballotengine.NewModule(ballotengine.Dependencies{
		Ballots:   ballotRepo,
		Roster:    rosterGateway{roster: registryModule.Roster},
		Sessions:  sessionGateway{sessions: sessionRepo},
		Ledger:    ledgerGateway{ledger: ledger},
		Outbox:    ballotRepo,
		OutboxRel: ballotRepo,
		Audit:     ballotRepo,
		Notifier:  notifier,
		Clock:     ballotpostgres.SystemClock{},
		IDGen:     ballotpostgres.UUIDGenerator{},
		Logger:    logger,
	})

	sessionModule := sessionlifecycle.NewModule(sessionlifecycle.Dependencies{
		Sessions:      sessionRepo,
		Quorum:        registryModule.Roster,
		Participation: participationGateway{roster: registryModule.Roster},
		Ballots:       ballotCounter{queries: ballotModule.Queries},
		Minutes:       minutesLogger{logger: logger},
		Audit:         sessionRepo,
		Notifier:      notifier,
		Recipients:    recipientResolver{participants: registryRepo},
		Clock:         sessionpostgres.SystemClock{},
		IDGen:         sessionpostgres.UUIDGenerator{},
		Logger:        logger,
	})

	server := httpserver.New(registryModule, sessionModule, ballotModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	registryRepo := registrypostgres.NewRepository(pg.DB, logger)
	ballotRepo := ballotpostgres.NewRepository(pg.DB, logger)
	ledger := integrityledger.New([]byte(cfg.IntegritySecret))
	notifier := logNotifier{logger: logger}

	registryModule := participantregistry.NewModule(participantregistry.Dependencies{
		Participants: registryRepo,
		Identities:   openDirectory{},
		Audit:        registryRepo,
		Notifier:     notifier,
		Clock:        registrypostgres.SystemClock{},
		IDGen:        registrypostgres.UUIDGenerator{},
		Logger:       logger,
	})

	ballotModule := ballotengine.NewModule(ballotengine.Dependencies{
		Ballots:   ballotRepo,
		Roster:    rosterGateway{roster: registryModule.Roster},
		Sessions:  sessionGateway{sessions: sessionpostgres.NewRepository(pg.DB, logger)},
		Ledger:    ledgerGateway{ledger: ledger},
		Outbox:    ballotRepo,
		OutboxRel: ballotRepo,
		Publisher: kafka,
		Audit:     ballotRepo,
		Notifier:  notifier,
		Clock:     ballotpostgres.SystemClock{},
		IDGen:     ballotpostgres.UUIDGenerator{},
		Logger:    logger,
	})

	return &WorkerApp{
		postgres:     pg,
		outboxRelay:  ballotModule.Relay,
		sweeper:      ballotModule.Sweeper,
		relayEnabled: cfg.EnableOutboxRelay,
		sweepEnabled: cfg.EnableBallotDeadlineSweep,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"outbox_relay", w.relayEnabled,
		"deadline_sweep", w.sweepEnabled,
	)

	for {
		if w.sweepEnabled {
			if err := w.sweeper.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
