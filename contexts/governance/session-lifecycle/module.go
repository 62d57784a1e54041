package sessionlifecycle

import (
	"context"
	"log/slog"

	httpadapter "plenum/contexts/governance/session-lifecycle/adapters/http"
	"plenum/contexts/governance/session-lifecycle/adapters/memory"
	"plenum/contexts/governance/session-lifecycle/application/commands"
	"plenum/contexts/governance/session-lifecycle/application/queries"
	"plenum/contexts/governance/session-lifecycle/domain/entities"
	"plenum/contexts/governance/session-lifecycle/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Lifecycle commands.LifecycleUseCase
	Metrics   queries.MetricsUseCase
	Store     *memory.Store
}

type Dependencies struct {
	Sessions      ports.SessionRepository
	Quorum        ports.QuorumChecker
	Participation ports.ParticipationReader
	Ballots       ports.BallotCounter
	Minutes       ports.MinutesGenerator
	Audit         ports.AuditSink
	Notifier      ports.Notifier
	Recipients    ports.RecipientResolver
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	lifecycle := commands.LifecycleUseCase{
		Sessions:   deps.Sessions,
		Quorum:     deps.Quorum,
		Minutes:    deps.Minutes,
		Audit:      deps.Audit,
		Notifier:   deps.Notifier,
		Recipients: deps.Recipients,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	metrics := queries.MetricsUseCase{
		Sessions:      deps.Sessions,
		Participation: deps.Participation,
		Ballots:       deps.Ballots,
	}
	return Module{
		Handler: httpadapter.Handler{
			Lifecycle: lifecycle,
			Metrics:   metrics,
			Logger:    deps.Logger,
		},
		Lifecycle: lifecycle,
		Metrics:   metrics,
	}
}

// NewInMemoryModule wires the lifecycle against the in-memory store. Quorum
// defaults to always-achieved unless a checker is supplied, which keeps
// lifecycle tests independent from the participant registry.
func NewInMemoryModule(seed []entities.Session, quorum ports.QuorumChecker, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	if quorum == nil {
		quorum = alwaysQuorum{}
	}
	module := NewModule(Dependencies{
		Sessions:   store,
		Quorum:     quorum,
		Minutes:    store,
		Audit:      store,
		Notifier:   store,
		Recipients: store,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}

type alwaysQuorum struct{}

func (alwaysQuorum) HasQuorum(_ context.Context, _ string, quorumRequired int) (bool, int, error) {
	return true, quorumRequired, nil
}
