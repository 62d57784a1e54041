package participantregistry

import (
	"log/slog"

	httpadapter "plenum/contexts/governance/participant-registry/adapters/http"
	"plenum/contexts/governance/participant-registry/adapters/memory"
	"plenum/contexts/governance/participant-registry/application/commands"
	"plenum/contexts/governance/participant-registry/application/queries"
	"plenum/contexts/governance/participant-registry/domain/entities"
	"plenum/contexts/governance/participant-registry/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Registry commands.RegistryUseCase
	Roster   queries.RosterUseCase
	Store    *memory.Store
}

type Dependencies struct {
	Participants ports.ParticipantRepository
	Identities   ports.IdentityProvider
	Audit        ports.AuditSink
	Notifier     ports.Notifier
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	ChainBound   int
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	registry := commands.RegistryUseCase{
		Participants: deps.Participants,
		Identities:   deps.Identities,
		Audit:        deps.Audit,
		Notifier:     deps.Notifier,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		ChainBound:   deps.ChainBound,
		Logger:       deps.Logger,
	}
	roster := queries.RosterUseCase{
		Participants: deps.Participants,
	}
	return Module{
		Handler: httpadapter.Handler{
			Registry: registry,
			Roster:   roster,
			Logger:   deps.Logger,
		},
		Registry: registry,
		Roster:   roster,
	}
}

func NewInMemoryModule(seed []entities.Participant, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Participants: store,
		Identities:   store,
		Audit:        store,
		Notifier:     store,
		Clock:        store,
		IDGen:        store,
		Logger:       logger,
	})
	module.Store = store
	return module
}
