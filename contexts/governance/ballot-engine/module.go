package ballotengine

import (
	"context"
	"log/slog"

	httpadapter "plenum/contexts/governance/ballot-engine/adapters/http"
	"plenum/contexts/governance/ballot-engine/adapters/memory"
	"plenum/contexts/governance/ballot-engine/application/commands"
	"plenum/contexts/governance/ballot-engine/application/queries"
	"plenum/contexts/governance/ballot-engine/application/workers"
	"plenum/contexts/governance/ballot-engine/domain/entities"
	"plenum/contexts/governance/ballot-engine/ports"
)

type Module struct {
	Handler Handler
	Engine  commands.BallotUseCase
	Queries queries.BallotQueries
	Relay   workers.OutboxRelay
	Sweeper workers.DeadlineSweeper
	Store   *memory.Store
}

type Handler = httpadapter.Handler

type Dependencies struct {
	Ballots   ports.BallotRepository
	Roster    ports.VoterRoster
	Sessions  ports.SessionGateway
	Ledger    ports.IntegrityLedger
	Outbox    ports.OutboxWriter
	OutboxRel ports.OutboxRepository
	Publisher ports.EventPublisher
	Audit     ports.AuditSink
	Notifier  ports.Notifier
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	engine := commands.BallotUseCase{
		Ballots:  deps.Ballots,
		Roster:   deps.Roster,
		Sessions: deps.Sessions,
		Ledger:   deps.Ledger,
		Outbox:   deps.Outbox,
		Audit:    deps.Audit,
		Notifier: deps.Notifier,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	queryside := queries.BallotQueries{
		Ballots: deps.Ballots,
		Roster:  deps.Roster,
		Ledger:  deps.Ledger,
		Clock:   deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Engine:  engine,
			Queries: queryside,
			Logger:  deps.Logger,
		},
		Engine:  engine,
		Queries: queryside,
		Relay: workers.OutboxRelay{
			Outbox:    deps.OutboxRel,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		Sweeper: workers.DeadlineSweeper{
			Ballots: deps.Ballots,
			Engine:  engine,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine against the in-memory store. The roster
// and ledger have no sensible default and must be supplied; the session
// gateway defaults to always-live so ballot tests can run without a session
// module.
func NewInMemoryModule(seed []entities.Ballot, roster ports.VoterRoster, sessions ports.SessionGateway, ledger ports.IntegrityLedger, publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	if sessions == nil {
		sessions = alwaysLive{}
	}
	module := NewModule(Dependencies{
		Ballots:   store,
		Roster:    roster,
		Sessions:  sessions,
		Ledger:    ledger,
		Outbox:    store,
		OutboxRel: store,
		Publisher: publisher,
		Audit:     store,
		Notifier:  store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}

type alwaysLive struct{}

func (alwaysLive) SessionIsLive(_ context.Context, _ string) (bool, error) {
	return true, nil
}
