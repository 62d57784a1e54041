package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	ballotqueries "plenum/contexts/governance/ballot-engine/application/queries"
	ballotports "plenum/contexts/governance/ballot-engine/ports"
	integrityledger "plenum/contexts/governance/integrity-ledger"
	registryqueries "plenum/contexts/governance/participant-registry/application/queries"
	registryports "plenum/contexts/governance/participant-registry/ports"
	sessionentities "plenum/contexts/governance/session-lifecycle/domain/entities"
	sessionerrors "plenum/contexts/governance/session-lifecycle/domain/errors"
	sessionports "plenum/contexts/governance/session-lifecycle/ports"
)

// The glue adapters below translate between context-local ports. Each
// context owns its own port vocabulary, so the composition root carries
// the mapping instead of the contexts importing each other.

// ledgerGateway exposes the integrity ledger through the ballot engine's
// port, narrowing the concrete Sealer to the PayloadSealer interface.
type ledgerGateway struct {
	ledger integrityledger.Ledger
}

func (g ledgerGateway) SeedBallot(ballotID string, sessionID string, openedAt time.Time, optionIDs []string) (string, error) {
	return g.ledger.SeedBallot(ballotID, sessionID, openedAt, optionIDs)
}

func (g ledgerGateway) TokenForResponse(ballotID string, participantID string, payload []byte, castAt time.Time, origin string) string {
	return g.ledger.TokenForResponse(ballotID, participantID, payload, castAt, origin)
}

func (g ledgerGateway) FinalDigest(ballotID string, closedAt time.Time, responseTokens []string, results []byte) string {
	return g.ledger.FinalDigest(ballotID, closedAt, responseTokens, results)
}

func (g ledgerGateway) SealerFor(seed string) (ballotports.PayloadSealer, error) {
	sealer, err := g.ledger.SealerFor(seed)
	if err != nil {
		return nil, err
	}
	return sealer, nil
}

// rosterGateway is the ballot engine's view of the participant registry.
type rosterGateway struct {
	roster registryqueries.RosterUseCase
}

func (g rosterGateway) EligibleVoters(ctx context.Context, sessionID string) ([]ballotports.Voter, error) {
	participants, err := g.roster.EligibleVoters(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	voters := make([]ballotports.Voter, 0, len(participants))
	for _, participant := range participants {
		voters = append(voters, ballotports.Voter{
			ParticipantID: participant.ParticipantID,
			IdentityID:    participant.IdentityID,
			DisplayName:   participant.DisplayName,
		})
	}
	return voters, nil
}

func (g rosterGateway) WeightsFor(ctx context.Context, participantID string) ([]ballotports.Weight, error) {
	rights, err := g.roster.EffectiveVotingRights(ctx, participantID)
	if err != nil {
		return nil, err
	}
	weights := make([]ballotports.Weight, 0, len(rights))
	for _, right := range rights {
		weights = append(weights, ballotports.Weight{
			Kind:          ballotports.WeightKind(right.Kind),
			ParticipantID: right.ParticipantID,
			IdentityID:    right.IdentityID,
		})
	}
	return weights, nil
}

// participationGateway feeds the registry's attendance summary into the
// session metrics view.
type participationGateway struct {
	roster registryqueries.RosterUseCase
}

func (g participationGateway) ParticipationStats(ctx context.Context, sessionID string, quorumRequired int) (sessionports.ParticipationStats, error) {
	stats, err := g.roster.ParticipationStats(ctx, sessionID, quorumRequired)
	if err != nil {
		return sessionports.ParticipationStats{}, err
	}
	return sessionports.ParticipationStats{
		TotalInvited:        stats.TotalInvited,
		TotalPresent:        stats.TotalPresent,
		TotalAbsent:         stats.TotalAbsent,
		AttendanceRate:      stats.AttendanceRate,
		TotalVotingRights:   stats.TotalWithVotingRights,
		PresentVotingRights: stats.PresentWithVotingRights,
		QuorumRequired:      stats.QuorumRequired,
		QuorumAchieved:      stats.QuorumAchieved,
		QuorumPercentage:    stats.QuorumPercentage,
	}, nil
}

// sessionGateway answers the ballot engine's "is the session live" check.
// A missing session counts as not live instead of an error so that ballots
// referencing stale sessions fail the open precondition, not the request.
type sessionGateway struct {
	sessions sessionports.SessionRepository
}

func (g sessionGateway) SessionIsLive(ctx context.Context, sessionID string) (bool, error) {
	session, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessionerrors.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return session.IsLive(), nil
}

// ballotCounter reports ballot outcomes back to the session metrics view.
type ballotCounter struct {
	queries ballotqueries.BallotQueries
}

func (g ballotCounter) CountBySession(ctx context.Context, sessionID string) (sessionports.BallotCounts, error) {
	counts, err := g.queries.CountBySession(ctx, sessionID)
	if err != nil {
		return sessionports.BallotCounts{}, err
	}
	return sessionports.BallotCounts{
		Total:     counts.Total,
		Closed:    counts.Closed,
		Decisions: counts.Decisions,
	}, nil
}

// recipientResolver lists the identity ids behind a session's roster so
// lifecycle notifications reach every invited participant.
type recipientResolver struct {
	participants registryports.ParticipantRepository
}

func (g recipientResolver) RecipientsForSession(ctx context.Context, sessionID string) ([]string, error) {
	participants, err := g.participants.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	recipients := make([]string, 0, len(participants))
	for _, participant := range participants {
		recipients = append(recipients, participant.IdentityID)
	}
	return recipients, nil
}

// openDirectory resolves identities permissively. Wiring a real identity
// provider replaces this at the composition root without touching the
// registry.
type openDirectory struct{}

func (openDirectory) Resolve(_ context.Context, identityID string) (registryports.Identity, error) {
	return registryports.Identity{
		IdentityID:  identityID,
		DisplayName: identityID,
		Eligible:    true,
	}, nil
}

// minutesLogger records that minutes generation was requested. Document
// rendering runs out of process; the lifecycle only needs the trigger
// acknowledged.
type minutesLogger struct {
	logger *slog.Logger
}

func (g minutesLogger) Generate(_ context.Context, session sessionentities.Session) error {
	g.logger.Info("minutes generation requested",
		"event", "minutes_requested",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"session_id", session.SessionID,
		"title", session.Title,
	)
	return nil
}

// logNotifier satisfies every context's Notifier port with a structured
// log line per notification fan-out.
type logNotifier struct {
	logger *slog.Logger
}

func (g logNotifier) Notify(_ context.Context, recipientIDs []string, kind string, payload map[string]any) error {
	g.logger.Info("notification dispatched",
		"event", "notification_dispatched",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"kind", kind,
		"recipients", len(recipientIDs),
		"payload_keys", len(payload),
	)
	return nil
}
