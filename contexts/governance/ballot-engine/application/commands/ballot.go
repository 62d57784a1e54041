package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "plenum/contexts/governance/ballot-engine/application"
	"plenum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "plenum/contexts/governance/ballot-engine/domain/errors"
	"plenum/contexts/governance/ballot-engine/ports"
	contractsv1 "plenum/contracts/gen/events/v1"
)

const defaultMajorityRequired = 50.0

type CreateBallotCommand struct {
	SessionID        string
	Title            string
	Question         string
	Type             entities.BallotType
	Secrecy          entities.Secrecy
	Options          []entities.Option
	MajorityRequired float64
	QuorumRequired   int
	AllowReplacement bool
	DurationMinutes  int
	Actor            string
}

type CastVoteCommand struct {
	BallotID      string
	ParticipantID string
	Payload       entities.VotePayload
	OnBehalfOf    string
	Origin        string
}

// BallotUseCase owns the ballot state machine: draft, open, closed or
// cancelled, with casting only while open. Open and Close run inside the
// repository's per-ballot critical section; casting relies on the
// repository's atomic insert-if-absent.
type BallotUseCase struct {
	Ballots  ports.BallotRepository
	Roster   ports.VoterRoster
	Sessions ports.SessionGateway
	Ledger   ports.IntegrityLedger
	Outbox   ports.OutboxWriter
	Audit    ports.AuditSink
	Notifier ports.Notifier
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc BallotUseCase) Create(ctx context.Context, cmd CreateBallotCommand) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	sessionID := strings.TrimSpace(cmd.SessionID)
	title := strings.TrimSpace(cmd.Title)
	if sessionID == "" || title == "" || !entities.ValidBallotType(cmd.Type) {
		return entities.Ballot{}, domainerrors.ErrInvalidBallotInput
	}
	secrecy := cmd.Secrecy
	if secrecy == "" {
		secrecy = entities.SecrecyOpen
	}
	if !entities.ValidSecrecy(secrecy) {
		return entities.Ballot{}, domainerrors.ErrInvalidBallotInput
	}

	options := cmd.Options
	if cmd.Type == entities.TypeSimple {
		options = entities.SimpleOptions()
	} else {
		if len(options) == 0 {
			return entities.Ballot{}, domainerrors.ErrInvalidBallotInput
		}
		seen := map[string]bool{}
		for _, option := range options {
			id := strings.TrimSpace(option.ID)
			if id == "" || seen[id] {
				return entities.Ballot{}, domainerrors.ErrInvalidBallotInput
			}
			seen[id] = true
		}
	}

	majority := cmd.MajorityRequired
	if majority == 0 {
		majority = defaultMajorityRequired
	}
	if majority < 0 || majority > 100 || cmd.QuorumRequired < 0 || cmd.DurationMinutes < 0 {
		return entities.Ballot{}, domainerrors.ErrInvalidBallotInput
	}

	now := uc.now()
	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Ballot{}, err
	}
	ballot := entities.Ballot{
		BallotID:         ballotID,
		SessionID:        sessionID,
		Title:            title,
		Question:         strings.TrimSpace(cmd.Question),
		Type:             cmd.Type,
		Secrecy:          secrecy,
		MajorityRequired: majority,
		QuorumRequired:   cmd.QuorumRequired,
		Options:          options,
		AllowReplacement: cmd.AllowReplacement,
		DurationMinutes:  cmd.DurationMinutes,
		Status:           entities.StatusDraft,
		CreatedBy:        strings.TrimSpace(cmd.Actor),
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.Ballots.Create(ctx, ballot); err != nil {
		return entities.Ballot{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       ballot.CreatedBy,
		SubjectKind: "ballot",
		SubjectID:   ballot.BallotID,
		Kind:        "ballot_created",
		Description: "ballot created as draft",
		NewValue:    string(entities.StatusDraft),
		Metadata: map[string]any{
			"session_id":        sessionID,
			"ballot_type":       string(ballot.Type),
			"secrecy":           string(ballot.Secrecy),
			"majority_required": ballot.MajorityRequired,
			"quorum_required":   ballot.QuorumRequired,
		},
		OccurredAt: now,
	})
	logger.Info("ballot created",
		"event", "ballot_created",
		"module", "governance/ballot-engine",
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"session_id", sessionID,
		"ballot_type", string(ballot.Type),
	)
	return ballot, nil
}

// Open gates on a live session and enough eligible voters, then seeds the
// ballot's integrity chain. Notifications fan out to eligible voters only.
func (uc BallotUseCase) Open(ctx context.Context, ballotID string, actor string) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	var voters []ports.Voter
	ballot, err := uc.Ballots.Transition(ctx, strings.TrimSpace(ballotID), func(b *entities.Ballot, _ []entities.VoteResponse) error {
		if b.Status != entities.StatusDraft {
			return domainerrors.ErrBallotNotDraft
		}
		live, err := uc.Sessions.SessionIsLive(ctx, b.SessionID)
		if err != nil {
			return err
		}
		if !live {
			return domainerrors.ErrSessionNotLive
		}
		voters, err = uc.Roster.EligibleVoters(ctx, b.SessionID)
		if err != nil {
			return err
		}
		if len(voters) < b.QuorumRequired {
			logger.Warn("ballot open rejected, not enough eligible voters",
				"event", "ballot_open_quorum_not_met",
				"module", "governance/ballot-engine",
				"layer", "application",
				"ballot_id", b.BallotID,
				"eligible", len(voters),
				"quorum_required", b.QuorumRequired,
			)
			return domainerrors.ErrQuorumNotMet
		}

		seed, err := uc.Ledger.SeedBallot(b.BallotID, b.SessionID, now, b.OptionIDs())
		if err != nil {
			return err
		}
		b.SecuritySeed = seed
		b.Status = entities.StatusOpen
		b.StartedAt = &now
		if b.DurationMinutes > 0 {
			endsAt := now.Add(time.Duration(b.DurationMinutes) * time.Minute)
			b.EndsAt = &endsAt
		}
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entities.Ballot{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       strings.TrimSpace(actor),
		SubjectKind: "ballot",
		SubjectID:   ballot.BallotID,
		Kind:        "ballot_opened",
		Description: "ballot opened for voting",
		OldValue:    string(entities.StatusDraft),
		NewValue:    string(entities.StatusOpen),
		Metadata: map[string]any{
			"session_id":      ballot.SessionID,
			"eligible_voters": len(voters),
		},
		OccurredAt: now,
	})
	uc.emitEvent(ctx, contractsv1.TopicBallotOpened, ballot, map[string]any{
		"ballot_id":       ballot.BallotID,
		"session_id":      ballot.SessionID,
		"eligible_voters": len(voters),
	}, now)
	uc.notify(ctx, identityIDs(voters), "ballot_opened", map[string]any{
		"ballot_id": ballot.BallotID,
		"title":     ballot.Title,
		"question":  ballot.Question,
	})
	logger.Info("ballot opened",
		"event", "ballot_opened",
		"module", "governance/ballot-engine",
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"eligible_voters", len(voters),
	)
	return ballot, nil
}

// CastVote validates the voter's weight and payload, seals the payload for
// non-open secrecy, and stores the response with its integrity token. The
// audit trail records a digest of the payload, never the choice itself.
func (uc BallotUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.VoteResponse, error) {
	logger := application.ResolveLogger(uc.Logger)
	ballot, err := uc.Ballots.Get(ctx, strings.TrimSpace(cmd.BallotID))
	if err != nil {
		return entities.VoteResponse{}, err
	}
	now := uc.now()
	if !ballot.IsOpen(now) {
		if ballot.Status == entities.StatusOpen && ballot.Expired(now) {
			return entities.VoteResponse{}, domainerrors.ErrBallotExpired
		}
		return entities.VoteResponse{}, domainerrors.ErrBallotNotOpen
	}

	participantID := strings.TrimSpace(cmd.ParticipantID)
	onBehalfOf := strings.TrimSpace(cmd.OnBehalfOf)
	weights, err := uc.Roster.WeightsFor(ctx, participantID)
	if err != nil {
		return entities.VoteResponse{}, err
	}
	if !holdsWeight(weights, participantID, onBehalfOf) {
		return entities.VoteResponse{}, domainerrors.ErrNotEligibleVoter
	}

	canonical, _, ok := cmd.Payload.Normalize(ballot)
	if !ok {
		return entities.VoteResponse{}, domainerrors.ErrInvalidVotePayload
	}

	stored := canonical
	if ballot.Sealed() {
		sealer, err := uc.Ledger.SealerFor(ballot.SecuritySeed)
		if err != nil {
			return entities.VoteResponse{}, err
		}
		if stored, err = sealer.Seal(canonical); err != nil {
			return entities.VoteResponse{}, err
		}
	}

	responseID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.VoteResponse{}, err
	}
	response := entities.VoteResponse{
		ResponseID:    responseID,
		BallotID:      ballot.BallotID,
		ParticipantID: participantID,
		OnBehalfOf:    onBehalfOf,
		Payload:       stored,
		Sealed:        ballot.Sealed(),
		CastAt:        now,
		Origin:        strings.TrimSpace(cmd.Origin),
		SecurityToken: uc.Ledger.TokenForResponse(ballot.BallotID, participantID, canonical, now, strings.TrimSpace(cmd.Origin)),
	}
	if err := uc.Ballots.InsertResponse(ctx, response, ballot.AllowReplacement); err != nil {
		return entities.VoteResponse{}, err
	}

	digest := sha256.Sum256(canonical)
	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       participantID,
		SubjectKind: "ballot",
		SubjectID:   ballot.BallotID,
		Kind:        "vote_cast",
		Description: "vote response recorded",
		Metadata: map[string]any{
			"participant_id": participantID,
			"on_behalf_of":   onBehalfOf,
			"payload_digest": hex.EncodeToString(digest[:]),
		},
		OccurredAt: now,
	})
	logger.Info("vote cast",
		"event", "ballot_vote_cast",
		"module", "governance/ballot-engine",
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"participant_id", participantID,
		"on_behalf_of", onBehalfOf,
	)
	return response, nil
}

// Close tallies the responses it observed inside the critical section,
// derives the final digest over their tokens, and freezes the result.
func (uc BallotUseCase) Close(ctx context.Context, ballotID string, reason string, actor string) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	var totalResponses int
	ballot, err := uc.Ballots.Transition(ctx, strings.TrimSpace(ballotID), func(b *entities.Ballot, responses []entities.VoteResponse) error {
		if b.Status != entities.StatusOpen {
			return domainerrors.ErrBallotNotOpen
		}

		choices := make([]string, 0, len(responses))
		tokens := make([]string, 0, len(responses))
		var sealer ports.PayloadSealer
		if b.Sealed() {
			var err error
			if sealer, err = uc.Ledger.SealerFor(b.SecuritySeed); err != nil {
				return err
			}
		}
		for _, response := range responses {
			tokens = append(tokens, response.SecurityToken)
			choices = append(choices, decodeChoice(response, sealer))
		}

		voters, err := uc.Roster.EligibleVoters(ctx, b.SessionID)
		if err != nil {
			return err
		}
		results := entities.Tally(*b, choices, len(voters))
		resultsJSON, err := json.Marshal(results)
		if err != nil {
			return err
		}

		totalResponses = len(responses)
		b.Status = entities.StatusClosed
		b.ClosedAt = &now
		b.ClosedBy = strings.TrimSpace(actor)
		b.ClosureReason = strings.TrimSpace(reason)
		b.Results = &results
		b.FinalDigest = uc.Ledger.FinalDigest(b.BallotID, now, tokens, resultsJSON)
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entities.Ballot{}, err
	}

	summary := ballot.Results.Summary
	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       strings.TrimSpace(actor),
		SubjectKind: "ballot",
		SubjectID:   ballot.BallotID,
		Kind:        "ballot_closed",
		Description: "ballot closed and tallied",
		OldValue:    string(entities.StatusOpen),
		NewValue:    string(entities.StatusClosed),
		Metadata: map[string]any{
			"session_id":      ballot.SessionID,
			"total_responses": totalResponses,
			"outcome":         summary.Outcome,
			"reason":          strings.TrimSpace(reason),
		},
		OccurredAt: now,
	})
	uc.emitEvent(ctx, contractsv1.TopicBallotClosed, ballot, map[string]any{
		"ballot_id":          ballot.BallotID,
		"session_id":         ballot.SessionID,
		"outcome":            summary.Outcome,
		"total_votes":        summary.TotalVotes,
		"participation_rate": summary.ParticipationRate,
		"quorum_achieved":    summary.QuorumAchieved,
	}, now)
	uc.notifyParticipants(ctx, ballot, "ballot_closed", map[string]any{
		"ballot_id":          ballot.BallotID,
		"outcome":            summary.Outcome,
		"winner":             summary.Winner,
		"total_votes":        summary.TotalVotes,
		"participation_rate": summary.ParticipationRate,
	})
	logger.Info("ballot closed",
		"event", "ballot_closed",
		"module", "governance/ballot-engine",
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"outcome", summary.Outcome,
		"total_responses", totalResponses,
	)
	return ballot, nil
}

func (uc BallotUseCase) Cancel(ctx context.Context, ballotID string, reason string, actor string) (entities.Ballot, error) {
	now := uc.now()
	var previous entities.BallotStatus
	ballot, err := uc.Ballots.Transition(ctx, strings.TrimSpace(ballotID), func(b *entities.Ballot, _ []entities.VoteResponse) error {
		if b.Status != entities.StatusDraft && b.Status != entities.StatusOpen {
			return domainerrors.ErrBallotAlreadyClosed
		}
		previous = b.Status
		b.Status = entities.StatusCancelled
		b.ClosureReason = strings.TrimSpace(reason)
		b.ClosedBy = strings.TrimSpace(actor)
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entities.Ballot{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       strings.TrimSpace(actor),
		SubjectKind: "ballot",
		SubjectID:   ballot.BallotID,
		Kind:        "ballot_cancelled",
		Description: "ballot cancelled",
		OldValue:    string(previous),
		NewValue:    string(entities.StatusCancelled),
		Metadata: map[string]any{
			"session_id": ballot.SessionID,
			"reason":     strings.TrimSpace(reason),
		},
		OccurredAt: now,
	})
	uc.emitEvent(ctx, contractsv1.TopicBallotCancelled, ballot, map[string]any{
		"ballot_id":  ballot.BallotID,
		"session_id": ballot.SessionID,
		"reason":     strings.TrimSpace(reason),
	}, now)
	return ballot, nil
}

func holdsWeight(weights []ports.Weight, participantID string, onBehalfOf string) bool {
	for _, weight := range weights {
		if onBehalfOf == "" {
			if weight.Kind == ports.WeightOwn && weight.ParticipantID == participantID {
				return true
			}
			continue
		}
		if weight.Kind == ports.WeightDelegated && weight.ParticipantID == onBehalfOf {
			return true
		}
	}
	return false
}

func decodeChoice(response entities.VoteResponse, sealer ports.PayloadSealer) string {
	raw := response.Payload
	if response.Sealed {
		if sealer == nil {
			return ""
		}
		plain, err := sealer.Open(raw)
		if err != nil {
			return ""
		}
		raw = plain
	}
	payload, err := entities.DecodePayload(raw)
	if err != nil {
		return ""
	}
	return payload.Choice
}

func identityIDs(voters []ports.Voter) []string {
	ids := make([]string, 0, len(voters))
	for _, voter := range voters {
		ids = append(ids, voter.IdentityID)
	}
	return ids
}

func (uc BallotUseCase) emitEvent(ctx context.Context, topic string, ballot entities.Ballot, data map[string]any, now time.Time) {
	if uc.Outbox == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		application.ResolveLogger(uc.Logger).Warn("event payload marshal failed",
			"event", "ballot_event_marshal_failed",
			"module", "governance/ballot-engine",
			"layer", "application",
			"topic", topic,
			"error", err.Error(),
		)
		return
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		eventID = ballot.BallotID
	}
	envelope := ports.EventEnvelope{
		EventID:          eventID,
		EventType:        topic,
		OccurredAt:       now,
		SourceService:    "ballot-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "session_id",
		PartitionKey:     ballot.SessionID,
		Data:             payload,
	}
	if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
		application.ResolveLogger(uc.Logger).Warn("outbox append failed",
			"event", "ballot_outbox_append_failed",
			"module", "governance/ballot-engine",
			"layer", "application",
			"topic", topic,
			"error", err.Error(),
		)
	}
}

func (uc BallotUseCase) notifyParticipants(ctx context.Context, ballot entities.Ballot, kind string, payload map[string]any) {
	voters, err := uc.Roster.EligibleVoters(ctx, ballot.SessionID)
	if err != nil {
		application.ResolveLogger(uc.Logger).Warn("voter resolution failed",
			"event", "ballot_notify_resolve_failed",
			"module", "governance/ballot-engine",
			"layer", "application",
			"ballot_id", ballot.BallotID,
			"error", err.Error(),
		)
		return
	}
	uc.notify(ctx, identityIDs(voters), kind, payload)
}

func (uc BallotUseCase) appendAudit(ctx context.Context, event ports.AuditEvent) {
	if uc.Audit == nil {
		return
	}
	if err := uc.Audit.Append(ctx, event); err != nil {
		application.ResolveLogger(uc.Logger).Warn("audit append failed",
			"event", "ballot_audit_append_failed",
			"module", "governance/ballot-engine",
			"layer", "application",
			"audit_kind", event.Kind,
			"error", err.Error(),
		)
	}
}

func (uc BallotUseCase) notify(ctx context.Context, recipients []string, kind string, payload map[string]any) {
	if uc.Notifier == nil || len(recipients) == 0 {
		return
	}
	if err := uc.Notifier.Notify(ctx, recipients, kind, payload); err != nil {
		application.ResolveLogger(uc.Logger).Warn("notification dispatch failed",
			"event", "ballot_notify_failed",
			"module", "governance/ballot-engine",
			"layer", "application",
			"notification_kind", kind,
			"error", err.Error(),
		)
	}
}

func (uc BallotUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
