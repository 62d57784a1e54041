package ports

import (
	"context"
	"time"

	"plenum/contexts/governance/ballot-engine/domain/entities"
	contractsv1 "plenum/contracts/gen/events/v1"
)

// BallotRepository persists ballots and responses. Transition runs apply
// under a per-ballot critical section with a transactional snapshot of the
// cast responses, so Close freezes the set it observed. InsertResponse is
// an atomic insert-if-absent keyed by (ballot, participant, on-behalf-of).
type BallotRepository interface {
	Create(ctx context.Context, ballot entities.Ballot) error
	Get(ctx context.Context, ballotID string) (entities.Ballot, error)
	ListBySession(ctx context.Context, sessionID string) ([]entities.Ballot, error)
	ListExpired(ctx context.Context, now time.Time) ([]entities.Ballot, error)
	Transition(ctx context.Context, ballotID string, apply func(*entities.Ballot, []entities.VoteResponse) error) (entities.Ballot, error)
	InsertResponse(ctx context.Context, response entities.VoteResponse, replace bool) error
	ListResponses(ctx context.Context, ballotID string) ([]entities.VoteResponse, error)
	CountResponses(ctx context.Context, ballotID string) (int, error)
}

// Voter is one eligible voter on the session roster.
type Voter struct {
	ParticipantID string
	IdentityID    string
	DisplayName   string
}

type WeightKind string

const (
	WeightOwn       WeightKind = "own"
	WeightDelegated WeightKind = "delegated"
)

// Weight is a voting weight a participant can exercise right now: its own,
// or one delegated to it by the participant identified by ParticipantID.
type Weight struct {
	Kind          WeightKind
	ParticipantID string
	IdentityID    string
}

// VoterRoster is the participant registry seen from the ballot engine.
type VoterRoster interface {
	EligibleVoters(ctx context.Context, sessionID string) ([]Voter, error)
	WeightsFor(ctx context.Context, participantID string) ([]Weight, error)
}

// SessionGateway reports the owning session's state.
type SessionGateway interface {
	SessionIsLive(ctx context.Context, sessionID string) (bool, error)
}

// PayloadSealer encrypts and decrypts sealed response payloads.
type PayloadSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// IntegrityLedger provides the tamper-evidence primitives: the per-ballot
// seed, per-response tokens, the final digest and the sealing key
// derivation.
type IntegrityLedger interface {
	SeedBallot(ballotID string, sessionID string, openedAt time.Time, optionIDs []string) (string, error)
	TokenForResponse(ballotID string, participantID string, payload []byte, castAt time.Time, origin string) string
	FinalDigest(ballotID string, closedAt time.Time, responseTokens []string, results []byte) string
	SealerFor(seed string) (PayloadSealer, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type AuditEvent struct {
	Actor       string
	SubjectKind string
	SubjectID   string
	Kind        string
	Description string
	OldValue    string
	NewValue    string
	Metadata    map[string]any
	OccurredAt  time.Time
}

type AuditSink interface {
	Append(ctx context.Context, event AuditEvent) error
}

type Notifier interface {
	Notify(ctx context.Context, recipientIDs []string, kind string, payload map[string]any) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
