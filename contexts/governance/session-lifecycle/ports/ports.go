package ports

import (
	"context"
	"time"

	"plenum/contexts/governance/session-lifecycle/domain/entities"
)

// SessionRepository persists sessions. Transition runs apply under a
// per-session critical section (keyed mutex in memory, row lock in
// postgres) so a status check and the subsequent write are atomic.
type SessionRepository interface {
	Create(ctx context.Context, session entities.Session) error
	Get(ctx context.Context, sessionID string) (entities.Session, error)
	ListByEntity(ctx context.Context, entityID string) ([]entities.Session, error)
	Transition(ctx context.Context, sessionID string, apply func(*entities.Session) error) (entities.Session, error)
}

// QuorumChecker reports whether a session currently has enough present
// voting-eligible participants. Backed by the participant registry.
type QuorumChecker interface {
	HasQuorum(ctx context.Context, sessionID string, quorumRequired int) (bool, int, error)
}

// ParticipationStats mirrors the registry's attendance summary for the
// session metrics view.
type ParticipationStats struct {
	TotalInvited        int
	TotalPresent        int
	TotalAbsent         int
	AttendanceRate      float64
	TotalVotingRights   int
	PresentVotingRights int
	QuorumRequired      int
	QuorumAchieved      bool
	QuorumPercentage    float64
}

type ParticipationReader interface {
	ParticipationStats(ctx context.Context, sessionID string, quorumRequired int) (ParticipationStats, error)
}

// BallotCounts is what the ballot engine reports for a session's metrics:
// how many ballots ran and how many reached a decision.
type BallotCounts struct {
	Total     int
	Closed    int
	Decisions int
}

type BallotCounter interface {
	CountBySession(ctx context.Context, sessionID string) (BallotCounts, error)
}

// MinutesGenerator produces the meeting minutes document after completion.
// Called fire and forget; failures never roll back the transition.
type MinutesGenerator interface {
	Generate(ctx context.Context, session entities.Session) error
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

// RecipientResolver lists the identity ids to notify for a session.
type RecipientResolver interface {
	RecipientsForSession(ctx context.Context, sessionID string) ([]string, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
