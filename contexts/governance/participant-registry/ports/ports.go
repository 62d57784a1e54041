package ports

import (
	"context"
	"time"

	"plenum/contexts/governance/participant-registry/domain/entities"
)

type ParticipantRepository interface {
	// Save persists the participant using compare-and-set on Version and
	// returns ErrVersionConflict when the stored row moved underneath.
	Save(ctx context.Context, participant entities.Participant) error
	Get(ctx context.Context, participantID string) (entities.Participant, error)
	GetByIdentity(ctx context.Context, sessionID string, identityID string) (entities.Participant, bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]entities.Participant, error)
}

// Identity is the registry's projection of the external identity provider.
type Identity struct {
	IdentityID  string
	DisplayName string
	Eligible    bool
}

type IdentityProvider interface {
	Resolve(ctx context.Context, identityID string) (Identity, error)
}

// AuditEvent is the registry's audit trail record.
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

// AuditSink is append-only; failures are logged by callers, never surfaced.
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
