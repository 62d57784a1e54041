package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"plenum/contexts/governance/participant-registry/domain/entities"
	domainerrors "plenum/contexts/governance/participant-registry/domain/errors"
	"plenum/contexts/governance/participant-registry/ports"

	"github.com/google/uuid"
)

// Store is the in-memory adapter used by tests and local wiring. Save
// enforces the same compare-and-set semantics the postgres adapter does.
type Store struct {
	mu sync.RWMutex

	participants map[string]entities.Participant
	identities   map[string]ports.Identity
	audit        []ports.AuditEvent
	notices      []Notice
}

type Notice struct {
	Recipients []string
	Kind       string
	Payload    map[string]any
}

func NewStore(seed []entities.Participant) *Store {
	participants := make(map[string]entities.Participant, len(seed))
	for _, p := range seed {
		participants[p.ParticipantID] = p
	}
	return &Store{
		participants: participants,
		identities:   make(map[string]ports.Identity),
	}
}

func (s *Store) SetIdentity(identity ports.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[strings.TrimSpace(identity.IdentityID)] = identity
}

func (s *Store) Save(_ context.Context, participant entities.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(participant.ParticipantID)
	existing, ok := s.participants[id]
	if ok {
		if existing.Version != participant.Version {
			return domainerrors.ErrVersionConflict
		}
		participant.Version++
	}
	s.participants[id] = participant
	return nil
}

func (s *Store) Get(_ context.Context, participantID string) (entities.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[strings.TrimSpace(participantID)]
	if !ok {
		return entities.Participant{}, domainerrors.ErrParticipantNotFound
	}
	return participant, nil
}

func (s *Store) GetByIdentity(_ context.Context, sessionID string, identityID string) (entities.Participant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.SessionID == strings.TrimSpace(sessionID) && p.IdentityID == strings.TrimSpace(identityID) {
			return p, true, nil
		}
	}
	return entities.Participant{}, false, nil
}

func (s *Store) ListBySession(_ context.Context, sessionID string) ([]entities.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.Participant
	for _, p := range s.participants {
		if p.SessionID == strings.TrimSpace(sessionID) {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].InvitedAt.Before(items[j].InvitedAt)
	})
	return items, nil
}

func (s *Store) Resolve(_ context.Context, identityID string) (ports.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[strings.TrimSpace(identityID)]
	if !ok {
		return ports.Identity{
			IdentityID:  strings.TrimSpace(identityID),
			DisplayName: strings.TrimSpace(identityID),
			Eligible:    true,
		}, nil
	}
	return identity, nil
}

func (s *Store) Append(_ context.Context, event ports.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, event)
	return nil
}

func (s *Store) Notify(_ context.Context, recipientIDs []string, kind string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, Notice{
		Recipients: append([]string(nil), recipientIDs...),
		Kind:       kind,
		Payload:    payload,
	})
	return nil
}

func (s *Store) AuditEvents() []ports.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.AuditEvent(nil), s.audit...)
}

func (s *Store) Notices() []Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Notice(nil), s.notices...)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
