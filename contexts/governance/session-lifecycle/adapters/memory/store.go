package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"plenum/contexts/governance/session-lifecycle/domain/entities"
	domainerrors "plenum/contexts/governance/session-lifecycle/domain/errors"
	"plenum/contexts/governance/session-lifecycle/ports"

	"github.com/google/uuid"
)

// Store is the in-memory adapter used by tests and local wiring. A single
// mutex serializes Transition calls, mirroring the row lock the postgres
// adapter takes per session.
type Store struct {
	mu sync.RWMutex

	sessions   map[string]entities.Session
	recipients map[string][]string
	audit      []ports.AuditEvent
	notices    []Notice
	minutes    []string
}

type Notice struct {
	Recipients []string
	Kind       string
	Payload    map[string]any
}

func NewStore(seed []entities.Session) *Store {
	sessions := make(map[string]entities.Session, len(seed))
	for _, s := range seed {
		sessions[s.SessionID] = s
	}
	return &Store{
		sessions:   sessions,
		recipients: make(map[string][]string),
	}
}

func (s *Store) SetRecipients(sessionID string, identityIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients[sessionID] = append([]string(nil), identityIDs...)
}

func (s *Store) Create(_ context.Context, session entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.SessionID]; ok {
		return domainerrors.ErrVersionConflict
	}
	s.sessions[session.SessionID] = cloneSession(session)
	return nil
}

func (s *Store) Get(_ context.Context, sessionID string) (entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *Store) ListByEntity(_ context.Context, entityID string) ([]entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.Session
	for _, session := range s.sessions {
		if session.EntityID == strings.TrimSpace(entityID) {
			items = append(items, cloneSession(session))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ScheduledAt.Before(items[j].ScheduledAt)
	})
	return items, nil
}

func (s *Store) Transition(_ context.Context, sessionID string, apply func(*entities.Session) error) (entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	working := cloneSession(session)
	if err := apply(&working); err != nil {
		return entities.Session{}, err
	}
	working.Version++
	s.sessions[working.SessionID] = working
	return cloneSession(working), nil
}

func (s *Store) RecipientsForSession(_ context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.recipients[strings.TrimSpace(sessionID)]...), nil
}

func (s *Store) Generate(_ context.Context, session entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minutes = append(s.minutes, session.SessionID)
	return nil
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

func (s *Store) GeneratedMinutes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.minutes...)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneSession(session entities.Session) entities.Session {
	clone := session
	clone.LegalRequirements = append([]string(nil), session.LegalRequirements...)
	clone.ComplianceChecklist = append([]entities.ComplianceItem(nil), session.ComplianceChecklist...)
	if session.StartTime != nil {
		t := *session.StartTime
		clone.StartTime = &t
	}
	if session.EndTime != nil {
		t := *session.EndTime
		clone.EndTime = &t
	}
	if session.QuorumAchieved != nil {
		v := *session.QuorumAchieved
		clone.QuorumAchieved = &v
	}
	if session.Cancellation != nil {
		c := *session.Cancellation
		clone.Cancellation = &c
	}
	if session.Postponement != nil {
		p := *session.Postponement
		clone.Postponement = &p
	}
	return clone
}
