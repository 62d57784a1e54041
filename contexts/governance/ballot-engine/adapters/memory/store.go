package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"plenum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "plenum/contexts/governance/ballot-engine/domain/errors"
	"plenum/contexts/governance/ballot-engine/ports"

	"github.com/google/uuid"
)

// Store is the in-memory adapter used by tests and local wiring. One mutex
// serializes transitions and response inserts, matching the transactional
// guarantees of the postgres adapter.
type Store struct {
	mu sync.RWMutex

	ballots   map[string]entities.Ballot
	responses map[string]entities.VoteResponse
	outbox    []ports.OutboxMessage
	audit     []ports.AuditEvent
	notices   []Notice
}

type Notice struct {
	Recipients []string
	Kind       string
	Payload    map[string]any
}

func NewStore(seed []entities.Ballot) *Store {
	ballots := make(map[string]entities.Ballot, len(seed))
	for _, b := range seed {
		ballots[b.BallotID] = b
	}
	return &Store{
		ballots:   ballots,
		responses: make(map[string]entities.VoteResponse),
	}
}

func (s *Store) Create(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ballots[ballot.BallotID]; ok {
		return domainerrors.ErrInvalidBallotInput
	}
	s.ballots[ballot.BallotID] = cloneBallot(ballot)
	return nil
}

func (s *Store) Get(_ context.Context, ballotID string) (entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return cloneBallot(ballot), nil
}

func (s *Store) ListBySession(_ context.Context, sessionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.Ballot
	for _, ballot := range s.ballots {
		if ballot.SessionID == strings.TrimSpace(sessionID) {
			items = append(items, cloneBallot(ballot))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ListExpired(_ context.Context, now time.Time) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []entities.Ballot
	for _, ballot := range s.ballots {
		if ballot.Status == entities.StatusOpen && ballot.Expired(now) {
			items = append(items, cloneBallot(ballot))
		}
	}
	return items, nil
}

func (s *Store) Transition(_ context.Context, ballotID string, apply func(*entities.Ballot, []entities.VoteResponse) error) (entities.Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	working := cloneBallot(ballot)
	snapshot := s.responsesForLocked(working.BallotID)
	if err := apply(&working, snapshot); err != nil {
		return entities.Ballot{}, err
	}
	working.Version++
	s.ballots[working.BallotID] = working
	return cloneBallot(working), nil
}

// InsertResponse re-checks the ballot status under the store lock so a cast
// racing a closure never lands in a closed ballot.
func (s *Store) InsertResponse(_ context.Context, response entities.VoteResponse, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ballot, ok := s.ballots[response.BallotID]
	if !ok {
		return domainerrors.ErrBallotNotFound
	}
	if ballot.Status != entities.StatusOpen {
		return domainerrors.ErrBallotNotOpen
	}
	key := responseKey(response.BallotID, response.ParticipantID, response.OnBehalfOf)
	if _, exists := s.responses[key]; exists && !replace {
		return domainerrors.ErrDuplicateResponse
	}
	s.responses[key] = response
	return nil
}

func (s *Store) ListResponses(_ context.Context, ballotID string) ([]entities.VoteResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.responsesForLocked(strings.TrimSpace(ballotID)), nil
}

func (s *Store) CountResponses(_ context.Context, ballotID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.responsesForLocked(strings.TrimSpace(ballotID))), nil
}

// CorruptResponse overwrites a stored payload in place, bypassing every
// invariant. Test hook for integrity verification.
func (s *Store) CorruptResponse(ballotID string, participantID string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, response := range s.responses {
		if response.BallotID == ballotID && response.ParticipantID == participantID {
			response.Payload = append([]byte(nil), payload...)
			s.responses[key] = response
			return
		}
	}
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, ports.OutboxMessage{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt,
	})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.outbox) {
		limit = len(s.outbox)
	}
	return append([]ports.OutboxMessage(nil), s.outbox[:limit]...), nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.outbox {
		if row.OutboxID == outboxID {
			s.outbox = append(s.outbox[:i], s.outbox[i+1:]...)
			return nil
		}
	}
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

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) responsesForLocked(ballotID string) []entities.VoteResponse {
	var items []entities.VoteResponse
	for _, response := range s.responses {
		if response.BallotID == ballotID {
			items = append(items, response)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items
}

func responseKey(ballotID string, participantID string, onBehalfOf string) string {
	return ballotID + "|" + participantID + "|" + onBehalfOf
}

func cloneBallot(ballot entities.Ballot) entities.Ballot {
	clone := ballot
	clone.Options = append([]entities.Option(nil), ballot.Options...)
	if ballot.StartedAt != nil {
		t := *ballot.StartedAt
		clone.StartedAt = &t
	}
	if ballot.EndsAt != nil {
		t := *ballot.EndsAt
		clone.EndsAt = &t
	}
	if ballot.ClosedAt != nil {
		t := *ballot.ClosedAt
		clone.ClosedAt = &t
	}
	if ballot.Results != nil {
		results := *ballot.Results
		results.Detailed = make(map[string]entities.OptionCount, len(ballot.Results.Detailed))
		for key, value := range ballot.Results.Detailed {
			results.Detailed[key] = value
		}
		clone.Results = &results
	}
	return clone
}
