package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"plenum/contexts/governance/participant-registry/adapters/memory"
	"plenum/contexts/governance/participant-registry/domain/entities"
	domainerrors "plenum/contexts/governance/participant-registry/domain/errors"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newRegistry(store *memory.Store) RegistryUseCase {
	return RegistryUseCase{
		Participants: store,
		Identities:   store,
		Audit:        store,
		Notifier:     store,
		Clock:        fixedClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)},
		IDGen:        store,
	}
}

func addMember(t *testing.T, uc RegistryUseCase, sessionID, identityID string, votingRights bool) entities.Participant {
	t.Helper()
	participant, err := uc.AddParticipant(context.Background(), AddParticipantCommand{
		SessionID:       sessionID,
		IdentityID:      identityID,
		Role:            entities.RoleMember,
		HasVotingRights: votingRights,
		Actor:           "clerk-1",
	})
	if err != nil {
		t.Fatalf("add participant %s: %v", identityID, err)
	}
	return participant
}

func TestAddParticipantRejectsDuplicateIdentity(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newRegistry(store)

	addMember(t, uc, "session-1", "user-1", true)
	_, err := uc.AddParticipant(context.Background(), AddParticipantCommand{
		SessionID:       "session-1",
		IdentityID:      "user-1",
		Role:            entities.RoleMember,
		HasVotingRights: true,
	})
	if !errors.Is(err, domainerrors.ErrParticipantAlreadyExists) {
		t.Fatalf("expected duplicate-participant conflict, got %v", err)
	}
}

func TestRespondToInvitationMapsAttendance(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newRegistry(store)

	cases := []struct {
		response entities.ResponseStatus
		want     entities.AttendanceStatus
	}{
		{entities.ResponseAccepted, entities.AttendanceConfirmed},
		{entities.ResponseDeclined, entities.AttendanceDeclined},
		{entities.ResponseTentative, entities.AttendanceInvited},
	}
	for i, tc := range cases {
		participant := addMember(t, uc, "session-2", "user-"+string(rune('a'+i)), true)
		updated, err := uc.RespondToInvitation(context.Background(), InvitationResponseCommand{
			ParticipantID: participant.ParticipantID,
			Response:      tc.response,
		})
		if err != nil {
			t.Fatalf("respond %s: %v", tc.response, err)
		}
		if updated.Attendance != tc.want {
			t.Fatalf("response %s: expected attendance %s, got %s", tc.response, tc.want, updated.Attendance)
		}
	}
}

func TestMarkLeftRequiresPriorPresence(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newRegistry(store)
	participant := addMember(t, uc, "session-3", "user-1", true)

	if _, err := uc.MarkLeft(context.Background(), AttendanceCommand{ParticipantID: participant.ParticipantID}); !errors.Is(err, domainerrors.ErrParticipantNotPresent) {
		t.Fatalf("expected not-present error, got %v", err)
	}

	if _, err := uc.MarkPresent(context.Background(), AttendanceCommand{ParticipantID: participant.ParticipantID}); err != nil {
		t.Fatalf("mark present: %v", err)
	}
	left, err := uc.MarkLeft(context.Background(), AttendanceCommand{ParticipantID: participant.ParticipantID, Note: "other engagement"})
	if err != nil {
		t.Fatalf("mark left: %v", err)
	}
	if left.Attendance != entities.AttendanceLeftEarly {
		t.Fatalf("expected left_early, got %s", left.Attendance)
	}
	if left.LeftAt == nil {
		t.Fatalf("expected left timestamp to be recorded")
	}
}

func TestDelegateRequiresVotingRightsAndSameSession(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newRegistry(store)
	observer := addMember(t, uc, "session-4", "user-observer", false)
	addMember(t, uc, "session-4", "user-member", true)

	_, err := uc.DelegateVotingRights(context.Background(), DelegateCommand{
		ParticipantID:    observer.ParticipantID,
		DelegateIdentity: "user-member",
	})
	if !errors.Is(err, domainerrors.ErrVotingRightsRequired) {
		t.Fatalf("expected voting-rights error, got %v", err)
	}

	member := addMember(t, uc, "session-5", "user-alone", true)
	_, err = uc.DelegateVotingRights(context.Background(), DelegateCommand{
		ParticipantID:    member.ParticipantID,
		DelegateIdentity: "user-member",
	})
	if !errors.Is(err, domainerrors.ErrDelegateNotInSession) {
		t.Fatalf("expected cross-session rejection, got %v", err)
	}
}

func TestDelegationCycleRejected(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newRegistry(store)
	alice := addMember(t, uc, "session-6", "alice", true)
	bob := addMember(t, uc, "session-6", "bob", true)
	carol := addMember(t, uc, "session-6", "carol", true)

	if _, err := uc.DelegateVotingRights(context.Background(), DelegateCommand{
		ParticipantID:    alice.ParticipantID,
		DelegateIdentity: "bob",
	}); err != nil {
		t.Fatalf("alice->bob: %v", err)
	}

	// Direct cycle bob -> alice.
	if _, err := uc.DelegateVotingRights(context.Background(), DelegateCommand{
		ParticipantID:    bob.ParticipantID,
		DelegateIdentity: "alice",
	}); !errors.Is(err, domainerrors.ErrDelegationCycle) {
		t.Fatalf("expected direct cycle rejection, got %v", err)
	}

	// Longer cycle bob -> carol -> alice.
	if _, err := uc.DelegateVotingRights(context.Background(), DelegateCommand{
		ParticipantID:    bob.ParticipantID,
		DelegateIdentity: "carol",
	}); err != nil {
		t.Fatalf("bob->carol: %v", err)
	}
	if _, err := uc.DelegateVotingRights(context.Background(), DelegateCommand{
		ParticipantID:    carol.ParticipantID,
		DelegateIdentity: "alice",
	}); !errors.Is(err, domainerrors.ErrDelegationCycle) {
		t.Fatalf("expected transitive cycle rejection, got %v", err)
	}
}

func TestRevokeDelegationClearsReference(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newRegistry(store)
	alice := addMember(t, uc, "session-7", "alice", true)
	addMember(t, uc, "session-7", "bob", true)

	if _, err := uc.DelegateVotingRights(context.Background(), DelegateCommand{
		ParticipantID:    alice.ParticipantID,
		DelegateIdentity: "bob",
		ProxyArtifact:    "proxy-doc-1",
	}); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	revoked, err := uc.RevokeDelegation(context.Background(), alice.ParticipantID, "clerk-1")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked.DelegateIdentity != "" || revoked.ProxyArtifact != "" {
		t.Fatalf("expected cleared delegation, got %q/%q", revoked.DelegateIdentity, revoked.ProxyArtifact)
	}

	if _, err := uc.RevokeDelegation(context.Background(), alice.ParticipantID, "clerk-1"); !errors.Is(err, domainerrors.ErrNoActiveDelegation) {
		t.Fatalf("expected no-active-delegation error, got %v", err)
	}
}
