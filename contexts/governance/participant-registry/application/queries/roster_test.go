package queries

import (
	"context"
	"testing"
	"time"

	"plenum/contexts/governance/participant-registry/adapters/memory"
	"plenum/contexts/governance/participant-registry/domain/entities"
)

func seedParticipant(id, sessionID, identityID string, attendance entities.AttendanceStatus, votingRights bool, delegate string) entities.Participant {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	return entities.Participant{
		ParticipantID:    id,
		SessionID:        sessionID,
		IdentityID:       identityID,
		DisplayName:      identityID,
		Role:             entities.RoleMember,
		HasVotingRights:  votingRights,
		Attendance:       attendance,
		Response:         entities.ResponseAccepted,
		InvitedAt:        now,
		DelegateIdentity: delegate,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestEffectiveVotingRightsIncludesReceivedDelegations(t *testing.T) {
	store := memory.NewStore([]entities.Participant{
		seedParticipant("p-alice", "session-1", "alice", entities.AttendancePresent, true, "bob"),
		seedParticipant("p-bob", "session-1", "bob", entities.AttendancePresent, true, ""),
		seedParticipant("p-carol", "session-1", "carol", entities.AttendanceAbsent, true, "bob"),
	})
	uc := RosterUseCase{Participants: store}

	weights, err := uc.EffectiveVotingRights(context.Background(), "p-bob")
	if err != nil {
		t.Fatalf("effective voting rights: %v", err)
	}
	// Bob keeps his own weight and receives alice's; carol is absent so her
	// delegated weight does not transfer.
	if len(weights) != 2 {
		t.Fatalf("expected 2 weights, got %d", len(weights))
	}
	if weights[0].Kind != entities.WeightOwn {
		t.Fatalf("expected first weight to be own, got %s", weights[0].Kind)
	}
	if weights[1].Kind != entities.WeightDelegated || weights[1].IdentityID != "alice" {
		t.Fatalf("expected delegated weight from alice, got %+v", weights[1])
	}
}

func TestDelegatedParticipantHasNoOwnWeight(t *testing.T) {
	store := memory.NewStore([]entities.Participant{
		seedParticipant("p-alice", "session-1", "alice", entities.AttendancePresent, true, "bob"),
		seedParticipant("p-bob", "session-1", "bob", entities.AttendancePresent, true, ""),
	})
	uc := RosterUseCase{Participants: store}

	weights, err := uc.EffectiveVotingRights(context.Background(), "p-alice")
	if err != nil {
		t.Fatalf("effective voting rights: %v", err)
	}
	if len(weights) != 0 {
		t.Fatalf("expected no weights for delegated-away participant, got %d", len(weights))
	}
}

func TestHasQuorumCountsOnlyEligibleVoters(t *testing.T) {
	store := memory.NewStore([]entities.Participant{
		seedParticipant("p-1", "session-1", "u1", entities.AttendancePresent, true, ""),
		seedParticipant("p-2", "session-1", "u2", entities.AttendancePresent, true, ""),
		seedParticipant("p-3", "session-1", "u3", entities.AttendancePresent, false, ""),
		seedParticipant("p-4", "session-1", "u4", entities.AttendanceInvited, true, ""),
		seedParticipant("p-5", "session-1", "u5", entities.AttendancePresent, true, "u1"),
	})
	uc := RosterUseCase{Participants: store}

	achieved, eligible, err := uc.HasQuorum(context.Background(), "session-1", 3)
	if err != nil {
		t.Fatalf("has quorum: %v", err)
	}
	if eligible != 2 {
		t.Fatalf("expected 2 eligible voters, got %d", eligible)
	}
	if achieved {
		t.Fatalf("expected quorum not achieved with 2 eligible and 3 required")
	}

	achieved, _, err = uc.HasQuorum(context.Background(), "session-1", 2)
	if err != nil {
		t.Fatalf("has quorum: %v", err)
	}
	if !achieved {
		t.Fatalf("expected quorum achieved with 2 eligible and 2 required")
	}
}

func TestParticipationStats(t *testing.T) {
	store := memory.NewStore([]entities.Participant{
		seedParticipant("p-1", "session-1", "u1", entities.AttendancePresent, true, ""),
		seedParticipant("p-2", "session-1", "u2", entities.AttendancePresent, false, ""),
		seedParticipant("p-3", "session-1", "u3", entities.AttendanceAbsent, true, ""),
		seedParticipant("p-4", "session-1", "u4", entities.AttendanceInvited, true, ""),
	})
	uc := RosterUseCase{Participants: store}

	stats, err := uc.ParticipationStats(context.Background(), "session-1", 1)
	if err != nil {
		t.Fatalf("participation stats: %v", err)
	}
	if stats.TotalInvited != 4 || stats.TotalPresent != 2 || stats.TotalAbsent != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.AttendanceRate != 50.0 {
		t.Fatalf("expected attendance rate 50.0, got %v", stats.AttendanceRate)
	}
	if stats.PresentWithVotingRights != 1 || !stats.QuorumAchieved {
		t.Fatalf("unexpected quorum stats: %+v", stats)
	}
}
