package queries

import (
	"context"
	"strings"

	"plenum/contexts/governance/participant-registry/domain/entities"
	"plenum/contexts/governance/participant-registry/ports"
)

// RosterUseCase answers attendance, quorum and voting-rights questions.
// Everything here recomputes from the current roster; nothing is cached.
type RosterUseCase struct {
	Participants ports.ParticipantRepository
}

// EffectiveVotingRights returns every weight the participant can exercise
// right now: their own (if present, rights-holding and not delegated away)
// plus any weight delegated to their identity by a non-absent rights holder.
func (uc RosterUseCase) EffectiveVotingRights(ctx context.Context, participantID string) ([]entities.VotingWeight, error) {
	participant, err := uc.Participants.Get(ctx, strings.TrimSpace(participantID))
	if err != nil {
		return nil, err
	}

	var weights []entities.VotingWeight
	if participant.CanVote() {
		weights = append(weights, entities.VotingWeight{
			Kind:          entities.WeightOwn,
			ParticipantID: participant.ParticipantID,
			IdentityID:    participant.IdentityID,
			DisplayName:   participant.DisplayName,
			Role:          participant.Role,
		})
	}

	roster, err := uc.Participants.ListBySession(ctx, participant.SessionID)
	if err != nil {
		return nil, err
	}
	for _, other := range roster {
		if other.DelegateIdentity != participant.IdentityID {
			continue
		}
		if !other.HasVotingRights || other.Attendance == entities.AttendanceAbsent {
			continue
		}
		weights = append(weights, entities.VotingWeight{
			Kind:          entities.WeightDelegated,
			ParticipantID: other.ParticipantID,
			IdentityID:    other.IdentityID,
			DisplayName:   other.DisplayName,
			Role:          other.Role,
			ProxyArtifact: other.ProxyArtifact,
		})
	}
	return weights, nil
}

// EligibleVoters lists participants who currently hold their own weight:
// present, voting rights, no outgoing delegation.
func (uc RosterUseCase) EligibleVoters(ctx context.Context, sessionID string) ([]entities.Participant, error) {
	roster, err := uc.Participants.ListBySession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, err
	}
	eligible := make([]entities.Participant, 0, len(roster))
	for _, p := range roster {
		if p.CanVote() {
			eligible = append(eligible, p)
		}
	}
	return eligible, nil
}

// HasQuorum recomputes quorum from current attendance. The count of
// eligible voters is returned alongside for display snapshots.
func (uc RosterUseCase) HasQuorum(ctx context.Context, sessionID string, quorumRequired int) (bool, int, error) {
	eligible, err := uc.EligibleVoters(ctx, sessionID)
	if err != nil {
		return false, 0, err
	}
	return len(eligible) >= quorumRequired, len(eligible), nil
}

func (uc RosterUseCase) ParticipationStats(ctx context.Context, sessionID string, quorumRequired int) (entities.ParticipationStats, error) {
	roster, err := uc.Participants.ListBySession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return entities.ParticipationStats{}, err
	}

	stats := entities.ParticipationStats{
		TotalInvited:   len(roster),
		QuorumRequired: quorumRequired,
	}
	for _, p := range roster {
		switch p.Attendance {
		case entities.AttendancePresent:
			stats.TotalPresent++
		case entities.AttendanceAbsent:
			stats.TotalAbsent++
		}
		if p.HasVotingRights {
			stats.TotalWithVotingRights++
		}
		if p.CanVote() {
			stats.PresentWithVotingRights++
		}
	}
	if stats.TotalInvited > 0 {
		stats.AttendanceRate = round2(float64(stats.TotalPresent) / float64(stats.TotalInvited) * 100)
	}
	stats.QuorumAchieved = stats.PresentWithVotingRights >= quorumRequired
	if quorumRequired > 0 {
		stats.QuorumPercentage = round2(float64(stats.PresentWithVotingRights) / float64(quorumRequired) * 100)
	}
	return stats, nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
