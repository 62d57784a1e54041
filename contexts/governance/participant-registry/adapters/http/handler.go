package httpadapter

import (
	"context"
	"log/slog"

	"plenum/contexts/governance/participant-registry/application/commands"
	"plenum/contexts/governance/participant-registry/application/queries"
	"plenum/contexts/governance/participant-registry/domain/entities"
	httptransport "plenum/contexts/governance/participant-registry/transport/http"
)

type Handler struct {
	Registry commands.RegistryUseCase
	Roster   queries.RosterUseCase
	Logger   *slog.Logger
}

func (h Handler) AddParticipantHandler(
	ctx context.Context,
	sessionID string,
	actor string,
	req httptransport.AddParticipantRequest,
) (httptransport.ParticipantResponse, error) {
	participant, err := h.Registry.AddParticipant(ctx, commands.AddParticipantCommand{
		SessionID:       sessionID,
		IdentityID:      req.IdentityID,
		Role:            entities.Role(req.Role),
		HasVotingRights: req.HasVotingRights,
		Actor:           actor,
	})
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return toParticipantResponse(participant), nil
}

func (h Handler) MarkPresentHandler(ctx context.Context, participantID string, actor string) (httptransport.ParticipantResponse, error) {
	participant, err := h.Registry.MarkPresent(ctx, commands.AttendanceCommand{
		ParticipantID: participantID,
		Actor:         actor,
	})
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return toParticipantResponse(participant), nil
}

func (h Handler) MarkAbsentHandler(
	ctx context.Context,
	participantID string,
	actor string,
	req httptransport.AttendanceRequest,
) (httptransport.ParticipantResponse, error) {
	participant, err := h.Registry.MarkAbsent(ctx, commands.AttendanceCommand{
		ParticipantID: participantID,
		Note:          req.Note,
		Actor:         actor,
	})
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return toParticipantResponse(participant), nil
}

func (h Handler) MarkLeftHandler(
	ctx context.Context,
	participantID string,
	actor string,
	req httptransport.AttendanceRequest,
) (httptransport.ParticipantResponse, error) {
	participant, err := h.Registry.MarkLeft(ctx, commands.AttendanceCommand{
		ParticipantID: participantID,
		Note:          req.Note,
		Actor:         actor,
	})
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return toParticipantResponse(participant), nil
}

func (h Handler) RespondToInvitationHandler(
	ctx context.Context,
	participantID string,
	req httptransport.InvitationResponseRequest,
) (httptransport.ParticipantResponse, error) {
	participant, err := h.Registry.RespondToInvitation(ctx, commands.InvitationResponseCommand{
		ParticipantID: participantID,
		Response:      entities.ResponseStatus(req.Response),
		Note:          req.Note,
	})
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return toParticipantResponse(participant), nil
}

func (h Handler) DelegateHandler(
	ctx context.Context,
	participantID string,
	actor string,
	req httptransport.DelegateRequest,
) (httptransport.ParticipantResponse, error) {
	participant, err := h.Registry.DelegateVotingRights(ctx, commands.DelegateCommand{
		ParticipantID:    participantID,
		DelegateIdentity: req.DelegateIdentity,
		ProxyArtifact:    req.ProxyArtifact,
		Actor:            actor,
	})
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return toParticipantResponse(participant), nil
}

func (h Handler) RevokeDelegationHandler(ctx context.Context, participantID string, actor string) (httptransport.ParticipantResponse, error) {
	participant, err := h.Registry.RevokeDelegation(ctx, participantID, actor)
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return toParticipantResponse(participant), nil
}

func (h Handler) VotingRightsHandler(ctx context.Context, participantID string) (httptransport.VotingRightsResponse, error) {
	weights, err := h.Roster.EffectiveVotingRights(ctx, participantID)
	if err != nil {
		return httptransport.VotingRightsResponse{}, err
	}
	items := make([]httptransport.VotingWeightItem, 0, len(weights))
	for _, weight := range weights {
		items = append(items, httptransport.VotingWeightItem{
			Kind:          string(weight.Kind),
			ParticipantID: weight.ParticipantID,
			IdentityID:    weight.IdentityID,
			DisplayName:   weight.DisplayName,
			Role:          string(weight.Role),
			ProxyArtifact: weight.ProxyArtifact,
		})
	}
	return httptransport.VotingRightsResponse{
		ParticipantID: participantID,
		Weights:       items,
	}, nil
}

func (h Handler) QuorumHandler(ctx context.Context, sessionID string, quorumRequired int) (httptransport.QuorumResponse, error) {
	achieved, eligible, err := h.Roster.HasQuorum(ctx, sessionID, quorumRequired)
	if err != nil {
		return httptransport.QuorumResponse{}, err
	}
	return httptransport.QuorumResponse{
		SessionID:      sessionID,
		QuorumRequired: quorumRequired,
		EligibleCount:  eligible,
		QuorumAchieved: achieved,
	}, nil
}

func (h Handler) ParticipationStatsHandler(ctx context.Context, sessionID string, quorumRequired int) (httptransport.ParticipationStatsResponse, error) {
	stats, err := h.Roster.ParticipationStats(ctx, sessionID, quorumRequired)
	if err != nil {
		return httptransport.ParticipationStatsResponse{}, err
	}
	return httptransport.ParticipationStatsResponse{
		TotalInvited:            stats.TotalInvited,
		TotalPresent:            stats.TotalPresent,
		TotalAbsent:             stats.TotalAbsent,
		AttendanceRate:          stats.AttendanceRate,
		TotalWithVotingRights:   stats.TotalWithVotingRights,
		PresentWithVotingRights: stats.PresentWithVotingRights,
		QuorumRequired:          stats.QuorumRequired,
		QuorumAchieved:          stats.QuorumAchieved,
		QuorumPercentage:        stats.QuorumPercentage,
	}, nil
}

func toParticipantResponse(participant entities.Participant) httptransport.ParticipantResponse {
	return httptransport.ParticipantResponse{
		ParticipantID:     participant.ParticipantID,
		SessionID:         participant.SessionID,
		IdentityID:        participant.IdentityID,
		DisplayName:       participant.DisplayName,
		Role:              string(participant.Role),
		HasVotingRights:   participant.HasVotingRights,
		Attendance:        string(participant.Attendance),
		Response:          string(participant.Response),
		DelegateIdentity:  participant.DelegateIdentity,
		ProxyArtifact:     participant.ProxyArtifact,
		ConnectionMinutes: participant.ConnectionMinutes,
		AttendanceNote:    participant.AttendanceNote,
	}
}
