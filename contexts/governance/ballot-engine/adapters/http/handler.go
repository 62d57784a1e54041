package httpadapter

import (
	"context"
	"log/slog"

	"plenum/contexts/governance/ballot-engine/application/commands"
	"plenum/contexts/governance/ballot-engine/application/queries"
	"plenum/contexts/governance/ballot-engine/domain/entities"
	httptransport "plenum/contexts/governance/ballot-engine/transport/http"
)

type Handler struct {
	Engine  commands.BallotUseCase
	Queries queries.BallotQueries
	Logger  *slog.Logger
}

func (h Handler) CreateHandler(ctx context.Context, actor string, req httptransport.CreateBallotRequest) (httptransport.BallotResponse, error) {
	options := make([]entities.Option, 0, len(req.Options))
	for _, option := range req.Options {
		options = append(options, entities.Option{ID: option.ID, Label: option.Label})
	}
	ballot, err := h.Engine.Create(ctx, commands.CreateBallotCommand{
		SessionID:        req.SessionID,
		Title:            req.Title,
		Question:         req.Question,
		Type:             entities.BallotType(req.Type),
		Secrecy:          entities.Secrecy(req.Secrecy),
		Options:          options,
		MajorityRequired: req.MajorityRequired,
		QuorumRequired:   req.QuorumRequired,
		AllowReplacement: req.AllowReplacement,
		DurationMinutes:  req.DurationMinutes,
		Actor:            actor,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return toBallotResponse(ballot), nil
}

func (h Handler) OpenHandler(ctx context.Context, ballotID string, actor string) (httptransport.BallotResponse, error) {
	ballot, err := h.Engine.Open(ctx, ballotID, actor)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return toBallotResponse(ballot), nil
}

func (h Handler) CastVoteHandler(ctx context.Context, ballotID string, participantID string, req httptransport.CastVoteRequest) (httptransport.VoteReceiptResponse, error) {
	response, err := h.Engine.CastVote(ctx, commands.CastVoteCommand{
		BallotID:      ballotID,
		ParticipantID: participantID,
		Payload: entities.VotePayload{
			Choice:    req.Choice,
			Rankings:  req.Rankings,
			Approvals: req.Approvals,
		},
		OnBehalfOf: req.OnBehalfOf,
		Origin:     req.Origin,
	})
	if err != nil {
		return httptransport.VoteReceiptResponse{}, err
	}
	return httptransport.VoteReceiptResponse{
		ResponseID:    response.ResponseID,
		BallotID:      response.BallotID,
		ParticipantID: response.ParticipantID,
		OnBehalfOf:    response.OnBehalfOf,
		CastAt:        response.CastAt,
		SecurityToken: response.SecurityToken,
	}, nil
}

func (h Handler) CloseHandler(ctx context.Context, ballotID string, actor string, req httptransport.CloseBallotRequest) (httptransport.BallotResponse, error) {
	ballot, err := h.Engine.Close(ctx, ballotID, req.Reason, actor)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return toBallotResponse(ballot), nil
}

func (h Handler) CancelHandler(ctx context.Context, ballotID string, actor string, req httptransport.CancelBallotRequest) (httptransport.BallotResponse, error) {
	ballot, err := h.Engine.Cancel(ctx, ballotID, req.Reason, actor)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return toBallotResponse(ballot), nil
}

func (h Handler) GetBallotHandler(ctx context.Context, ballotID string) (httptransport.BallotResponse, error) {
	ballot, err := h.Queries.Get(ctx, ballotID)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return toBallotResponse(ballot), nil
}

func (h Handler) ListBySessionHandler(ctx context.Context, sessionID string) ([]httptransport.BallotResponse, error) {
	ballots, err := h.Queries.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.BallotResponse, 0, len(ballots))
	for _, ballot := range ballots {
		items = append(items, toBallotResponse(ballot))
	}
	return items, nil
}

func (h Handler) StatisticsHandler(ctx context.Context, ballotID string) (httptransport.StatisticsResponse, error) {
	stats, err := h.Queries.Statistics(ctx, ballotID)
	if err != nil {
		return httptransport.StatisticsResponse{}, err
	}
	return httptransport.StatisticsResponse{
		EligibleVoters:       stats.EligibleVoters,
		TotalResponses:       stats.TotalResponses,
		ParticipationRate:    stats.ParticipationRate,
		QuorumRequired:       stats.QuorumRequired,
		QuorumAchieved:       stats.QuorumAchieved,
		MajorityRequired:     stats.MajorityRequired,
		IsOpen:               stats.IsOpen,
		IsClosed:             stats.IsClosed,
		TimeRemainingMinutes: stats.TimeRemainingMinutes,
		DurationMinutes:      stats.DurationMinutes,
	}, nil
}

func (h Handler) ResultsHandler(ctx context.Context, ballotID string) (httptransport.TallyPayload, error) {
	results, err := h.Queries.Results(ctx, ballotID)
	if err != nil {
		return httptransport.TallyPayload{}, err
	}
	return toTallyPayload(results), nil
}

func (h Handler) VerifyHandler(ctx context.Context, ballotID string) (httptransport.VerificationResponse, error) {
	report, err := h.Queries.VerifyIntegrity(ctx, ballotID)
	if err != nil {
		return httptransport.VerificationResponse{}, err
	}
	return httptransport.VerificationResponse{
		Valid:          report.Valid,
		Reason:         report.Reason,
		CorruptedCount: report.CorruptedCount,
		VerifiedAt:     report.VerifiedAt,
	}, nil
}

func toBallotResponse(ballot entities.Ballot) httptransport.BallotResponse {
	options := make([]httptransport.OptionPayload, 0, len(ballot.Options))
	for _, option := range ballot.Options {
		options = append(options, httptransport.OptionPayload{ID: option.ID, Label: option.Label})
	}
	resp := httptransport.BallotResponse{
		BallotID:         ballot.BallotID,
		SessionID:        ballot.SessionID,
		Title:            ballot.Title,
		Question:         ballot.Question,
		Type:             string(ballot.Type),
		Secrecy:          string(ballot.Secrecy),
		MajorityRequired: ballot.MajorityRequired,
		QuorumRequired:   ballot.QuorumRequired,
		Options:          options,
		AllowReplacement: ballot.AllowReplacement,
		DurationMinutes:  ballot.DurationMinutes,
		Status:           string(ballot.Status),
		StartedAt:        ballot.StartedAt,
		EndsAt:           ballot.EndsAt,
		ClosedAt:         ballot.ClosedAt,
		ClosureReason:    ballot.ClosureReason,
		FinalDigest:      ballot.FinalDigest,
		Version:          ballot.Version,
		CreatedAt:        ballot.CreatedAt,
	}
	if ballot.Results != nil {
		payload := toTallyPayload(*ballot.Results)
		resp.Results = &payload
	}
	return resp
}

func toTallyPayload(results entities.TallyResult) httptransport.TallyPayload {
	detailed := make(map[string]httptransport.OptionCountPayload, len(results.Detailed))
	for optionID, count := range results.Detailed {
		detailed[optionID] = httptransport.OptionCountPayload{
			Label:      count.Label,
			Count:      count.Count,
			Percentage: count.Percentage,
		}
	}
	return httptransport.TallyPayload{
		Detailed: detailed,
		Summary: httptransport.TallySummaryPayload{
			TotalEligible:     results.Summary.TotalEligible,
			TotalVotes:        results.Summary.TotalVotes,
			ParticipationRate: results.Summary.ParticipationRate,
			QuorumAchieved:    results.Summary.QuorumAchieved,
			Outcome:           results.Summary.Outcome,
			Winner:            results.Summary.Winner,
			MajorityAchieved:  results.Summary.MajorityAchieved,
			WinningPercentage: results.Summary.WinningPercentage,
		},
	}
}
