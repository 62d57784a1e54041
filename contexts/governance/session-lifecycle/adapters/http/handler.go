package httpadapter

import (
	"context"
	"log/slog"

	"plenum/contexts/governance/session-lifecycle/application/commands"
	"plenum/contexts/governance/session-lifecycle/application/queries"
	"plenum/contexts/governance/session-lifecycle/domain/entities"
	httptransport "plenum/contexts/governance/session-lifecycle/transport/http"
)

type Handler struct {
	Lifecycle commands.LifecycleUseCase
	Metrics   queries.MetricsUseCase
	Logger    *slog.Logger
}

func (h Handler) ScheduleHandler(ctx context.Context, actor string, req httptransport.ScheduleSessionRequest) (httptransport.SessionResponse, error) {
	session, err := h.Lifecycle.Schedule(ctx, commands.ScheduleSessionCommand{
		EntityID:         req.EntityID,
		MeetingType:      entities.MeetingType(req.MeetingType),
		Title:            req.Title,
		Description:      req.Description,
		SessionNumber:    req.SessionNumber,
		FinancialYear:    req.FinancialYear,
		ScheduledAt:      req.ScheduledAt,
		Timezone:         req.Timezone,
		Location:         req.Location,
		QuorumRequired:   req.QuorumRequired,
		IsPublic:         req.IsPublic,
		RecordingEnabled: req.RecordingEnabled,
		PresidentID:      req.PresidentID,
		SecretaryID:      req.SecretaryID,
		Actor:            actor,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return toSessionResponse(session), nil
}

func (h Handler) StartHandler(ctx context.Context, sessionID string, actor string) (httptransport.SessionResponse, error) {
	session, err := h.Lifecycle.Start(ctx, sessionID, actor)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return toSessionResponse(session), nil
}

func (h Handler) CompleteHandler(ctx context.Context, sessionID string, actor string) (httptransport.SessionResponse, error) {
	session, err := h.Lifecycle.Complete(ctx, sessionID, actor)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return toSessionResponse(session), nil
}

func (h Handler) CancelHandler(ctx context.Context, sessionID string, actor string, req httptransport.CancelSessionRequest) (httptransport.SessionResponse, error) {
	session, err := h.Lifecycle.Cancel(ctx, sessionID, req.Reason, actor)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return toSessionResponse(session), nil
}

func (h Handler) PostponeHandler(ctx context.Context, sessionID string, actor string, req httptransport.PostponeSessionRequest) (httptransport.SessionResponse, error) {
	session, err := h.Lifecycle.Postpone(ctx, commands.PostponeSessionCommand{
		SessionID: sessionID,
		NewDate:   req.NewDate,
		Reason:    req.Reason,
		Actor:     actor,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return toSessionResponse(session), nil
}

func (h Handler) RescheduleHandler(ctx context.Context, sessionID string, actor string, req httptransport.RescheduleSessionRequest) (httptransport.SessionResponse, error) {
	session, err := h.Lifecycle.Reschedule(ctx, sessionID, req.NewDate, actor)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return toSessionResponse(session), nil
}

func (h Handler) ComplianceItemHandler(ctx context.Context, sessionID string, actor string, req httptransport.ComplianceItemRequest) (httptransport.SessionResponse, error) {
	session, err := h.Lifecycle.MarkComplianceItem(ctx, sessionID, req.Index, req.Completed, actor)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return toSessionResponse(session), nil
}

func (h Handler) GetSessionHandler(ctx context.Context, sessionID string) (httptransport.SessionResponse, error) {
	session, err := h.Metrics.Get(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return toSessionResponse(session), nil
}

func (h Handler) ComplianceStatusHandler(ctx context.Context, sessionID string) (httptransport.ComplianceStatusResponse, error) {
	status, err := h.Metrics.ComplianceStatus(ctx, sessionID)
	if err != nil {
		return httptransport.ComplianceStatusResponse{}, err
	}
	return toComplianceResponse(status), nil
}

func (h Handler) SessionMetricsHandler(ctx context.Context, sessionID string) (httptransport.SessionMetricsResponse, error) {
	metrics, err := h.Metrics.SessionMetrics(ctx, sessionID)
	if err != nil {
		return httptransport.SessionMetricsResponse{}, err
	}
	return httptransport.SessionMetricsResponse{
		SessionID:       metrics.SessionID,
		Status:          string(metrics.Status),
		DurationMinutes: metrics.DurationMinutes,
		BallotsCount:    metrics.BallotsCount,
		BallotsClosed:   metrics.BallotsClosed,
		DecisionsCount:  metrics.DecisionsCount,
		Participation: httptransport.ParticipationStatsBlock{
			TotalInvited:        metrics.Participation.TotalInvited,
			TotalPresent:        metrics.Participation.TotalPresent,
			TotalAbsent:         metrics.Participation.TotalAbsent,
			AttendanceRate:      metrics.Participation.AttendanceRate,
			TotalVotingRights:   metrics.Participation.TotalVotingRights,
			PresentVotingRights: metrics.Participation.PresentVotingRights,
			QuorumRequired:      metrics.Participation.QuorumRequired,
			QuorumAchieved:      metrics.Participation.QuorumAchieved,
			QuorumPercentage:    metrics.Participation.QuorumPercentage,
		},
		Compliance: toComplianceResponse(metrics.Compliance),
	}, nil
}

func toComplianceResponse(status queries.ComplianceStatus) httptransport.ComplianceStatusResponse {
	return httptransport.ComplianceStatusResponse{
		TotalRequirements:     status.TotalRequirements,
		CompletedRequirements: status.CompletedRequirements,
		ComplianceRate:        status.ComplianceRate,
		IsCompliant:           status.IsCompliant,
		MissingRequirements:   status.MissingRequirements,
	}
}

func toSessionResponse(session entities.Session) httptransport.SessionResponse {
	resp := httptransport.SessionResponse{
		SessionID:                session.SessionID,
		EntityID:                 session.EntityID,
		MeetingType:              string(session.MeetingType),
		Title:                    session.Title,
		Description:              session.Description,
		SessionNumber:            session.SessionNumber,
		FinancialYear:            session.FinancialYear,
		ScheduledAt:              session.ScheduledAt,
		StartTime:                session.StartTime,
		EndTime:                  session.EndTime,
		Status:                   string(session.Status),
		IsPublic:                 session.IsPublic,
		RecordingEnabled:         session.RecordingEnabled,
		RecordingDurationMinutes: session.RecordingDurationMinutes,
		QuorumRequired:           session.QuorumRequired,
		QuorumAchieved:           session.QuorumAchieved,
	}
	if session.Cancellation != nil {
		resp.CancellationReason = session.Cancellation.Reason
	}
	if session.Postponement != nil {
		resp.PostponementReason = session.Postponement.Reason
	}
	for _, item := range session.ComplianceChecklist {
		resp.ComplianceChecklist = append(resp.ComplianceChecklist, httptransport.ComplianceItemResponse{
			Requirement: item.Requirement,
			Completed:   item.Completed,
		})
	}
	return resp
}
