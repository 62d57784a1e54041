package queries

import (
	"context"
	"math"
	"strings"

	"plenum/contexts/governance/session-lifecycle/domain/entities"
	"plenum/contexts/governance/session-lifecycle/ports"
)

type ComplianceStatus struct {
	TotalRequirements     int
	CompletedRequirements int
	ComplianceRate        float64
	IsCompliant           bool
	MissingRequirements   []string
}

type SessionMetrics struct {
	SessionID       string
	Status          entities.Status
	DurationMinutes int
	BallotsCount    int
	BallotsClosed   int
	DecisionsCount  int
	Participation   ports.ParticipationStats
	Compliance      ComplianceStatus
}

// MetricsUseCase serves the read side: session lookups, the compliance
// checklist summary and the aggregated metrics view consumed by dashboards
// and the minutes generator.
type MetricsUseCase struct {
	Sessions      ports.SessionRepository
	Participation ports.ParticipationReader
	Ballots       ports.BallotCounter
}

func (uc MetricsUseCase) Get(ctx context.Context, sessionID string) (entities.Session, error) {
	return uc.Sessions.Get(ctx, strings.TrimSpace(sessionID))
}

func (uc MetricsUseCase) ListByEntity(ctx context.Context, entityID string) ([]entities.Session, error) {
	return uc.Sessions.ListByEntity(ctx, strings.TrimSpace(entityID))
}

func (uc MetricsUseCase) ComplianceStatus(ctx context.Context, sessionID string) (ComplianceStatus, error) {
	session, err := uc.Sessions.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return ComplianceStatus{}, err
	}
	return complianceFor(session), nil
}

func (uc MetricsUseCase) SessionMetrics(ctx context.Context, sessionID string) (SessionMetrics, error) {
	session, err := uc.Sessions.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return SessionMetrics{}, err
	}

	metrics := SessionMetrics{
		SessionID:       session.SessionID,
		Status:          session.Status,
		DurationMinutes: session.DurationMinutes(),
		Compliance:      complianceFor(session),
	}
	if uc.Participation != nil {
		stats, err := uc.Participation.ParticipationStats(ctx, session.SessionID, session.QuorumRequired)
		if err != nil {
			return SessionMetrics{}, err
		}
		metrics.Participation = stats
	}
	if uc.Ballots != nil {
		counts, err := uc.Ballots.CountBySession(ctx, session.SessionID)
		if err != nil {
			return SessionMetrics{}, err
		}
		metrics.BallotsCount = counts.Total
		metrics.BallotsClosed = counts.Closed
		metrics.DecisionsCount = counts.Decisions
	}
	return metrics, nil
}

func complianceFor(session entities.Session) ComplianceStatus {
	total := len(session.ComplianceChecklist)
	completed := 0
	missing := make([]string, 0)
	for _, item := range session.ComplianceChecklist {
		if item.Completed {
			completed++
		} else {
			missing = append(missing, item.Requirement)
		}
	}
	rate := 100.0
	if total > 0 {
		rate = round2(float64(completed) / float64(total) * 100)
	}
	return ComplianceStatus{
		TotalRequirements:     total,
		CompletedRequirements: completed,
		ComplianceRate:        rate,
		IsCompliant:           completed >= total,
		MissingRequirements:   missing,
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
