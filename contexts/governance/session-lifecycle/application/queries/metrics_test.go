package queries

import (
	"context"
	"testing"
	"time"

	"plenum/contexts/governance/session-lifecycle/adapters/memory"
	"plenum/contexts/governance/session-lifecycle/domain/entities"
	"plenum/contexts/governance/session-lifecycle/ports"
)

type fixedBallotCounter struct {
	counts ports.BallotCounts
}

func (c fixedBallotCounter) CountBySession(_ context.Context, _ string) (ports.BallotCounts, error) {
	return c.counts, nil
}

type fixedParticipation struct {
	stats ports.ParticipationStats
}

func (p fixedParticipation) ParticipationStats(_ context.Context, _ string, _ int) (ports.ParticipationStats, error) {
	return p.stats, nil
}

func seededSession() entities.Session {
	start := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	return entities.Session{
		SessionID:      "session-1",
		EntityID:       "entity-1",
		MeetingType:    entities.MeetingBoard,
		Title:          "Q1 board meeting",
		ScheduledAt:    start,
		StartTime:      &start,
		EndTime:        &end,
		Status:         entities.StatusCompleted,
		QuorumRequired: 3,
		ComplianceChecklist: []entities.ComplianceItem{
			{Requirement: "Convocation sent", Completed: true},
			{Requirement: "Agenda circulated", Completed: true},
			{Requirement: "Previous minutes approved"},
			{Requirement: "Secretary present"},
		},
		Version:   1,
		CreatedAt: start,
		UpdatedAt: end,
	}
}

func TestComplianceStatusCountsCompletedItems(t *testing.T) {
	store := memory.NewStore([]entities.Session{seededSession()})
	uc := MetricsUseCase{Sessions: store}

	status, err := uc.ComplianceStatus(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("compliance status: %v", err)
	}
	if status.TotalRequirements != 4 || status.CompletedRequirements != 2 {
		t.Fatalf("unexpected counts: %+v", status)
	}
	if status.ComplianceRate != 50.0 || status.IsCompliant {
		t.Fatalf("expected 50%% non-compliant, got rate=%v compliant=%v", status.ComplianceRate, status.IsCompliant)
	}
	if len(status.MissingRequirements) != 2 {
		t.Fatalf("expected 2 missing requirements, got %v", status.MissingRequirements)
	}
}

func TestSessionMetricsAggregatesSources(t *testing.T) {
	store := memory.NewStore([]entities.Session{seededSession()})
	uc := MetricsUseCase{
		Sessions: store,
		Participation: fixedParticipation{stats: ports.ParticipationStats{
			TotalInvited:        6,
			TotalPresent:        4,
			AttendanceRate:      66.67,
			PresentVotingRights: 4,
			QuorumRequired:      3,
			QuorumAchieved:      true,
		}},
		Ballots: fixedBallotCounter{counts: ports.BallotCounts{Total: 3, Closed: 2, Decisions: 1}},
	}

	metrics, err := uc.SessionMetrics(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("session metrics: %v", err)
	}
	if metrics.DurationMinutes != 90 {
		t.Fatalf("expected 90 minute duration, got %d", metrics.DurationMinutes)
	}
	if metrics.BallotsCount != 3 || metrics.BallotsClosed != 2 || metrics.DecisionsCount != 1 {
		t.Fatalf("unexpected ballot counts: %+v", metrics)
	}
	if !metrics.Participation.QuorumAchieved || metrics.Participation.TotalPresent != 4 {
		t.Fatalf("unexpected participation block: %+v", metrics.Participation)
	}
}
