package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"plenum/contexts/governance/session-lifecycle/adapters/memory"
	"plenum/contexts/governance/session-lifecycle/domain/entities"
	domainerrors "plenum/contexts/governance/session-lifecycle/domain/errors"
)

type scriptedQuorum struct {
	achieved bool
	eligible int
}

func (q scriptedQuorum) HasQuorum(_ context.Context, _ string, _ int) (bool, int, error) {
	return q.achieved, q.eligible, nil
}

func newLifecycle(store *memory.Store, quorum scriptedQuorum) LifecycleUseCase {
	return LifecycleUseCase{
		Sessions:   store,
		Quorum:     quorum,
		Minutes:    store,
		Audit:      store,
		Notifier:   store,
		Recipients: store,
		Clock:      store,
		IDGen:      store,
	}
}

func scheduleBoard(t *testing.T, uc LifecycleUseCase, scheduledAt time.Time) entities.Session {
	t.Helper()
	session, err := uc.Schedule(context.Background(), ScheduleSessionCommand{
		EntityID:    "entity-1",
		MeetingType: entities.MeetingBoard,
		Title:       "Q1 board meeting",
		ScheduledAt: scheduledAt,
		Actor:       "clerk-1",
	})
	if err != nil {
		t.Fatalf("schedule session: %v", err)
	}
	return session
}

func TestScheduleAppliesTypeDefaults(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newLifecycle(store, scriptedQuorum{achieved: true})

	session := scheduleBoard(t, uc, time.Now().Add(-time.Hour))
	if session.QuorumRequired != 3 {
		t.Fatalf("expected board quorum default 3, got %d", session.QuorumRequired)
	}
	if !session.RecordingEnabled || session.IsPublic {
		t.Fatalf("unexpected board visibility defaults: recording=%v public=%v", session.RecordingEnabled, session.IsPublic)
	}
	if len(session.ComplianceChecklist) != len(session.LegalRequirements) || len(session.ComplianceChecklist) == 0 {
		t.Fatalf("expected checklist seeded from legal requirements, got %d items", len(session.ComplianceChecklist))
	}
}

func TestStartRequiresQuorum(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newLifecycle(store, scriptedQuorum{achieved: false, eligible: 2})

	session := scheduleBoard(t, uc, time.Now().Add(-time.Hour))
	if _, err := uc.Start(context.Background(), session.SessionID, "president-1"); !errors.Is(err, domainerrors.ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet, got %v", err)
	}

	stored, err := store.Get(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.Status != entities.StatusScheduled {
		t.Fatalf("failed start must not transition, status %s", stored.Status)
	}
}

func TestStartRejectsFutureScheduledAt(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newLifecycle(store, scriptedQuorum{achieved: true, eligible: 4})

	session := scheduleBoard(t, uc, time.Now().Add(time.Hour))
	if _, err := uc.Start(context.Background(), session.SessionID, "president-1"); !errors.Is(err, domainerrors.ErrSessionNotStartable) {
		t.Fatalf("expected ErrSessionNotStartable, got %v", err)
	}
}

func TestStartSnapshotsQuorumAndGoesLive(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newLifecycle(store, scriptedQuorum{achieved: true, eligible: 4})

	session := scheduleBoard(t, uc, time.Now().Add(-time.Hour))
	started, err := uc.Start(context.Background(), session.SessionID, "president-1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if started.Status != entities.StatusLive || started.StartTime == nil {
		t.Fatalf("expected live session with start time, got %s", started.Status)
	}
	if started.QuorumAchieved == nil || !*started.QuorumAchieved {
		t.Fatal("expected quorum snapshot true")
	}

	if _, err := uc.Start(context.Background(), session.SessionID, "president-1"); !errors.Is(err, domainerrors.ErrSessionNotScheduled) {
		t.Fatalf("expected second start to fail with ErrSessionNotScheduled, got %v", err)
	}
}

func TestCompleteRecordsDurationAndGeneratesMinutes(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newLifecycle(store, scriptedQuorum{achieved: true, eligible: 4})

	session := scheduleBoard(t, uc, time.Now().Add(-time.Hour))
	if _, err := uc.Start(context.Background(), session.SessionID, "president-1"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	completed, err := uc.Complete(context.Background(), session.SessionID, "president-1")
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if completed.Status != entities.StatusCompleted || completed.EndTime == nil {
		t.Fatalf("expected completed session with end time, got %s", completed.Status)
	}
	if got := store.GeneratedMinutes(); len(got) != 1 || got[0] != session.SessionID {
		t.Fatalf("expected minutes generated for session, got %v", got)
	}
}

func TestCancelForbiddenOnceCompleted(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newLifecycle(store, scriptedQuorum{achieved: true, eligible: 4})

	session := scheduleBoard(t, uc, time.Now().Add(-time.Hour))
	if _, err := uc.Start(context.Background(), session.SessionID, "president-1"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := uc.Complete(context.Background(), session.SessionID, "president-1"); err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if _, err := uc.Cancel(context.Background(), session.SessionID, "storm", "clerk-1"); !errors.Is(err, domainerrors.ErrSessionAlreadyClosed) {
		t.Fatalf("expected ErrSessionAlreadyClosed, got %v", err)
	}
}

func TestPostponeGuardOnLiveAndCompleted(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newLifecycle(store, scriptedQuorum{achieved: true, eligible: 4})

	session := scheduleBoard(t, uc, time.Now().Add(-time.Hour))
	if _, err := uc.Start(context.Background(), session.SessionID, "president-1"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := uc.Postpone(context.Background(), PostponeSessionCommand{
		SessionID: session.SessionID,
		Reason:    "venue unavailable",
		Actor:     "clerk-1",
	}); !errors.Is(err, domainerrors.ErrSessionNotPostponable) {
		t.Fatalf("expected ErrSessionNotPostponable on live session, got %v", err)
	}

	if _, err := uc.Complete(context.Background(), session.SessionID, "president-1"); err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if _, err := uc.Postpone(context.Background(), PostponeSessionCommand{
		SessionID: session.SessionID,
		Reason:    "venue unavailable",
		Actor:     "clerk-1",
	}); !errors.Is(err, domainerrors.ErrSessionNotPostponable) {
		t.Fatalf("expected ErrSessionNotPostponable on completed session, got %v", err)
	}
}

func TestPostponeKeepsOriginalDateAndRescheduleReturnsToScheduled(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newLifecycle(store, scriptedQuorum{achieved: true, eligible: 4})

	originalDate := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)
	session := scheduleBoard(t, uc, originalDate)

	newDate := originalDate.AddDate(0, 0, 14)
	postponed, err := uc.Postpone(context.Background(), PostponeSessionCommand{
		SessionID: session.SessionID,
		NewDate:   &newDate,
		Reason:    "quorum unlikely",
		Actor:     "clerk-1",
	})
	if err != nil {
		t.Fatalf("postpone session: %v", err)
	}
	if postponed.Status != entities.StatusPostponed {
		t.Fatalf("expected postponed status, got %s", postponed.Status)
	}
	if postponed.Postponement == nil || !postponed.Postponement.OriginalDate.Equal(originalDate) {
		t.Fatal("expected original date preserved on postponement record")
	}
	if !postponed.ScheduledAt.Equal(newDate) {
		t.Fatalf("expected scheduled date moved to %s, got %s", newDate, postponed.ScheduledAt)
	}

	rescheduled, err := uc.Reschedule(context.Background(), session.SessionID, newDate.AddDate(0, 0, 7), "clerk-1")
	if err != nil {
		t.Fatalf("reschedule session: %v", err)
	}
	if rescheduled.Status != entities.StatusScheduled {
		t.Fatalf("expected scheduled status after reschedule, got %s", rescheduled.Status)
	}
}

func TestTransitionsEmitAuditEvents(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newLifecycle(store, scriptedQuorum{achieved: true, eligible: 4})

	session := scheduleBoard(t, uc, time.Now().Add(-time.Hour))
	if _, err := uc.Start(context.Background(), session.SessionID, "president-1"); err != nil {
		t.Fatalf("start session: %v", err)
	}

	kinds := make(map[string]bool)
	for _, event := range store.AuditEvents() {
		kinds[event.Kind] = true
	}
	if !kinds["session_scheduled"] || !kinds["session_started"] {
		t.Fatalf("expected scheduled and started audit events, got %v", kinds)
	}
}
