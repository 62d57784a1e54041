package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "plenum/contexts/governance/session-lifecycle/application"
	"plenum/contexts/governance/session-lifecycle/domain/entities"
	domainerrors "plenum/contexts/governance/session-lifecycle/domain/errors"
	"plenum/contexts/governance/session-lifecycle/ports"
)

// ScheduleSessionCommand creates a session in the scheduled state. Optional
// fields left nil fall back to the meeting type defaults.
type ScheduleSessionCommand struct {
	EntityID         string
	MeetingType      entities.MeetingType
	Title            string
	Description      string
	SessionNumber    string
	FinancialYear    string
	ScheduledAt      time.Time
	Timezone         string
	Location         string
	QuorumRequired   *int
	IsPublic         *bool
	RecordingEnabled *bool
	PresidentID      string
	SecretaryID      string
	Actor            string
}

type PostponeSessionCommand struct {
	SessionID string
	NewDate   *time.Time
	Reason    string
	Actor     string
}

// LifecycleUseCase owns the session state machine. Every transition runs
// inside the repository's per-session critical section so the guard check
// and the status write are atomic under concurrent callers.
type LifecycleUseCase struct {
	Sessions   ports.SessionRepository
	Quorum     ports.QuorumChecker
	Minutes    ports.MinutesGenerator
	Audit      ports.AuditSink
	Notifier   ports.Notifier
	Recipients ports.RecipientResolver
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc LifecycleUseCase) Schedule(ctx context.Context, cmd ScheduleSessionCommand) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	if title == "" || !entities.ValidMeetingType(cmd.MeetingType) || cmd.ScheduledAt.IsZero() {
		logger.Warn("session schedule validation failed",
			"event", "lifecycle_schedule_validation_failed",
			"module", "governance/session-lifecycle",
			"layer", "application",
			"meeting_type", string(cmd.MeetingType),
		)
		return entities.Session{}, domainerrors.ErrInvalidSessionInput
	}

	defaults := entities.DefaultsForType(cmd.MeetingType)
	quorum := defaults.QuorumRequired
	if cmd.QuorumRequired != nil {
		quorum = *cmd.QuorumRequired
	}
	if quorum < 1 {
		return entities.Session{}, domainerrors.ErrInvalidSessionInput
	}
	isPublic := defaults.IsPublic
	if cmd.IsPublic != nil {
		isPublic = *cmd.IsPublic
	}
	recording := defaults.RecordingEnabled
	if cmd.RecordingEnabled != nil {
		recording = *cmd.RecordingEnabled
	}

	checklist := make([]entities.ComplianceItem, 0, len(defaults.LegalRequirements))
	for _, requirement := range defaults.LegalRequirements {
		checklist = append(checklist, entities.ComplianceItem{Requirement: requirement})
	}

	now := uc.now()
	sessionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Session{}, err
	}
	session := entities.Session{
		SessionID:           sessionID,
		EntityID:            strings.TrimSpace(cmd.EntityID),
		MeetingType:         cmd.MeetingType,
		Title:               title,
		Description:         strings.TrimSpace(cmd.Description),
		SessionNumber:       strings.TrimSpace(cmd.SessionNumber),
		FinancialYear:       strings.TrimSpace(cmd.FinancialYear),
		ScheduledAt:         cmd.ScheduledAt.UTC(),
		Timezone:            strings.TrimSpace(cmd.Timezone),
		Location:            strings.TrimSpace(cmd.Location),
		Status:              entities.StatusScheduled,
		IsPublic:            isPublic,
		RecordingEnabled:    recording,
		QuorumRequired:      quorum,
		PresidentID:         strings.TrimSpace(cmd.PresidentID),
		SecretaryID:         strings.TrimSpace(cmd.SecretaryID),
		CreatedBy:           strings.TrimSpace(cmd.Actor),
		LegalRequirements:   defaults.LegalRequirements,
		ComplianceChecklist: checklist,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := uc.Sessions.Create(ctx, session); err != nil {
		return entities.Session{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       session.CreatedBy,
		SubjectKind: "session",
		SubjectID:   session.SessionID,
		Kind:        "session_scheduled",
		Description: "session scheduled",
		NewValue:    string(entities.StatusScheduled),
		Metadata: map[string]any{
			"meeting_type":    string(session.MeetingType),
			"scheduled_at":    session.ScheduledAt,
			"quorum_required": session.QuorumRequired,
		},
		OccurredAt: now,
	})
	logger.Info("session scheduled",
		"event", "lifecycle_session_scheduled",
		"module", "governance/session-lifecycle",
		"layer", "application",
		"session_id", session.SessionID,
		"meeting_type", string(session.MeetingType),
	)
	return session, nil
}

// Start moves a scheduled session live. The quorum check runs inside the
// per-session critical section so two concurrent starts cannot both pass
// the gate.
func (uc LifecycleUseCase) Start(ctx context.Context, sessionID string, actor string) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	session, err := uc.Sessions.Transition(ctx, strings.TrimSpace(sessionID), func(s *entities.Session) error {
		if s.Status != entities.StatusScheduled {
			return domainerrors.ErrSessionNotScheduled
		}
		if s.ScheduledAt.After(now) {
			return domainerrors.ErrSessionNotStartable
		}
		achieved, eligible, err := uc.Quorum.HasQuorum(ctx, s.SessionID, s.QuorumRequired)
		if err != nil {
			return err
		}
		if !achieved {
			logger.Warn("session start rejected, quorum not met",
				"event", "lifecycle_quorum_not_met",
				"module", "governance/session-lifecycle",
				"layer", "application",
				"session_id", s.SessionID,
				"eligible", eligible,
				"quorum_required", s.QuorumRequired,
			)
			return domainerrors.ErrQuorumNotMet
		}
		snapshot := achieved
		s.Status = entities.StatusLive
		s.StartTime = &now
		s.QuorumAchieved = &snapshot
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entities.Session{}, err
	}

	uc.recordTransition(ctx, session, actor, "session_started", "session started",
		string(entities.StatusScheduled), now, map[string]any{"start_time": now})
	return session, nil
}

// Complete ends a live session. Minutes generation is best effort and never
// rolls the transition back.
func (uc LifecycleUseCase) Complete(ctx context.Context, sessionID string, actor string) (entities.Session, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	session, err := uc.Sessions.Transition(ctx, strings.TrimSpace(sessionID), func(s *entities.Session) error {
		if s.Status != entities.StatusLive {
			return domainerrors.ErrSessionNotLive
		}
		s.Status = entities.StatusCompleted
		s.EndTime = &now
		if s.RecordingEnabled && s.StartTime != nil {
			s.RecordingDurationMinutes = int(now.Sub(*s.StartTime).Minutes())
		}
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entities.Session{}, err
	}

	uc.recordTransition(ctx, session, actor, "session_completed", "session completed",
		string(entities.StatusLive), now, map[string]any{
			"end_time":         now,
			"duration_minutes": session.DurationMinutes(),
		})

	if uc.Minutes != nil {
		if err := uc.Minutes.Generate(ctx, session); err != nil {
			logger.Warn("minutes generation failed",
				"event", "lifecycle_minutes_generation_failed",
				"module", "governance/session-lifecycle",
				"layer", "application",
				"session_id", session.SessionID,
				"error", err.Error(),
			)
		}
	}
	return session, nil
}

func (uc LifecycleUseCase) Cancel(ctx context.Context, sessionID string, reason string, actor string) (entities.Session, error) {
	now := uc.now()
	var previous entities.Status
	session, err := uc.Sessions.Transition(ctx, strings.TrimSpace(sessionID), func(s *entities.Session) error {
		if s.Status != entities.StatusScheduled && s.Status != entities.StatusLive {
			return domainerrors.ErrSessionAlreadyClosed
		}
		previous = s.Status
		s.Status = entities.StatusCancelled
		s.Cancellation = &entities.Cancellation{
			Reason:      strings.TrimSpace(reason),
			CancelledBy: strings.TrimSpace(actor),
			CancelledAt: now,
		}
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entities.Session{}, err
	}

	uc.recordTransition(ctx, session, actor, "session_cancelled", "session cancelled",
		string(previous), now, map[string]any{"reason": strings.TrimSpace(reason)})
	return session, nil
}

// Postpone defers a scheduled session, keeping the original date. A live or
// completed session can never be postponed.
func (uc LifecycleUseCase) Postpone(ctx context.Context, cmd PostponeSessionCommand) (entities.Session, error) {
	now := uc.now()
	var previous entities.Status
	session, err := uc.Sessions.Transition(ctx, strings.TrimSpace(cmd.SessionID), func(s *entities.Session) error {
		if s.Status != entities.StatusScheduled && s.Status != entities.StatusPostponed {
			return domainerrors.ErrSessionNotPostponable
		}
		previous = s.Status
		postponement := &entities.Postponement{
			Reason:       strings.TrimSpace(cmd.Reason),
			OriginalDate: s.ScheduledAt,
			PostponedBy:  strings.TrimSpace(cmd.Actor),
			PostponedAt:  now,
		}
		if cmd.NewDate != nil {
			newDate := cmd.NewDate.UTC()
			postponement.NewDate = &newDate
			s.ScheduledAt = newDate
		}
		s.Status = entities.StatusPostponed
		s.Postponement = postponement
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entities.Session{}, err
	}

	uc.recordTransition(ctx, session, cmd.Actor, "session_postponed", "session postponed",
		string(previous), now, map[string]any{
			"reason":        strings.TrimSpace(cmd.Reason),
			"original_date": session.Postponement.OriginalDate,
		})
	return session, nil
}

// Reschedule returns a postponed session to the scheduled state, the only
// backward transition the state machine allows.
func (uc LifecycleUseCase) Reschedule(ctx context.Context, sessionID string, newDate time.Time, actor string) (entities.Session, error) {
	if newDate.IsZero() {
		return entities.Session{}, domainerrors.ErrInvalidSessionInput
	}
	now := uc.now()
	session, err := uc.Sessions.Transition(ctx, strings.TrimSpace(sessionID), func(s *entities.Session) error {
		if s.Status != entities.StatusPostponed {
			return domainerrors.ErrSessionNotPostponed
		}
		s.Status = entities.StatusScheduled
		s.ScheduledAt = newDate.UTC()
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entities.Session{}, err
	}

	uc.recordTransition(ctx, session, actor, "session_rescheduled", "postponed session rescheduled",
		string(entities.StatusPostponed), now, map[string]any{"scheduled_at": session.ScheduledAt})
	return session, nil
}

// MarkComplianceItem flags one legal requirement of the session checklist.
func (uc LifecycleUseCase) MarkComplianceItem(ctx context.Context, sessionID string, index int, completed bool, actor string) (entities.Session, error) {
	now := uc.now()
	session, err := uc.Sessions.Transition(ctx, strings.TrimSpace(sessionID), func(s *entities.Session) error {
		if index < 0 || index >= len(s.ComplianceChecklist) {
			return domainerrors.ErrInvalidSessionInput
		}
		s.ComplianceChecklist[index].Completed = completed
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entities.Session{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       strings.TrimSpace(actor),
		SubjectKind: "session",
		SubjectID:   session.SessionID,
		Kind:        "compliance_item_updated",
		Description: "compliance checklist item updated",
		NewValue:    session.ComplianceChecklist[index].Requirement,
		Metadata: map[string]any{
			"index":     index,
			"completed": completed,
		},
		OccurredAt: now,
	})
	return session, nil
}

func (uc LifecycleUseCase) recordTransition(
	ctx context.Context,
	session entities.Session,
	actor string,
	kind string,
	description string,
	previous string,
	now time.Time,
	metadata map[string]any,
) {
	logger := application.ResolveLogger(uc.Logger)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["meeting_type"] = string(session.MeetingType)

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       strings.TrimSpace(actor),
		SubjectKind: "session",
		SubjectID:   session.SessionID,
		Kind:        kind,
		Description: description,
		OldValue:    previous,
		NewValue:    string(session.Status),
		Metadata:    metadata,
		OccurredAt:  now,
	})

	if uc.Notifier != nil && uc.Recipients != nil {
		recipients, err := uc.Recipients.RecipientsForSession(ctx, session.SessionID)
		if err != nil {
			logger.Warn("recipient resolution failed",
				"event", "lifecycle_recipients_failed",
				"module", "governance/session-lifecycle",
				"layer", "application",
				"session_id", session.SessionID,
				"error", err.Error(),
			)
		} else if len(recipients) > 0 {
			if err := uc.Notifier.Notify(ctx, recipients, kind, map[string]any{
				"session_id": session.SessionID,
				"title":      session.Title,
				"status":     string(session.Status),
			}); err != nil {
				logger.Warn("notification dispatch failed",
					"event", "lifecycle_notify_failed",
					"module", "governance/session-lifecycle",
					"layer", "application",
					"session_id", session.SessionID,
					"notification_kind", kind,
					"error", err.Error(),
				)
			}
		}
	}

	logger.Info("session transition recorded",
		"event", "lifecycle_"+kind,
		"module", "governance/session-lifecycle",
		"layer", "application",
		"session_id", session.SessionID,
		"from", previous,
		"to", string(session.Status),
	)
}

func (uc LifecycleUseCase) appendAudit(ctx context.Context, event ports.AuditEvent) {
	if uc.Audit == nil {
		return
	}
	if err := uc.Audit.Append(ctx, event); err != nil {
		application.ResolveLogger(uc.Logger).Warn("audit append failed",
			"event", "lifecycle_audit_append_failed",
			"module", "governance/session-lifecycle",
			"layer", "application",
			"audit_kind", event.Kind,
			"error", err.Error(),
		)
	}
}

func (uc LifecycleUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
