package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "plenum/contexts/governance/participant-registry/application"
	"plenum/contexts/governance/participant-registry/domain/entities"
	domainerrors "plenum/contexts/governance/participant-registry/domain/errors"
	"plenum/contexts/governance/participant-registry/ports"
)

const defaultChainBound = 4

// AddParticipantCommand registers an identity on a session roster.
type AddParticipantCommand struct {
	SessionID       string
	IdentityID      string
	Role            entities.Role
	HasVotingRights bool
	Actor           string
}

// AttendanceCommand covers present/absent/left transitions.
type AttendanceCommand struct {
	ParticipantID string
	Note          string
	Actor         string
}

// InvitationResponseCommand records the invitee's reply.
type InvitationResponseCommand struct {
	ParticipantID string
	Response      entities.ResponseStatus
	Note          string
}

// DelegateCommand transfers voting rights to another participant of the
// same session, optionally backed by a proxy artifact reference.
type DelegateCommand struct {
	ParticipantID    string
	DelegateIdentity string
	ProxyArtifact    string
	Actor            string
}

// RegistryUseCase owns roster mutations: attendance, invitation responses
// and delegation. Quorum and effective-rights reads live in queries.
type RegistryUseCase struct {
	Participants ports.ParticipantRepository
	Identities   ports.IdentityProvider
	Audit        ports.AuditSink
	Notifier     ports.Notifier
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	// ChainBound caps the delegation-chain walk during cycle detection.
	// Values below 2 are raised to 2 so a direct A->B->A cycle is always
	// rejected.
	ChainBound int
	Logger     *slog.Logger
}

func (uc RegistryUseCase) AddParticipant(ctx context.Context, cmd AddParticipantCommand) (entities.Participant, error) {
	logger := application.ResolveLogger(uc.Logger)
	sessionID := strings.TrimSpace(cmd.SessionID)
	identityID := strings.TrimSpace(cmd.IdentityID)
	if sessionID == "" || identityID == "" || !cmd.Role.Valid() {
		logger.Warn("participant add validation failed",
			"event", "registry_participant_add_validation_failed",
			"module", "governance/participant-registry",
			"layer", "application",
			"session_id", sessionID,
			"identity_id", identityID,
			"role", string(cmd.Role),
		)
		return entities.Participant{}, domainerrors.ErrInvalidParticipantInput
	}

	if _, found, err := uc.Participants.GetByIdentity(ctx, sessionID, identityID); err != nil {
		return entities.Participant{}, err
	} else if found {
		return entities.Participant{}, domainerrors.ErrParticipantAlreadyExists
	}

	displayName := identityID
	if uc.Identities != nil {
		identity, err := uc.Identities.Resolve(ctx, identityID)
		if err != nil {
			logger.Warn("identity resolution failed; keeping identity id as display name",
				"event", "registry_identity_resolve_failed",
				"module", "governance/participant-registry",
				"layer", "application",
				"identity_id", identityID,
				"error", err.Error(),
			)
		} else {
			if !identity.Eligible {
				return entities.Participant{}, domainerrors.ErrIdentityNotEligible
			}
			displayName = identity.DisplayName
		}
	}

	now := uc.now()
	participantID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Participant{}, err
	}
	participant := entities.Participant{
		ParticipantID:   participantID,
		SessionID:       sessionID,
		IdentityID:      identityID,
		DisplayName:     displayName,
		Role:            cmd.Role,
		HasVotingRights: cmd.HasVotingRights,
		Attendance:      entities.AttendanceInvited,
		Response:        entities.ResponsePending,
		InvitedAt:       now,
		InvitedBy:       strings.TrimSpace(cmd.Actor),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.Participants.Save(ctx, participant); err != nil {
		return entities.Participant{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       strings.TrimSpace(cmd.Actor),
		SubjectKind: "participant",
		SubjectID:   participant.ParticipantID,
		Kind:        "participant_invited",
		Description: "participant invited to session",
		NewValue:    string(entities.AttendanceInvited),
		Metadata: map[string]any{
			"session_id":        sessionID,
			"identity_id":       identityID,
			"role":              string(cmd.Role),
			"has_voting_rights": cmd.HasVotingRights,
		},
		OccurredAt: now,
	})
	uc.notify(ctx, []string{identityID}, "session_invitation", map[string]any{
		"session_id":     sessionID,
		"participant_id": participant.ParticipantID,
		"role":           string(cmd.Role),
	})
	logger.Info("participant added",
		"event", "registry_participant_added",
		"module", "governance/participant-registry",
		"layer", "application",
		"participant_id", participant.ParticipantID,
		"session_id", sessionID,
		"role", string(cmd.Role),
	)
	return participant, nil
}

func (uc RegistryUseCase) MarkPresent(ctx context.Context, cmd AttendanceCommand) (entities.Participant, error) {
	return uc.transitionAttendance(ctx, cmd, func(p *entities.Participant, now time.Time) error {
		p.Attendance = entities.AttendancePresent
		p.JoinedAt = &now
		return nil
	}, "participant_joined", "participant marked present")
}

func (uc RegistryUseCase) MarkAbsent(ctx context.Context, cmd AttendanceCommand) (entities.Participant, error) {
	return uc.transitionAttendance(ctx, cmd, func(p *entities.Participant, _ time.Time) error {
		p.Attendance = entities.AttendanceAbsent
		p.AttendanceNote = strings.TrimSpace(cmd.Note)
		return nil
	}, "participant_absent", "participant marked absent")
}

// MarkLeft requires a prior present timestamp and records the connection
// duration observed between joining and leaving.
func (uc RegistryUseCase) MarkLeft(ctx context.Context, cmd AttendanceCommand) (entities.Participant, error) {
	return uc.transitionAttendance(ctx, cmd, func(p *entities.Participant, now time.Time) error {
		if p.JoinedAt == nil {
			return domainerrors.ErrParticipantNotPresent
		}
		p.Attendance = entities.AttendanceLeftEarly
		p.LeftAt = &now
		p.ConnectionMinutes = int(now.Sub(*p.JoinedAt).Minutes())
		p.AttendanceNote = strings.TrimSpace(cmd.Note)
		return nil
	}, "participant_left", "participant left the session early")
}

func (uc RegistryUseCase) RespondToInvitation(ctx context.Context, cmd InvitationResponseCommand) (entities.Participant, error) {
	logger := application.ResolveLogger(uc.Logger)
	switch cmd.Response {
	case entities.ResponseAccepted, entities.ResponseDeclined, entities.ResponseTentative:
	default:
		return entities.Participant{}, domainerrors.ErrInvalidInvitationResponse
	}

	participant, err := uc.Participants.Get(ctx, strings.TrimSpace(cmd.ParticipantID))
	if err != nil {
		return entities.Participant{}, err
	}

	now := uc.now()
	participant.Response = cmd.Response
	participant.RespondedAt = &now
	if note := strings.TrimSpace(cmd.Note); note != "" {
		participant.AttendanceNote = note
	}
	// Tentative replies leave attendance untouched so the invitation can
	// still be answered definitively later.
	switch cmd.Response {
	case entities.ResponseAccepted:
		participant.Attendance = entities.AttendanceConfirmed
	case entities.ResponseDeclined:
		participant.Attendance = entities.AttendanceDeclined
	}
	participant.UpdatedAt = now
	if err := uc.Participants.Save(ctx, participant); err != nil {
		return entities.Participant{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       participant.IdentityID,
		SubjectKind: "participant",
		SubjectID:   participant.ParticipantID,
		Kind:        "invitation_response",
		Description: "invitation response recorded",
		NewValue:    string(cmd.Response),
		Metadata: map[string]any{
			"session_id": participant.SessionID,
			"note":       strings.TrimSpace(cmd.Note),
		},
		OccurredAt: now,
	})
	logger.Info("invitation response recorded",
		"event", "registry_invitation_response",
		"module", "governance/participant-registry",
		"layer", "application",
		"participant_id", participant.ParticipantID,
		"response", string(cmd.Response),
	)
	return participant, nil
}

// DelegateVotingRights points the participant's weight at another identity
// on the same session roster. The delegation chain is walked up to
// ChainBound hops; closing a loop anywhere inside the bound is rejected.
func (uc RegistryUseCase) DelegateVotingRights(ctx context.Context, cmd DelegateCommand) (entities.Participant, error) {
	logger := application.ResolveLogger(uc.Logger)
	participant, err := uc.Participants.Get(ctx, strings.TrimSpace(cmd.ParticipantID))
	if err != nil {
		return entities.Participant{}, err
	}
	if !participant.HasVotingRights {
		return entities.Participant{}, domainerrors.ErrVotingRightsRequired
	}
	delegateIdentity := strings.TrimSpace(cmd.DelegateIdentity)
	if delegateIdentity == "" || delegateIdentity == participant.IdentityID {
		return entities.Participant{}, domainerrors.ErrInvalidParticipantInput
	}

	delegate, found, err := uc.Participants.GetByIdentity(ctx, participant.SessionID, delegateIdentity)
	if err != nil {
		return entities.Participant{}, err
	}
	if !found {
		return entities.Participant{}, domainerrors.ErrDelegateNotInSession
	}

	roster, err := uc.Participants.ListBySession(ctx, participant.SessionID)
	if err != nil {
		return entities.Participant{}, err
	}
	if uc.closesCycle(participant, delegate, roster) {
		logger.Warn("delegation rejected, cycle detected",
			"event", "registry_delegation_cycle_rejected",
			"module", "governance/participant-registry",
			"layer", "application",
			"participant_id", participant.ParticipantID,
			"delegate_identity", delegateIdentity,
		)
		return entities.Participant{}, domainerrors.ErrDelegationCycle
	}

	now := uc.now()
	participant.DelegateIdentity = delegateIdentity
	participant.ProxyArtifact = strings.TrimSpace(cmd.ProxyArtifact)
	participant.UpdatedAt = now
	if err := uc.Participants.Save(ctx, participant); err != nil {
		return entities.Participant{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       strings.TrimSpace(cmd.Actor),
		SubjectKind: "participant",
		SubjectID:   participant.ParticipantID,
		Kind:        "voting_rights_delegated",
		Description: "voting rights delegated",
		NewValue:    delegateIdentity,
		Metadata: map[string]any{
			"session_id":     participant.SessionID,
			"delegate_name":  delegate.DisplayName,
			"proxy_artifact": participant.ProxyArtifact,
		},
		OccurredAt: now,
	})
	uc.notify(ctx, []string{delegateIdentity}, "voting_rights_delegated", map[string]any{
		"session_id": participant.SessionID,
		"from":       participant.DisplayName,
	})
	logger.Info("voting rights delegated",
		"event", "registry_voting_rights_delegated",
		"module", "governance/participant-registry",
		"layer", "application",
		"participant_id", participant.ParticipantID,
		"delegate_identity", delegateIdentity,
	)
	return participant, nil
}

func (uc RegistryUseCase) RevokeDelegation(ctx context.Context, participantID string, actor string) (entities.Participant, error) {
	logger := application.ResolveLogger(uc.Logger)
	participant, err := uc.Participants.Get(ctx, strings.TrimSpace(participantID))
	if err != nil {
		return entities.Participant{}, err
	}
	if !participant.HasDelegated() {
		return entities.Participant{}, domainerrors.ErrNoActiveDelegation
	}

	now := uc.now()
	previousDelegate := participant.DelegateIdentity
	participant.DelegateIdentity = ""
	participant.ProxyArtifact = ""
	participant.UpdatedAt = now
	if err := uc.Participants.Save(ctx, participant); err != nil {
		return entities.Participant{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       strings.TrimSpace(actor),
		SubjectKind: "participant",
		SubjectID:   participant.ParticipantID,
		Kind:        "voting_rights_revoked",
		Description: "delegation revoked",
		OldValue:    previousDelegate,
		Metadata: map[string]any{
			"session_id": participant.SessionID,
		},
		OccurredAt: now,
	})
	logger.Info("delegation revoked",
		"event", "registry_delegation_revoked",
		"module", "governance/participant-registry",
		"layer", "application",
		"participant_id", participant.ParticipantID,
		"previous_delegate", previousDelegate,
	)
	return participant, nil
}

func (uc RegistryUseCase) transitionAttendance(
	ctx context.Context,
	cmd AttendanceCommand,
	apply func(*entities.Participant, time.Time) error,
	auditKind string,
	description string,
) (entities.Participant, error) {
	logger := application.ResolveLogger(uc.Logger)
	participant, err := uc.Participants.Get(ctx, strings.TrimSpace(cmd.ParticipantID))
	if err != nil {
		return entities.Participant{}, err
	}

	now := uc.now()
	previous := participant.Attendance
	if err := apply(&participant, now); err != nil {
		return entities.Participant{}, err
	}
	participant.UpdatedAt = now
	if err := uc.Participants.Save(ctx, participant); err != nil {
		return entities.Participant{}, err
	}

	uc.appendAudit(ctx, ports.AuditEvent{
		Actor:       strings.TrimSpace(cmd.Actor),
		SubjectKind: "participant",
		SubjectID:   participant.ParticipantID,
		Kind:        auditKind,
		Description: description,
		OldValue:    string(previous),
		NewValue:    string(participant.Attendance),
		Metadata: map[string]any{
			"session_id": participant.SessionID,
			"note":       strings.TrimSpace(cmd.Note),
		},
		OccurredAt: now,
	})
	logger.Info("attendance updated",
		"event", "registry_attendance_updated",
		"module", "governance/participant-registry",
		"layer", "application",
		"participant_id", participant.ParticipantID,
		"from", string(previous),
		"to", string(participant.Attendance),
	)
	return participant, nil
}

// closesCycle walks the delegation chain starting at the proposed delegate.
// Reaching the delegating participant's identity within the bound means the
// new edge would close a loop.
func (uc RegistryUseCase) closesCycle(from entities.Participant, delegate entities.Participant, roster []entities.Participant) bool {
	bound := uc.ChainBound
	if bound < 2 {
		bound = defaultChainBound
	}
	byIdentity := make(map[string]entities.Participant, len(roster))
	for _, p := range roster {
		byIdentity[p.IdentityID] = p
	}

	current := delegate
	for hop := 1; hop <= bound; hop++ {
		if current.IdentityID == from.IdentityID {
			return true
		}
		if !current.HasDelegated() {
			return false
		}
		next, ok := byIdentity[current.DelegateIdentity]
		if !ok {
			return false
		}
		current = next
	}
	return false
}

func (uc RegistryUseCase) appendAudit(ctx context.Context, event ports.AuditEvent) {
	if uc.Audit == nil {
		return
	}
	if err := uc.Audit.Append(ctx, event); err != nil {
		application.ResolveLogger(uc.Logger).Warn("audit append failed",
			"event", "registry_audit_append_failed",
			"module", "governance/participant-registry",
			"layer", "application",
			"audit_kind", event.Kind,
			"error", err.Error(),
		)
	}
}

func (uc RegistryUseCase) notify(ctx context.Context, recipients []string, kind string, payload map[string]any) {
	if uc.Notifier == nil || len(recipients) == 0 {
		return
	}
	if err := uc.Notifier.Notify(ctx, recipients, kind, payload); err != nil {
		application.ResolveLogger(uc.Logger).Warn("notification dispatch failed",
			"event", "registry_notify_failed",
			"module", "governance/participant-registry",
			"layer", "application",
			"notification_kind", kind,
			"error", err.Error(),
		)
	}
}

func (uc RegistryUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
