package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"plenum/contexts/governance/session-lifecycle/domain/entities"
	domainerrors "plenum/contexts/governance/session-lifecycle/domain/errors"
	"plenum/contexts/governance/session-lifecycle/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Create(ctx context.Context, session entities.Session) error {
	row, err := sessionModelFromEntity(session)
	if err != nil {
		return r.logError("lifecycle_repo_encode_session_failed", err, "session_id", session.SessionID)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrVersionConflict
		}
		return r.logError("lifecycle_repo_create_session_failed", err, "session_id", row.ID)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, sessionID string) (entities.Session, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(sessionID)).
		Where("deleted_at IS NULL").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Session{}, domainerrors.ErrSessionNotFound
		}
		return entities.Session{}, r.logError("lifecycle_repo_get_session_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListByEntity(ctx context.Context, entityID string) ([]entities.Session, error) {
	var rows []sessionModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ?", strings.TrimSpace(entityID)).
		Where("deleted_at IS NULL").
		Order("scheduled_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("lifecycle_repo_list_by_entity_failed", err,
			"entity_id", strings.TrimSpace(entityID),
		)
	}
	items := make([]entities.Session, 0, len(rows))
	for _, row := range rows {
		session, err := row.toEntity()
		if err != nil {
			return nil, r.logError("lifecycle_repo_decode_session_failed", err, "session_id", row.ID)
		}
		items = append(items, session)
	}
	return items, nil
}

// Transition locks the session row for update so the guard check inside
// apply and the subsequent write happen atomically.
func (r *Repository) Transition(ctx context.Context, sessionID string, apply func(*entities.Session) error) (entities.Session, error) {
	var updated entities.Session
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(sessionID)).
			Where("deleted_at IS NULL").
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrSessionNotFound
			}
			return err
		}

		session, err := row.toEntity()
		if err != nil {
			return err
		}
		if err := apply(&session); err != nil {
			return err
		}
		session.Version++

		next, err := sessionModelFromEntity(session)
		if err != nil {
			return err
		}
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated = session
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionNotFound) ||
			errors.Is(err, domainerrors.ErrSessionNotScheduled) ||
			errors.Is(err, domainerrors.ErrSessionNotStartable) ||
			errors.Is(err, domainerrors.ErrSessionNotLive) ||
			errors.Is(err, domainerrors.ErrSessionAlreadyClosed) ||
			errors.Is(err, domainerrors.ErrSessionNotPostponable) ||
			errors.Is(err, domainerrors.ErrSessionNotPostponed) ||
			errors.Is(err, domainerrors.ErrQuorumNotMet) ||
			errors.Is(err, domainerrors.ErrInvalidSessionInput) {
			return entities.Session{}, err
		}
		return entities.Session{}, r.logError("lifecycle_repo_transition_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return updated, nil
}

// Append writes to the shared audit_events table.
func (r *Repository) Append(ctx context.Context, event ports.AuditEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return r.logError("lifecycle_repo_audit_marshal_failed", err, "audit_kind", event.Kind)
	}
	row := auditEventModel{
		ID:          uuid.NewString(),
		Actor:       strings.TrimSpace(event.Actor),
		SubjectKind: strings.TrimSpace(event.SubjectKind),
		SubjectID:   strings.TrimSpace(event.SubjectID),
		Kind:        strings.TrimSpace(event.Kind),
		Description: event.Description,
		OldValue:    event.OldValue,
		NewValue:    event.NewValue,
		Metadata:    metadata,
		OccurredAt:  event.OccurredAt.UTC(),
	}
	if row.OccurredAt.IsZero() {
		row.OccurredAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("lifecycle_repo_audit_append_failed", err, "audit_kind", event.Kind)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/session-lifecycle",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("session repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type sessionModel struct {
	ID                       string     `gorm:"column:id;primaryKey"`
	EntityID                 string     `gorm:"column:entity_id"`
	MeetingType              string     `gorm:"column:meeting_type"`
	Title                    string     `gorm:"column:title"`
	Description              string     `gorm:"column:description"`
	SessionNumber            string     `gorm:"column:session_number"`
	FinancialYear            string     `gorm:"column:financial_year"`
	ScheduledAt              time.Time  `gorm:"column:scheduled_at"`
	StartTime                *time.Time `gorm:"column:start_time"`
	EndTime                  *time.Time `gorm:"column:end_time"`
	Timezone                 string     `gorm:"column:timezone"`
	Location                 string     `gorm:"column:location"`
	Status                   string     `gorm:"column:status"`
	IsPublic                 bool       `gorm:"column:is_public"`
	RecordingEnabled         bool       `gorm:"column:recording_enabled"`
	RecordingDurationMinutes int        `gorm:"column:recording_duration_minutes"`
	QuorumRequired           int        `gorm:"column:quorum_required"`
	QuorumAchieved           *bool      `gorm:"column:quorum_achieved"`
	PresidentID              string     `gorm:"column:president_id"`
	SecretaryID              string     `gorm:"column:secretary_id"`
	CreatedBy                string     `gorm:"column:created_by"`
	CancellationReason       string     `gorm:"column:cancellation_reason"`
	CancelledBy              string     `gorm:"column:cancelled_by"`
	CancelledAt              *time.Time `gorm:"column:cancelled_at"`
	PostponementReason       string     `gorm:"column:postponement_reason"`
	OriginalDate             *time.Time `gorm:"column:original_date"`
	PostponedTo              *time.Time `gorm:"column:postponed_to"`
	PostponedBy              string     `gorm:"column:postponed_by"`
	PostponedAt              *time.Time `gorm:"column:postponed_at"`
	LegalRequirements        []byte     `gorm:"column:legal_requirements"`
	ComplianceChecklist      []byte     `gorm:"column:compliance_checklist"`
	Version                  int        `gorm:"column:version"`
	CreatedAt                time.Time  `gorm:"column:created_at"`
	UpdatedAt                time.Time  `gorm:"column:updated_at"`
	DeletedAt                *time.Time `gorm:"column:deleted_at"`
}

func (sessionModel) TableName() string {
	return "sessions"
}

type complianceItemRow struct {
	Requirement string `json:"requirement"`
	Completed   bool   `json:"completed"`
}

func sessionModelFromEntity(session entities.Session) (sessionModel, error) {
	requirements, err := json.Marshal(session.LegalRequirements)
	if err != nil {
		return sessionModel{}, err
	}
	checklist := make([]complianceItemRow, 0, len(session.ComplianceChecklist))
	for _, item := range session.ComplianceChecklist {
		checklist = append(checklist, complianceItemRow{Requirement: item.Requirement, Completed: item.Completed})
	}
	checklistJSON, err := json.Marshal(checklist)
	if err != nil {
		return sessionModel{}, err
	}

	row := sessionModel{
		ID:                       strings.TrimSpace(session.SessionID),
		EntityID:                 strings.TrimSpace(session.EntityID),
		MeetingType:              string(session.MeetingType),
		Title:                    session.Title,
		Description:              session.Description,
		SessionNumber:            session.SessionNumber,
		FinancialYear:            session.FinancialYear,
		ScheduledAt:              session.ScheduledAt.UTC(),
		StartTime:                normalizeOptionalTime(session.StartTime),
		EndTime:                  normalizeOptionalTime(session.EndTime),
		Timezone:                 session.Timezone,
		Location:                 session.Location,
		Status:                   string(session.Status),
		IsPublic:                 session.IsPublic,
		RecordingEnabled:         session.RecordingEnabled,
		RecordingDurationMinutes: session.RecordingDurationMinutes,
		QuorumRequired:           session.QuorumRequired,
		QuorumAchieved:           session.QuorumAchieved,
		PresidentID:              strings.TrimSpace(session.PresidentID),
		SecretaryID:              strings.TrimSpace(session.SecretaryID),
		CreatedBy:                strings.TrimSpace(session.CreatedBy),
		LegalRequirements:        requirements,
		ComplianceChecklist:      checklistJSON,
		Version:                  session.Version,
		CreatedAt:                session.CreatedAt.UTC(),
		UpdatedAt:                session.UpdatedAt.UTC(),
		DeletedAt:                normalizeOptionalTime(session.DeletedAt),
	}
	if session.Cancellation != nil {
		cancelledAt := session.Cancellation.CancelledAt.UTC()
		row.CancellationReason = session.Cancellation.Reason
		row.CancelledBy = session.Cancellation.CancelledBy
		row.CancelledAt = &cancelledAt
	}
	if session.Postponement != nil {
		originalDate := session.Postponement.OriginalDate.UTC()
		postponedAt := session.Postponement.PostponedAt.UTC()
		row.PostponementReason = session.Postponement.Reason
		row.OriginalDate = &originalDate
		row.PostponedTo = normalizeOptionalTime(session.Postponement.NewDate)
		row.PostponedBy = session.Postponement.PostponedBy
		row.PostponedAt = &postponedAt
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m sessionModel) toEntity() (entities.Session, error) {
	var requirements []string
	if len(m.LegalRequirements) > 0 {
		if err := json.Unmarshal(m.LegalRequirements, &requirements); err != nil {
			return entities.Session{}, err
		}
	}
	var checklistRows []complianceItemRow
	if len(m.ComplianceChecklist) > 0 {
		if err := json.Unmarshal(m.ComplianceChecklist, &checklistRows); err != nil {
			return entities.Session{}, err
		}
	}
	checklist := make([]entities.ComplianceItem, 0, len(checklistRows))
	for _, item := range checklistRows {
		checklist = append(checklist, entities.ComplianceItem{Requirement: item.Requirement, Completed: item.Completed})
	}

	session := entities.Session{
		SessionID:                m.ID,
		EntityID:                 m.EntityID,
		MeetingType:              entities.MeetingType(m.MeetingType),
		Title:                    m.Title,
		Description:              m.Description,
		SessionNumber:            m.SessionNumber,
		FinancialYear:            m.FinancialYear,
		ScheduledAt:              m.ScheduledAt.UTC(),
		StartTime:                normalizeOptionalTime(m.StartTime),
		EndTime:                  normalizeOptionalTime(m.EndTime),
		Timezone:                 m.Timezone,
		Location:                 m.Location,
		Status:                   entities.Status(m.Status),
		IsPublic:                 m.IsPublic,
		RecordingEnabled:         m.RecordingEnabled,
		RecordingDurationMinutes: m.RecordingDurationMinutes,
		QuorumRequired:           m.QuorumRequired,
		QuorumAchieved:           m.QuorumAchieved,
		PresidentID:              m.PresidentID,
		SecretaryID:              m.SecretaryID,
		CreatedBy:                m.CreatedBy,
		LegalRequirements:        requirements,
		ComplianceChecklist:      checklist,
		Version:                  m.Version,
		CreatedAt:                m.CreatedAt.UTC(),
		UpdatedAt:                m.UpdatedAt.UTC(),
		DeletedAt:                normalizeOptionalTime(m.DeletedAt),
	}
	if m.CancelledAt != nil {
		session.Cancellation = &entities.Cancellation{
			Reason:      m.CancellationReason,
			CancelledBy: m.CancelledBy,
			CancelledAt: m.CancelledAt.UTC(),
		}
	}
	if m.PostponedAt != nil {
		postponement := &entities.Postponement{
			Reason:      m.PostponementReason,
			PostponedBy: m.PostponedBy,
			PostponedAt: m.PostponedAt.UTC(),
			NewDate:     normalizeOptionalTime(m.PostponedTo),
		}
		if m.OriginalDate != nil {
			postponement.OriginalDate = m.OriginalDate.UTC()
		}
		session.Postponement = postponement
	}
	return session, nil
}

type auditEventModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Actor       string    `gorm:"column:actor"`
	SubjectKind string    `gorm:"column:subject_kind"`
	SubjectID   string    `gorm:"column:subject_id"`
	Kind        string    `gorm:"column:kind"`
	Description string    `gorm:"column:description"`
	OldValue    string    `gorm:"column:old_value"`
	NewValue    string    `gorm:"column:new_value"`
	Metadata    []byte    `gorm:"column:metadata"`
	OccurredAt  time.Time `gorm:"column:occurred_at"`
}

func (auditEventModel) TableName() string {
	return "audit_events"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
