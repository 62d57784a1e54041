package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"plenum/contexts/governance/participant-registry/domain/entities"
	domainerrors "plenum/contexts/governance/participant-registry/domain/errors"
	"plenum/contexts/governance/participant-registry/ports"

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

func (r *Repository) Save(ctx context.Context, participant entities.Participant) error {
	row := participantModelFromEntity(participant)

	if participant.Version <= 1 {
		create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			if isUniqueViolation(create.Error) {
				return domainerrors.ErrParticipantAlreadyExists
			}
			return r.logError("registry_repo_save_participant_failed", create.Error,
				"participant_id", row.ID,
				"session_id", row.SessionID,
			)
		}
		if create.RowsAffected > 0 {
			return nil
		}
	}

	result := r.db.WithContext(ctx).Model(&participantModel{}).
		Where("id = ?", row.ID).
		Where("version = ?", participant.Version).
		Updates(map[string]any{
			"display_name":       row.DisplayName,
			"role":               row.Role,
			"has_voting_rights":  row.HasVotingRights,
			"attendance":         row.Attendance,
			"response":           row.Response,
			"responded_at":       row.RespondedAt,
			"joined_at":          row.JoinedAt,
			"left_at":            row.LeftAt,
			"connection_minutes": row.ConnectionMinutes,
			"delegate_identity":  row.DelegateIdentity,
			"proxy_artifact":     row.ProxyArtifact,
			"attendance_note":    row.AttendanceNote,
			"version":            participant.Version + 1,
			"updated_at":         row.UpdatedAt,
		})
	if result.Error != nil {
		return r.logError("registry_repo_update_participant_failed", result.Error,
			"participant_id", row.ID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVersionConflict
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, participantID string) (entities.Participant, error) {
	var row participantModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(participantID)).
		Where("deleted_at IS NULL").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Participant{}, domainerrors.ErrParticipantNotFound
		}
		return entities.Participant{}, r.logError("registry_repo_get_participant_failed", err,
			"participant_id", strings.TrimSpace(participantID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetByIdentity(ctx context.Context, sessionID string, identityID string) (entities.Participant, bool, error) {
	var row participantModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Where("identity_id = ?", strings.TrimSpace(identityID)).
		Where("deleted_at IS NULL").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Participant{}, false, nil
		}
		return entities.Participant{}, false, r.logError("registry_repo_get_by_identity_failed", err,
			"session_id", strings.TrimSpace(sessionID),
			"identity_id", strings.TrimSpace(identityID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]entities.Participant, error) {
	var rows []participantModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Where("deleted_at IS NULL").
		Order("invited_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("registry_repo_list_by_session_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	items := make([]entities.Participant, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// Append writes to the shared audit_events table. The registry never reads
// audit rows back.
func (r *Repository) Append(ctx context.Context, event ports.AuditEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return r.logError("registry_repo_audit_marshal_failed", err, "audit_kind", event.Kind)
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
		return r.logError("registry_repo_audit_append_failed", err, "audit_kind", event.Kind)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/participant-registry",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("participant repository operation failed", fields...)
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

type participantModel struct {
	ID                string     `gorm:"column:id;primaryKey"`
	SessionID         string     `gorm:"column:session_id"`
	IdentityID        string     `gorm:"column:identity_id"`
	DisplayName       string     `gorm:"column:display_name"`
	Role              string     `gorm:"column:role"`
	HasVotingRights   bool       `gorm:"column:has_voting_rights"`
	Attendance        string     `gorm:"column:attendance"`
	Response          string     `gorm:"column:response"`
	InvitedAt         time.Time  `gorm:"column:invited_at"`
	InvitedBy         string     `gorm:"column:invited_by"`
	RespondedAt       *time.Time `gorm:"column:responded_at"`
	JoinedAt          *time.Time `gorm:"column:joined_at"`
	LeftAt            *time.Time `gorm:"column:left_at"`
	ConnectionMinutes int        `gorm:"column:connection_minutes"`
	DelegateIdentity  string     `gorm:"column:delegate_identity"`
	ProxyArtifact     string     `gorm:"column:proxy_artifact"`
	AttendanceNote    string     `gorm:"column:attendance_note"`
	Version           int        `gorm:"column:version"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
	DeletedAt         *time.Time `gorm:"column:deleted_at"`
}

func (participantModel) TableName() string {
	return "session_participants"
}

func participantModelFromEntity(participant entities.Participant) participantModel {
	row := participantModel{
		ID:                strings.TrimSpace(participant.ParticipantID),
		SessionID:         strings.TrimSpace(participant.SessionID),
		IdentityID:        strings.TrimSpace(participant.IdentityID),
		DisplayName:       strings.TrimSpace(participant.DisplayName),
		Role:              string(participant.Role),
		HasVotingRights:   participant.HasVotingRights,
		Attendance:        string(participant.Attendance),
		Response:          string(participant.Response),
		InvitedAt:         participant.InvitedAt.UTC(),
		InvitedBy:         strings.TrimSpace(participant.InvitedBy),
		RespondedAt:       normalizeOptionalTime(participant.RespondedAt),
		JoinedAt:          normalizeOptionalTime(participant.JoinedAt),
		LeftAt:            normalizeOptionalTime(participant.LeftAt),
		ConnectionMinutes: participant.ConnectionMinutes,
		DelegateIdentity:  strings.TrimSpace(participant.DelegateIdentity),
		ProxyArtifact:     strings.TrimSpace(participant.ProxyArtifact),
		AttendanceNote:    participant.AttendanceNote,
		Version:           participant.Version,
		CreatedAt:         participant.CreatedAt.UTC(),
		UpdatedAt:         participant.UpdatedAt.UTC(),
		DeletedAt:         normalizeOptionalTime(participant.DeletedAt),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m participantModel) toEntity() entities.Participant {
	return entities.Participant{
		ParticipantID:     m.ID,
		SessionID:         m.SessionID,
		IdentityID:        m.IdentityID,
		DisplayName:       m.DisplayName,
		Role:              entities.Role(m.Role),
		HasVotingRights:   m.HasVotingRights,
		Attendance:        entities.AttendanceStatus(m.Attendance),
		Response:          entities.ResponseStatus(m.Response),
		InvitedAt:         m.InvitedAt.UTC(),
		InvitedBy:         m.InvitedBy,
		RespondedAt:       normalizeOptionalTime(m.RespondedAt),
		JoinedAt:          normalizeOptionalTime(m.JoinedAt),
		LeftAt:            normalizeOptionalTime(m.LeftAt),
		ConnectionMinutes: m.ConnectionMinutes,
		DelegateIdentity:  m.DelegateIdentity,
		ProxyArtifact:     m.ProxyArtifact,
		AttendanceNote:    m.AttendanceNote,
		Version:           m.Version,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
		DeletedAt:         normalizeOptionalTime(m.DeletedAt),
	}
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
