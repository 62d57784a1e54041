package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"plenum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "plenum/contexts/governance/ballot-engine/domain/errors"
	"plenum/contexts/governance/ballot-engine/ports"

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

func (r *Repository) Create(ctx context.Context, ballot entities.Ballot) error {
	row, err := ballotModelFromEntity(ballot)
	if err != nil {
		return r.logError("ballot_repo_encode_ballot_failed", err, "ballot_id", ballot.BallotID)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidBallotInput
		}
		return r.logError("ballot_repo_create_ballot_failed", err, "ballot_id", row.ID)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, ballotID string) (entities.Ballot, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(ballotID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, domainerrors.ErrBallotNotFound
		}
		return entities.Ballot{}, r.logError("ballot_repo_get_ballot_failed", err,
			"ballot_id", strings.TrimSpace(ballotID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_by_session_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		ballot, err := row.toEntity()
		if err != nil {
			return nil, r.logError("ballot_repo_decode_ballot_failed", err, "ballot_id", row.ID)
		}
		items = append(items, ballot)
	}
	return items, nil
}

func (r *Repository) ListExpired(ctx context.Context, now time.Time) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.StatusOpen)).
		Where("ends_at IS NOT NULL").
		Where("ends_at <= ?", now.UTC()).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_expired_failed", err)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		ballot, err := row.toEntity()
		if err != nil {
			return nil, r.logError("ballot_repo_decode_ballot_failed", err, "ballot_id", row.ID)
		}
		items = append(items, ballot)
	}
	return items, nil
}

// Transition locks the ballot row for update and hands apply the response
// snapshot read inside the same transaction, so a closure tallies exactly
// the set of responses that existed when the lock was taken.
func (r *Repository) Transition(ctx context.Context, ballotID string, apply func(*entities.Ballot, []entities.VoteResponse) error) (entities.Ballot, error) {
	var updated entities.Ballot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ballotModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(ballotID)).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrBallotNotFound
			}
			return err
		}

		ballot, err := row.toEntity()
		if err != nil {
			return err
		}

		var responseRows []voteResponseModel
		if err := tx.
			Where("ballot_id = ?", ballot.BallotID).
			Order("cast_at ASC").
			Find(&responseRows).Error; err != nil {
			return err
		}
		snapshot := make([]entities.VoteResponse, 0, len(responseRows))
		for _, responseRow := range responseRows {
			snapshot = append(snapshot, responseRow.toEntity())
		}

		if err := apply(&ballot, snapshot); err != nil {
			return err
		}
		ballot.Version++

		next, err := ballotModelFromEntity(ballot)
		if err != nil {
			return err
		}
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated = ballot
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return entities.Ballot{}, err
		}
		return entities.Ballot{}, r.logError("ballot_repo_transition_failed", err,
			"ballot_id", strings.TrimSpace(ballotID),
		)
	}
	return updated, nil
}

// InsertResponse re-checks the ballot status under a row lock so a cast
// racing a closure is rejected instead of landing in a closed ballot. The
// (ballot_id, participant_id, on_behalf_of) unique index enforces the
// one-response rule.
func (r *Repository) InsertResponse(ctx context.Context, response entities.VoteResponse, replace bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ballotModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", response.BallotID).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrBallotNotFound
			}
			return err
		}
		if row.Status != string(entities.StatusOpen) {
			return domainerrors.ErrBallotNotOpen
		}

		responseRow := voteResponseModelFromEntity(response)
		if replace {
			return tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "ballot_id"},
					{Name: "participant_id"},
					{Name: "on_behalf_of"},
				},
				UpdateAll: true,
			}).Create(&responseRow).Error
		}
		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "ballot_id"},
				{Name: "participant_id"},
				{Name: "on_behalf_of"},
			},
			DoNothing: true,
		}).Create(&responseRow)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrDuplicateResponse
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("ballot_repo_insert_response_failed", err,
			"ballot_id", response.BallotID,
			"participant_id", response.ParticipantID,
		)
	}
	return nil
}

func (r *Repository) ListResponses(ctx context.Context, ballotID string) ([]entities.VoteResponse, error) {
	var rows []voteResponseModel
	if err := r.db.WithContext(ctx).
		Where("ballot_id = ?", strings.TrimSpace(ballotID)).
		Order("cast_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_responses_failed", err,
			"ballot_id", strings.TrimSpace(ballotID),
		)
	}
	items := make([]entities.VoteResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountResponses(ctx context.Context, ballotID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voteResponseModel{}).
		Where("ballot_id = ?", strings.TrimSpace(ballotID)).
		Count(&count).Error; err != nil {
		return 0, r.logError("ballot_repo_count_responses_failed", err,
			"ballot_id", strings.TrimSpace(ballotID),
		)
	}
	return int(count), nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("ballot_repo_outbox_marshal_failed", err, "event_type", envelope.EventType)
	}
	row := outboxModel{
		ID:           envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("ballot_repo_outbox_append_failed", err, "event_type", envelope.EventType)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_outbox_list_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.ID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", outboxID).
		Update("published_at", publishedAt.UTC()).
		Error
	if err != nil {
		return r.logError("ballot_repo_outbox_mark_failed", err, "outbox_id", outboxID)
	}
	return nil
}

// Append writes to the shared audit_events table.
func (r *Repository) Append(ctx context.Context, event ports.AuditEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return r.logError("ballot_repo_audit_marshal_failed", err, "audit_kind", event.Kind)
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
		return r.logError("ballot_repo_audit_append_failed", err, "audit_kind", event.Kind)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/ballot-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

func isDomainError(err error) bool {
	return errors.Is(err, domainerrors.ErrBallotNotFound) ||
		errors.Is(err, domainerrors.ErrBallotNotDraft) ||
		errors.Is(err, domainerrors.ErrBallotNotOpen) ||
		errors.Is(err, domainerrors.ErrBallotExpired) ||
		errors.Is(err, domainerrors.ErrBallotNotClosed) ||
		errors.Is(err, domainerrors.ErrBallotAlreadyClosed) ||
		errors.Is(err, domainerrors.ErrSessionNotLive) ||
		errors.Is(err, domainerrors.ErrQuorumNotMet) ||
		errors.Is(err, domainerrors.ErrInvalidVotePayload) ||
		errors.Is(err, domainerrors.ErrNotEligibleVoter) ||
		errors.Is(err, domainerrors.ErrDuplicateResponse) ||
		errors.Is(err, domainerrors.ErrInvalidBallotInput)
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

type ballotModel struct {
	ID               string     `gorm:"column:id;primaryKey"`
	SessionID        string     `gorm:"column:session_id"`
	Title            string     `gorm:"column:title"`
	Question         string     `gorm:"column:question"`
	Type             string     `gorm:"column:type"`
	Secrecy          string     `gorm:"column:secrecy"`
	MajorityRequired float64    `gorm:"column:majority_required"`
	QuorumRequired   int        `gorm:"column:quorum_required"`
	Options          []byte     `gorm:"column:options"`
	AllowReplacement bool       `gorm:"column:allow_replacement"`
	DurationMinutes  int        `gorm:"column:duration_minutes"`
	Status           string     `gorm:"column:status"`
	StartedAt        *time.Time `gorm:"column:started_at"`
	EndsAt           *time.Time `gorm:"column:ends_at"`
	ClosedAt         *time.Time `gorm:"column:closed_at"`
	CreatedBy        string     `gorm:"column:created_by"`
	ClosedBy         string     `gorm:"column:closed_by"`
	ClosureReason    string     `gorm:"column:closure_reason"`
	SecuritySeed     string     `gorm:"column:security_seed"`
	FinalDigest      string     `gorm:"column:final_digest"`
	Results          []byte     `gorm:"column:results"`
	Version          int        `gorm:"column:version"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

type optionRow struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func ballotModelFromEntity(ballot entities.Ballot) (ballotModel, error) {
	options := make([]optionRow, 0, len(ballot.Options))
	for _, option := range ballot.Options {
		options = append(options, optionRow{ID: option.ID, Label: option.Label})
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return ballotModel{}, err
	}
	var resultsJSON []byte
	if ballot.Results != nil {
		resultsJSON, err = json.Marshal(ballot.Results)
		if err != nil {
			return ballotModel{}, err
		}
	}

	row := ballotModel{
		ID:               strings.TrimSpace(ballot.BallotID),
		SessionID:        strings.TrimSpace(ballot.SessionID),
		Title:            ballot.Title,
		Question:         ballot.Question,
		Type:             string(ballot.Type),
		Secrecy:          string(ballot.Secrecy),
		MajorityRequired: ballot.MajorityRequired,
		QuorumRequired:   ballot.QuorumRequired,
		Options:          optionsJSON,
		AllowReplacement: ballot.AllowReplacement,
		DurationMinutes:  ballot.DurationMinutes,
		Status:           string(ballot.Status),
		StartedAt:        normalizeOptionalTime(ballot.StartedAt),
		EndsAt:           normalizeOptionalTime(ballot.EndsAt),
		ClosedAt:         normalizeOptionalTime(ballot.ClosedAt),
		CreatedBy:        strings.TrimSpace(ballot.CreatedBy),
		ClosedBy:         strings.TrimSpace(ballot.ClosedBy),
		ClosureReason:    ballot.ClosureReason,
		SecuritySeed:     ballot.SecuritySeed,
		FinalDigest:      ballot.FinalDigest,
		Results:          resultsJSON,
		Version:          ballot.Version,
		CreatedAt:        ballot.CreatedAt.UTC(),
		UpdatedAt:        ballot.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m ballotModel) toEntity() (entities.Ballot, error) {
	var optionRows []optionRow
	if len(m.Options) > 0 {
		if err := json.Unmarshal(m.Options, &optionRows); err != nil {
			return entities.Ballot{}, err
		}
	}
	options := make([]entities.Option, 0, len(optionRows))
	for _, option := range optionRows {
		options = append(options, entities.Option{ID: option.ID, Label: option.Label})
	}
	var results *entities.TallyResult
	if len(m.Results) > 0 {
		results = &entities.TallyResult{}
		if err := json.Unmarshal(m.Results, results); err != nil {
			return entities.Ballot{}, err
		}
	}

	return entities.Ballot{
		BallotID:         m.ID,
		SessionID:        m.SessionID,
		Title:            m.Title,
		Question:         m.Question,
		Type:             entities.BallotType(m.Type),
		Secrecy:          entities.Secrecy(m.Secrecy),
		MajorityRequired: m.MajorityRequired,
		QuorumRequired:   m.QuorumRequired,
		Options:          options,
		AllowReplacement: m.AllowReplacement,
		DurationMinutes:  m.DurationMinutes,
		Status:           entities.BallotStatus(m.Status),
		StartedAt:        normalizeOptionalTime(m.StartedAt),
		EndsAt:           normalizeOptionalTime(m.EndsAt),
		ClosedAt:         normalizeOptionalTime(m.ClosedAt),
		CreatedBy:        m.CreatedBy,
		ClosedBy:         m.ClosedBy,
		ClosureReason:    m.ClosureReason,
		SecuritySeed:     m.SecuritySeed,
		FinalDigest:      m.FinalDigest,
		Results:          results,
		Version:          m.Version,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}, nil
}

type voteResponseModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	BallotID      string    `gorm:"column:ballot_id"`
	ParticipantID string    `gorm:"column:participant_id"`
	OnBehalfOf    string    `gorm:"column:on_behalf_of"`
	Payload       []byte    `gorm:"column:payload"`
	Sealed        bool      `gorm:"column:sealed"`
	CastAt        time.Time `gorm:"column:cast_at"`
	Origin        string    `gorm:"column:origin"`
	SecurityToken string    `gorm:"column:security_token"`
}

func (voteResponseModel) TableName() string {
	return "vote_responses"
}

func voteResponseModelFromEntity(response entities.VoteResponse) voteResponseModel {
	return voteResponseModel{
		ID:            response.ResponseID,
		BallotID:      response.BallotID,
		ParticipantID: response.ParticipantID,
		OnBehalfOf:    response.OnBehalfOf,
		Payload:       response.Payload,
		Sealed:        response.Sealed,
		CastAt:        response.CastAt.UTC(),
		Origin:        response.Origin,
		SecurityToken: response.SecurityToken,
	}
}

func (m voteResponseModel) toEntity() entities.VoteResponse {
	return entities.VoteResponse{
		ResponseID:    m.ID,
		BallotID:      m.BallotID,
		ParticipantID: m.ParticipantID,
		OnBehalfOf:    m.OnBehalfOf,
		Payload:       m.Payload,
		Sealed:        m.Sealed,
		CastAt:        m.CastAt.UTC(),
		Origin:        m.Origin,
		SecurityToken: m.SecurityToken,
	}
}

type outboxModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ballot_outbox"
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
