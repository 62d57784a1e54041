package httptransport

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ScheduleSessionRequest struct {
	EntityID         string    `json:"entity_id"`
	MeetingType      string    `json:"meeting_type"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	SessionNumber    string    `json:"session_number,omitempty"`
	FinancialYear    string    `json:"financial_year,omitempty"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	Timezone         string    `json:"timezone,omitempty"`
	Location         string    `json:"location,omitempty"`
	QuorumRequired   *int      `json:"quorum_required,omitempty"`
	IsPublic         *bool     `json:"is_public,omitempty"`
	RecordingEnabled *bool     `json:"recording_enabled,omitempty"`
	PresidentID      string    `json:"president_id,omitempty"`
	SecretaryID      string    `json:"secretary_id,omitempty"`
}

type CancelSessionRequest struct {
	Reason string `json:"reason"`
}

type PostponeSessionRequest struct {
	NewDate *time.Time `json:"new_date,omitempty"`
	Reason  string     `json:"reason"`
}

type RescheduleSessionRequest struct {
	NewDate time.Time `json:"new_date"`
}

type ComplianceItemRequest struct {
	Index     int  `json:"index"`
	Completed bool `json:"completed"`
}

type ComplianceItemResponse struct {
	Requirement string `json:"requirement"`
	Completed   bool   `json:"completed"`
}

type SessionResponse struct {
	SessionID                string                   `json:"session_id"`
	EntityID                 string                   `json:"entity_id,omitempty"`
	MeetingType              string                   `json:"meeting_type"`
	Title                    string                   `json:"title"`
	Description              string                   `json:"description,omitempty"`
	SessionNumber            string                   `json:"session_number,omitempty"`
	FinancialYear            string                   `json:"financial_year,omitempty"`
	ScheduledAt              time.Time                `json:"scheduled_at"`
	StartTime                *time.Time               `json:"start_time,omitempty"`
	EndTime                  *time.Time               `json:"end_time,omitempty"`
	Status                   string                   `json:"status"`
	IsPublic                 bool                     `json:"is_public"`
	RecordingEnabled         bool                     `json:"recording_enabled"`
	RecordingDurationMinutes int                      `json:"recording_duration_minutes,omitempty"`
	QuorumRequired           int                      `json:"quorum_required"`
	QuorumAchieved           *bool                    `json:"quorum_achieved,omitempty"`
	CancellationReason       string                   `json:"cancellation_reason,omitempty"`
	PostponementReason       string                   `json:"postponement_reason,omitempty"`
	ComplianceChecklist      []ComplianceItemResponse `json:"compliance_checklist,omitempty"`
}

type ComplianceStatusResponse struct {
	TotalRequirements     int      `json:"total_requirements"`
	CompletedRequirements int      `json:"completed_requirements"`
	ComplianceRate        float64  `json:"compliance_rate"`
	IsCompliant           bool     `json:"is_compliant"`
	MissingRequirements   []string `json:"missing_requirements"`
}

type ParticipationStatsBlock struct {
	TotalInvited        int     `json:"total_invited"`
	TotalPresent        int     `json:"total_present"`
	TotalAbsent         int     `json:"total_absent"`
	AttendanceRate      float64 `json:"attendance_rate"`
	TotalVotingRights   int     `json:"total_voting_rights"`
	PresentVotingRights int     `json:"present_voting_rights"`
	QuorumRequired      int     `json:"quorum_required"`
	QuorumAchieved      bool    `json:"quorum_achieved"`
	QuorumPercentage    float64 `json:"quorum_percentage"`
}

type SessionMetricsResponse struct {
	SessionID       string                   `json:"session_id"`
	Status          string                   `json:"status"`
	DurationMinutes int                      `json:"duration_minutes"`
	BallotsCount    int                      `json:"ballots_count"`
	BallotsClosed   int                      `json:"ballots_closed"`
	DecisionsCount  int                      `json:"decisions_count"`
	Participation   ParticipationStatsBlock  `json:"participation_stats"`
	Compliance      ComplianceStatusResponse `json:"compliance_status"`
}
