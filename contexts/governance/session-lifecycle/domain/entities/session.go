package entities

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusPostponed Status = "postponed"
)

type MeetingType string

const (
	MeetingBoard              MeetingType = "board"
	MeetingGeneralAssembly    MeetingType = "general_assembly"
	MeetingBudgetSession      MeetingType = "budget_session"
	MeetingAuditCommittee     MeetingType = "audit_committee"
	MeetingTechnicalCommittee MeetingType = "technical_committee"
	MeetingManagementMeeting  MeetingType = "management_meeting"
)

// Cancellation and Postponement are typed records of the terminal and
// deferred transitions, replacing free-form metadata.
type Cancellation struct {
	Reason      string
	CancelledBy string
	CancelledAt time.Time
}

type Postponement struct {
	Reason       string
	OriginalDate time.Time
	NewDate      *time.Time
	PostponedBy  string
	PostponedAt  time.Time
}

type ComplianceItem struct {
	Requirement string
	Completed   bool
}

type Session struct {
	SessionID                string
	EntityID                 string
	MeetingType              MeetingType
	Title                    string
	Description              string
	SessionNumber            string
	FinancialYear            string
	ScheduledAt              time.Time
	StartTime                *time.Time
	EndTime                  *time.Time
	Timezone                 string
	Location                 string
	Status                   Status
	IsPublic                 bool
	RecordingEnabled         bool
	RecordingDurationMinutes int
	QuorumRequired           int
	// QuorumAchieved is a display snapshot taken when the session goes
	// live; quorum decisions are always recomputed from attendance.
	QuorumAchieved      *bool
	PresidentID         string
	SecretaryID         string
	CreatedBy           string
	Cancellation        *Cancellation
	Postponement        *Postponement
	LegalRequirements   []string
	ComplianceChecklist []ComplianceItem
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

func (s Session) IsLive() bool {
	return s.Status == StatusLive
}

func (s Session) IsCompleted() bool {
	return s.Status == StatusCompleted
}

func (s Session) CanStart(now time.Time) bool {
	return s.Status == StatusScheduled && !s.ScheduledAt.After(now)
}

func (s Session) DurationMinutes() int {
	if s.StartTime == nil || s.EndTime == nil {
		return 0
	}
	return int(s.EndTime.Sub(*s.StartTime).Minutes())
}

// TypeDefaults carries the per-meeting-type configuration applied at
// scheduling time when the caller does not override it.
type TypeDefaults struct {
	QuorumRequired    int
	IsPublic          bool
	RecordingEnabled  bool
	LegalRequirements []string
}

func DefaultsForType(meetingType MeetingType) TypeDefaults {
	switch meetingType {
	case MeetingBoard:
		return TypeDefaults{
			QuorumRequired:   3,
			IsPublic:         false,
			RecordingEnabled: true,
			LegalRequirements: []string{
				"Convocation sent at least 8 days before the session",
				"Quorum of at least 50% of board members",
				"Agenda circulated with the convocation",
				"Minutes of the previous session approved",
				"Session secretary present",
				"Financial documents made available",
			},
		}
	case MeetingGeneralAssembly:
		return TypeDefaults{
			QuorumRequired:   5,
			IsPublic:         true,
			RecordingEnabled: true,
			LegalRequirements: []string{
				"Convocation sent at least 15 days before the assembly",
				"Quorum of at least 66% of shareholders",
				"Notice published in an official journal",
				"Certified financial statements available",
				"Activity report presented",
				"Statutory auditors report presented",
				"Discharge granted to the board of directors",
			},
		}
	case MeetingBudgetSession:
		return TypeDefaults{
			QuorumRequired:   4,
			IsPublic:         false,
			RecordingEnabled: true,
			LegalRequirements: []string{
				"Provisional budget prepared",
				"Variance analysis of the previous financial year",
				"Financial projections validated",
				"Compliance with regional budget directives",
				"Approval of major investments",
			},
		}
	case MeetingAuditCommittee:
		return TypeDefaults{QuorumRequired: 2, RecordingEnabled: true}
	case MeetingTechnicalCommittee:
		return TypeDefaults{QuorumRequired: 2}
	case MeetingManagementMeeting:
		return TypeDefaults{QuorumRequired: 2}
	default:
		return TypeDefaults{QuorumRequired: 1}
	}
}

func ValidMeetingType(meetingType MeetingType) bool {
	switch meetingType {
	case MeetingBoard, MeetingGeneralAssembly, MeetingBudgetSession,
		MeetingAuditCommittee, MeetingTechnicalCommittee, MeetingManagementMeeting:
		return true
	}
	return false
}
