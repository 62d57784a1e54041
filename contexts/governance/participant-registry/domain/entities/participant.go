package entities

import "time"

type Role string

const (
	RolePresident Role = "president"
	RoleSecretary Role = "secretary"
	RoleMember    Role = "member"
	RoleObserver  Role = "observer"
	RoleGuest     Role = "guest"
	RoleExpert    Role = "expert"
	RoleAuditor   Role = "auditor"
)

func (r Role) Valid() bool {
	switch r {
	case RolePresident, RoleSecretary, RoleMember, RoleObserver, RoleGuest, RoleExpert, RoleAuditor:
		return true
	default:
		return false
	}
}

type AttendanceStatus string

const (
	AttendanceInvited   AttendanceStatus = "invited"
	AttendanceConfirmed AttendanceStatus = "confirmed"
	AttendanceDeclined  AttendanceStatus = "declined"
	AttendancePresent   AttendanceStatus = "present"
	AttendanceAbsent    AttendanceStatus = "absent"
	AttendanceLeftEarly AttendanceStatus = "left_early"
)

type ResponseStatus string

const (
	ResponsePending   ResponseStatus = "pending"
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseDeclined  ResponseStatus = "declined"
	ResponseTentative ResponseStatus = "tentative"
)

type Participant struct {
	ParticipantID     string
	SessionID         string
	IdentityID        string
	DisplayName       string
	Role              Role
	HasVotingRights   bool
	Attendance        AttendanceStatus
	Response          ResponseStatus
	InvitedAt         time.Time
	InvitedBy         string
	RespondedAt       *time.Time
	JoinedAt          *time.Time
	LeftAt            *time.Time
	ConnectionMinutes int
	DelegateIdentity  string
	ProxyArtifact     string
	AttendanceNote    string
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// CanVote reports whether the participant can exercise their own voting
// weight right now: present, holding rights, and not delegated away.
func (p Participant) CanVote() bool {
	return p.HasVotingRights &&
		p.Attendance == AttendancePresent &&
		p.DelegateIdentity == ""
}

// HasDelegated reports an active outgoing delegation.
func (p Participant) HasDelegated() bool {
	return p.DelegateIdentity != ""
}

type WeightKind string

const (
	WeightOwn       WeightKind = "own"
	WeightDelegated WeightKind = "delegated"
)

// VotingWeight is one unit of voting power a participant may exercise,
// either their own or one received through delegation.
type VotingWeight struct {
	Kind          WeightKind
	ParticipantID string
	IdentityID    string
	DisplayName   string
	Role          Role
	ProxyArtifact string
}

type ParticipationStats struct {
	TotalInvited            int
	TotalPresent            int
	TotalAbsent             int
	AttendanceRate          float64
	TotalWithVotingRights   int
	PresentWithVotingRights int
	QuorumRequired          int
	QuorumAchieved          bool
	QuorumPercentage        float64
}
