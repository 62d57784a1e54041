package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AddParticipantRequest struct {
	IdentityID      string `json:"identity_id"`
	Role            string `json:"role"`
	HasVotingRights bool   `json:"has_voting_rights"`
}

type AttendanceRequest struct {
	Note string `json:"note,omitempty"`
}

type InvitationResponseRequest struct {
	Response string `json:"response"`
	Note     string `json:"note,omitempty"`
}

type DelegateRequest struct {
	DelegateIdentity string `json:"delegate_identity"`
	ProxyArtifact    string `json:"proxy_artifact,omitempty"`
}

type ParticipantResponse struct {
	ParticipantID     string `json:"participant_id"`
	SessionID         string `json:"session_id"`
	IdentityID        string `json:"identity_id"`
	DisplayName       string `json:"display_name"`
	Role              string `json:"role"`
	HasVotingRights   bool   `json:"has_voting_rights"`
	Attendance        string `json:"attendance"`
	Response          string `json:"response"`
	DelegateIdentity  string `json:"delegate_identity,omitempty"`
	ProxyArtifact     string `json:"proxy_artifact,omitempty"`
	ConnectionMinutes int    `json:"connection_minutes,omitempty"`
	AttendanceNote    string `json:"attendance_note,omitempty"`
}

type VotingWeightItem struct {
	Kind          string `json:"kind"`
	ParticipantID string `json:"participant_id"`
	IdentityID    string `json:"identity_id"`
	DisplayName   string `json:"display_name"`
	Role          string `json:"role"`
	ProxyArtifact string `json:"proxy_artifact,omitempty"`
}

type VotingRightsResponse struct {
	ParticipantID string             `json:"participant_id"`
	Weights       []VotingWeightItem `json:"weights"`
}

type QuorumResponse struct {
	SessionID      string `json:"session_id"`
	QuorumRequired int    `json:"quorum_required"`
	EligibleCount  int    `json:"eligible_count"`
	QuorumAchieved bool   `json:"quorum_achieved"`
}

type ParticipationStatsResponse struct {
	TotalInvited            int     `json:"total_invited"`
	TotalPresent            int     `json:"total_present"`
	TotalAbsent             int     `json:"total_absent"`
	AttendanceRate          float64 `json:"attendance_rate"`
	TotalWithVotingRights   int     `json:"total_voting_rights"`
	PresentWithVotingRights int     `json:"present_voting_rights"`
	QuorumRequired          int     `json:"quorum_required"`
	QuorumAchieved          bool    `json:"quorum_achieved"`
	QuorumPercentage        float64 `json:"quorum_percentage"`
}
