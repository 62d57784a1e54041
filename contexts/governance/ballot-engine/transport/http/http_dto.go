package httptransport

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OptionPayload struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type CreateBallotRequest struct {
	SessionID        string          `json:"session_id"`
	Title            string          `json:"title"`
	Question         string          `json:"question"`
	Type             string          `json:"type"`
	Secrecy          string          `json:"secrecy,omitempty"`
	Options          []OptionPayload `json:"options,omitempty"`
	MajorityRequired float64         `json:"majority_required,omitempty"`
	QuorumRequired   int             `json:"quorum_required,omitempty"`
	AllowReplacement bool            `json:"allow_replacement,omitempty"`
	DurationMinutes  int             `json:"duration_minutes,omitempty"`
}

type CastVoteRequest struct {
	Choice     string   `json:"choice,omitempty"`
	Rankings   []string `json:"rankings,omitempty"`
	Approvals  []string `json:"approvals,omitempty"`
	OnBehalfOf string   `json:"on_behalf_of,omitempty"`
	Origin     string   `json:"origin,omitempty"`
}

type CloseBallotRequest struct {
	Reason string `json:"reason,omitempty"`
}

type CancelBallotRequest struct {
	Reason string `json:"reason"`
}

type BallotResponse struct {
	BallotID         string          `json:"ballot_id"`
	SessionID        string          `json:"session_id"`
	Title            string          `json:"title"`
	Question         string          `json:"question"`
	Type             string          `json:"type"`
	Secrecy          string          `json:"secrecy"`
	MajorityRequired float64         `json:"majority_required"`
	QuorumRequired   int             `json:"quorum_required"`
	Options          []OptionPayload `json:"options"`
	AllowReplacement bool            `json:"allow_replacement"`
	DurationMinutes  int             `json:"duration_minutes,omitempty"`
	Status           string          `json:"status"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	EndsAt           *time.Time      `json:"ends_at,omitempty"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
	ClosureReason    string          `json:"closure_reason,omitempty"`
	FinalDigest      string          `json:"final_digest,omitempty"`
	Results          *TallyPayload   `json:"results,omitempty"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
}

type VoteReceiptResponse struct {
	ResponseID    string    `json:"response_id"`
	BallotID      string    `json:"ballot_id"`
	ParticipantID string    `json:"participant_id"`
	OnBehalfOf    string    `json:"on_behalf_of,omitempty"`
	CastAt        time.Time `json:"cast_at"`
	SecurityToken string    `json:"security_token"`
}

type OptionCountPayload struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type TallySummaryPayload struct {
	TotalEligible     int     `json:"total_eligible"`
	TotalVotes        int     `json:"total_votes"`
	ParticipationRate float64 `json:"participation_rate"`
	QuorumAchieved    bool    `json:"quorum_achieved"`
	Outcome           string  `json:"outcome"`
	Winner            string  `json:"winner,omitempty"`
	MajorityAchieved  bool    `json:"majority_achieved"`
	WinningPercentage float64 `json:"winning_percentage"`
}

type TallyPayload struct {
	Detailed map[string]OptionCountPayload `json:"detailed"`
	Summary  TallySummaryPayload           `json:"summary"`
}

type StatisticsResponse struct {
	EligibleVoters       int     `json:"eligible_voters"`
	TotalResponses       int     `json:"total_responses"`
	ParticipationRate    float64 `json:"participation_rate"`
	QuorumRequired       int     `json:"quorum_required"`
	QuorumAchieved       bool    `json:"quorum_achieved"`
	MajorityRequired     float64 `json:"majority_required"`
	IsOpen               bool    `json:"is_open"`
	IsClosed             bool    `json:"is_closed"`
	TimeRemainingMinutes *int    `json:"time_remaining_minutes,omitempty"`
	DurationMinutes      *int    `json:"duration_minutes,omitempty"`
}

type VerificationResponse struct {
	Valid          bool      `json:"valid"`
	Reason         string    `json:"reason,omitempty"`
	CorruptedCount int       `json:"corrupted_count,omitempty"`
	VerifiedAt     time.Time `json:"verified_at"`
}
