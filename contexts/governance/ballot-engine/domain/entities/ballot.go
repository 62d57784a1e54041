package entities

import "time"

type BallotType string

const (
	TypeSimple         BallotType = "simple"
	TypeMultipleChoice BallotType = "multiple_choice"
	TypeRanking        BallotType = "ranking"
	TypeApproval       BallotType = "approval"
	TypeElection       BallotType = "election"
)

type Secrecy string

const (
	SecrecyOpen      Secrecy = "open"
	SecrecySecret    Secrecy = "secret"
	SecrecyAnonymous Secrecy = "anonymous"
)

type BallotStatus string

const (
	StatusDraft     BallotStatus = "draft"
	StatusOpen      BallotStatus = "open"
	StatusClosed    BallotStatus = "closed"
	StatusCancelled BallotStatus = "cancelled"
)

// Fixed option ids every simple ballot carries.
const (
	ChoiceYes        = "yes"
	ChoiceNo         = "no"
	ChoiceAbstention = "abstention"
)

type Option struct {
	ID    string
	Label string
}

type Ballot struct {
	BallotID         string
	SessionID        string
	Title            string
	Question         string
	Type             BallotType
	Secrecy          Secrecy
	MajorityRequired float64
	QuorumRequired   int
	Options          []Option
	// AllowReplacement permits a voter to overwrite an earlier response.
	// Off by default; a second cast is a conflict.
	AllowReplacement bool
	DurationMinutes  int
	Status           BallotStatus
	StartedAt        *time.Time
	EndsAt           *time.Time
	ClosedAt         *time.Time
	CreatedBy        string
	ClosedBy         string
	ClosureReason    string
	SecuritySeed     string
	FinalDigest      string
	Results          *TallyResult
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Sealed reports whether response payloads are stored encrypted. Secret and
// anonymous ballots share the storage treatment; anonymous only changes how
// attribution is displayed.
func (b Ballot) Sealed() bool {
	return b.Secrecy != SecrecyOpen
}

func (b Ballot) IsOpen(now time.Time) bool {
	if b.Status != StatusOpen {
		return false
	}
	if b.StartedAt != nil && b.StartedAt.After(now) {
		return false
	}
	return !b.Expired(now)
}

func (b Ballot) Expired(now time.Time) bool {
	return b.EndsAt != nil && !b.EndsAt.After(now)
}

func (b Ballot) OptionIDs() []string {
	ids := make([]string, 0, len(b.Options))
	for _, option := range b.Options {
		ids = append(ids, option.ID)
	}
	return ids
}

func (b Ballot) HasOption(optionID string) bool {
	for _, option := range b.Options {
		if option.ID == optionID {
			return true
		}
	}
	return false
}

func ValidBallotType(ballotType BallotType) bool {
	switch ballotType {
	case TypeSimple, TypeMultipleChoice, TypeRanking, TypeApproval, TypeElection:
		return true
	}
	return false
}

func ValidSecrecy(secrecy Secrecy) bool {
	switch secrecy {
	case SecrecyOpen, SecrecySecret, SecrecyAnonymous:
		return true
	}
	return false
}

func SimpleOptions() []Option {
	return []Option{
		{ID: ChoiceYes, Label: "Yes"},
		{ID: ChoiceNo, Label: "No"},
		{ID: ChoiceAbstention, Label: "Abstention"},
	}
}

// VoteResponse is one cast weight: the participant's own, or a delegated
// one identified by OnBehalfOf. Payload is ciphertext when the ballot is
// sealed.
type VoteResponse struct {
	ResponseID    string
	BallotID      string
	ParticipantID string
	OnBehalfOf    string
	Payload       []byte
	Sealed        bool
	CastAt        time.Time
	Origin        string
	SecurityToken string
}

type Statistics struct {
	EligibleVoters       int
	TotalResponses       int
	ParticipationRate    float64
	QuorumRequired       int
	QuorumAchieved       bool
	MajorityRequired     float64
	IsOpen               bool
	IsClosed             bool
	TimeRemainingMinutes *int
	DurationMinutes      *int
}

type VerificationReport struct {
	Valid          bool
	Reason         string
	CorruptedCount int
	VerifiedAt     time.Time
}
