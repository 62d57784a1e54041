package errors

import "errors"

var (
	ErrInvalidBallotInput  = errors.New("ballot engine: invalid ballot definition")
	ErrBallotNotFound      = errors.New("ballot engine: ballot not found")
	ErrBallotNotDraft      = errors.New("ballot engine: ballot is not a draft")
	ErrBallotNotOpen       = errors.New("ballot engine: ballot is not open")
	ErrBallotExpired       = errors.New("ballot engine: ballot deadline has passed")
	ErrBallotNotClosed     = errors.New("ballot engine: ballot is not closed")
	ErrBallotAlreadyClosed = errors.New("ballot engine: ballot already closed")
	ErrSessionNotLive      = errors.New("ballot engine: session is not live")
	ErrQuorumNotMet        = errors.New("ballot engine: eligible voters below ballot quorum")
	ErrInvalidVotePayload  = errors.New("ballot engine: vote payload does not match ballot type")
	ErrNotEligibleVoter    = errors.New("ballot engine: participant holds no matching voting weight")
	ErrDuplicateResponse   = errors.New("ballot engine: response already cast for this weight")
)
