package errors

import "errors"

var (
	ErrInvalidParticipantInput   = errors.New("invalid participant input")
	ErrParticipantNotFound       = errors.New("participant not found")
	ErrParticipantAlreadyExists  = errors.New("identity is already a participant of this session")
	ErrParticipantNotPresent     = errors.New("participant was never marked present")
	ErrInvalidInvitationResponse = errors.New("invalid invitation response")
	ErrVotingRightsRequired      = errors.New("participant has no voting rights to delegate")
	ErrDelegateNotInSession      = errors.New("delegate must be a participant of the same session")
	ErrDelegationCycle           = errors.New("delegation would create a cycle")
	ErrNoActiveDelegation        = errors.New("no active delegation to revoke")
	ErrVersionConflict           = errors.New("participant was modified concurrently")
	ErrIdentityNotEligible       = errors.New("identity is not eligible for this role")
)
