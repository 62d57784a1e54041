package errors

import "errors"

var (
	ErrInvalidSessionInput   = errors.New("session lifecycle: invalid session input")
	ErrSessionNotFound       = errors.New("session lifecycle: session not found")
	ErrSessionNotScheduled   = errors.New("session lifecycle: session is not scheduled")
	ErrSessionNotLive        = errors.New("session lifecycle: session is not live")
	ErrSessionNotStartable   = errors.New("session lifecycle: scheduled time has not been reached")
	ErrSessionAlreadyClosed  = errors.New("session lifecycle: session already completed or cancelled")
	ErrSessionNotPostponable = errors.New("session lifecycle: live or completed session cannot be postponed")
	ErrSessionNotPostponed   = errors.New("session lifecycle: session is not postponed")
	ErrQuorumNotMet          = errors.New("session lifecycle: quorum not met")
	ErrVersionConflict       = errors.New("session lifecycle: session was modified concurrently")
)
