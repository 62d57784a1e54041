package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	balloterrors "plenum/contexts/governance/ballot-engine/domain/errors"
	ballothttp "plenum/contexts/governance/ballot-engine/transport/http"
)

func (s *Server) handleCreateBallot(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req ballothttp.CreateBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballots.Handler.CreateHandler(r.Context(), actor, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetBallot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.GetBallotHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSessionBallots(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.ListBySessionHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenBallot(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.ballots.Handler.OpenHandler(r.Context(), r.PathValue("ballot_id"), actor)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseBallot(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ballothttp.CloseBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ballots.Handler.CloseHandler(r.Context(), r.PathValue("ballot_id"), actor, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelBallot(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ballothttp.CancelBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ballots.Handler.CancelHandler(r.Context(), r.PathValue("ballot_id"), actor, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCastVote resolves the voting participant from the X-Participant-Id
// header; X-User-Id alone is an identity, not a session participant.
func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	participantID := r.Header.Get("X-Participant-Id")
	if participantID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_participant", "X-Participant-Id header is required")
		return
	}

	var req ballothttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if req.Origin == "" {
		req.Origin = resolveClientIP(r)
	}

	resp, err := s.ballots.Handler.CastVoteHandler(r.Context(), r.PathValue("ballot_id"), participantID, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleBallotStatistics(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.StatisticsHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBallotResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.ResultsHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVerifyBallot reports findings in the body; a failed verification is
// still a successful request.
func (s *Server) handleVerifyBallot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.VerifyHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeBallotDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, balloterrors.ErrInvalidBallotInput):
		writeBallotError(w, http.StatusBadRequest, "invalid_ballot_input", err.Error())
	case errors.Is(err, balloterrors.ErrInvalidVotePayload):
		writeBallotError(w, http.StatusUnprocessableEntity, "invalid_vote_payload", err.Error())
	case errors.Is(err, balloterrors.ErrBallotNotFound):
		writeBallotError(w, http.StatusNotFound, "ballot_not_found", err.Error())
	case errors.Is(err, balloterrors.ErrNotEligibleVoter):
		writeBallotError(w, http.StatusForbidden, "not_eligible", err.Error())
	case errors.Is(err, balloterrors.ErrDuplicateResponse):
		writeBallotError(w, http.StatusConflict, "duplicate_response", err.Error())
	case errors.Is(err, balloterrors.ErrBallotExpired):
		writeBallotError(w, http.StatusConflict, "ballot_expired", err.Error())
	case errors.Is(err, balloterrors.ErrQuorumNotMet):
		writeBallotError(w, http.StatusConflict, "quorum_not_met", err.Error())
	case errors.Is(err, balloterrors.ErrBallotNotDraft),
		errors.Is(err, balloterrors.ErrBallotNotOpen),
		errors.Is(err, balloterrors.ErrBallotNotClosed),
		errors.Is(err, balloterrors.ErrBallotAlreadyClosed),
		errors.Is(err, balloterrors.ErrSessionNotLive):
		writeBallotError(w, http.StatusConflict, "invalid_ballot_state", err.Error())
	default:
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func resolveClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
