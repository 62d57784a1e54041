package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	sessionerrors "plenum/contexts/governance/session-lifecycle/domain/errors"
	sessionhttp "plenum/contexts/governance/session-lifecycle/transport/http"
)

func (s *Server) handleScheduleSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req sessionhttp.ScheduleSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.sessions.Handler.ScheduleHandler(r.Context(), actor, req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Handler.GetSessionHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.sessions.Handler.StartHandler(r.Context(), r.PathValue("session_id"), actor)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.sessions.Handler.CompleteHandler(r.Context(), r.PathValue("session_id"), actor)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req sessionhttp.CancelSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.sessions.Handler.CancelHandler(r.Context(), r.PathValue("session_id"), actor, req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePostponeSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req sessionhttp.PostponeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.sessions.Handler.PostponeHandler(r.Context(), r.PathValue("session_id"), actor, req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRescheduleSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req sessionhttp.RescheduleSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.sessions.Handler.RescheduleHandler(r.Context(), r.PathValue("session_id"), actor, req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkCompliance(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req sessionhttp.ComplianceItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.sessions.Handler.ComplianceItemHandler(r.Context(), r.PathValue("session_id"), actor, req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleComplianceStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Handler.ComplianceStatusHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionMetrics(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Handler.SessionMetricsHandler(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeSessionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionerrors.ErrInvalidSessionInput):
		writeSessionError(w, http.StatusBadRequest, "invalid_session_input", err.Error())
	case errors.Is(err, sessionerrors.ErrSessionNotFound):
		writeSessionError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, sessionerrors.ErrQuorumNotMet):
		writeSessionError(w, http.StatusConflict, "quorum_not_met", err.Error())
	case errors.Is(err, sessionerrors.ErrSessionNotScheduled),
		errors.Is(err, sessionerrors.ErrSessionNotStartable),
		errors.Is(err, sessionerrors.ErrSessionNotLive),
		errors.Is(err, sessionerrors.ErrSessionAlreadyClosed),
		errors.Is(err, sessionerrors.ErrSessionNotPostponable),
		errors.Is(err, sessionerrors.ErrSessionNotPostponed):
		writeSessionError(w, http.StatusConflict, "invalid_session_state", err.Error())
	case errors.Is(err, sessionerrors.ErrVersionConflict):
		writeSessionError(w, http.StatusConflict, "version_conflict", err.Error())
	default:
		writeSessionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeSessionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, sessionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
