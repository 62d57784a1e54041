package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	registryerrors "plenum/contexts/governance/participant-registry/domain/errors"
	registryhttp "plenum/contexts/governance/participant-registry/transport/http"
)

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req registryhttp.AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.participants.Handler.AddParticipantHandler(r.Context(), r.PathValue("session_id"), actor, req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleMarkPresent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.participants.Handler.MarkPresentHandler(r.Context(), r.PathValue("participant_id"), actor)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkAbsent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req registryhttp.AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.participants.Handler.MarkAbsentHandler(r.Context(), r.PathValue("participant_id"), actor, req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkLeft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req registryhttp.AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.participants.Handler.MarkLeftHandler(r.Context(), r.PathValue("participant_id"), actor, req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInvitationResponse(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.InvitationResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.participants.Handler.RespondToInvitationHandler(r.Context(), r.PathValue("participant_id"), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req registryhttp.DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.participants.Handler.DelegateHandler(r.Context(), r.PathValue("participant_id"), actor, req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeDelegation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.participants.Handler.RevokeDelegationHandler(r.Context(), r.PathValue("participant_id"), actor)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVotingRights(w http.ResponseWriter, r *http.Request) {
	resp, err := s.participants.Handler.VotingRightsHandler(r.Context(), r.PathValue("participant_id"))
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuorum(w http.ResponseWriter, r *http.Request) {
	required, ok := parseRequired(w, r)
	if !ok {
		return
	}
	resp, err := s.participants.Handler.QuorumHandler(r.Context(), r.PathValue("session_id"), required)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleParticipationStats(w http.ResponseWriter, r *http.Request) {
	required, ok := parseRequired(w, r)
	if !ok {
		return
	}
	resp, err := s.participants.Handler.ParticipationStatsHandler(r.Context(), r.PathValue("session_id"), required)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseRequired(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("required")
	if raw == "" {
		return 0, true
	}
	required, err := strconv.Atoi(raw)
	if err != nil || required < 0 {
		writeRegistryError(w, http.StatusBadRequest, "invalid_required", "required must be a non-negative integer")
		return 0, false
	}
	return required, true
}

func writeRegistryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registryerrors.ErrInvalidParticipantInput),
		errors.Is(err, registryerrors.ErrInvalidInvitationResponse):
		writeRegistryError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, registryerrors.ErrParticipantNotFound):
		writeRegistryError(w, http.StatusNotFound, "participant_not_found", err.Error())
	case errors.Is(err, registryerrors.ErrParticipantAlreadyExists):
		writeRegistryError(w, http.StatusConflict, "participant_exists", err.Error())
	case errors.Is(err, registryerrors.ErrDelegationCycle):
		writeRegistryError(w, http.StatusConflict, "delegation_cycle", err.Error())
	case errors.Is(err, registryerrors.ErrParticipantNotPresent),
		errors.Is(err, registryerrors.ErrNoActiveDelegation),
		errors.Is(err, registryerrors.ErrVersionConflict):
		writeRegistryError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, registryerrors.ErrVotingRightsRequired),
		errors.Is(err, registryerrors.ErrIdentityNotEligible):
		writeRegistryError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, registryerrors.ErrDelegateNotInSession):
		writeRegistryError(w, http.StatusUnprocessableEntity, "delegate_not_in_session", err.Error())
	default:
		writeRegistryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRegistryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, registryhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
