package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	ballotengine "plenum/contexts/governance/ballot-engine"
	participantregistry "plenum/contexts/governance/participant-registry"
	sessionlifecycle "plenum/contexts/governance/session-lifecycle"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	addr         string
	participants participantregistry.Module
	sessions     sessionlifecycle.Module
	ballots      ballotengine.Module
}

func New(
	participants participantregistry.Module,
	sessions sessionlifecycle.Module,
	ballots ballotengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		addr:         addr,
		participants: participants,
		sessions:     sessions,
		ballots:      ballots,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/governance/v1/sessions", s.handleScheduleSession)
	s.mux.HandleFunc("GET /api/governance/v1/sessions/{session_id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/governance/v1/sessions/{session_id}/start", s.handleStartSession)
	s.mux.HandleFunc("POST /api/governance/v1/sessions/{session_id}/complete", s.handleCompleteSession)
	s.mux.HandleFunc("POST /api/governance/v1/sessions/{session_id}/cancel", s.handleCancelSession)
	s.mux.HandleFunc("POST /api/governance/v1/sessions/{session_id}/postpone", s.handlePostponeSession)
	s.mux.HandleFunc("POST /api/governance/v1/sessions/{session_id}/reschedule", s.handleRescheduleSession)
	s.mux.HandleFunc("POST /api/governance/v1/sessions/{session_id}/compliance", s.handleMarkCompliance)
	s.mux.HandleFunc("GET /api/governance/v1/sessions/{session_id}/compliance", s.handleComplianceStatus)
	s.mux.HandleFunc("GET /api/governance/v1/sessions/{session_id}/metrics", s.handleSessionMetrics)

	s.mux.HandleFunc("POST /api/governance/v1/sessions/{session_id}/participants", s.handleAddParticipant)
	s.mux.HandleFunc("POST /api/governance/v1/participants/{participant_id}/present", s.handleMarkPresent)
	s.mux.HandleFunc("POST /api/governance/v1/participants/{participant_id}/absent", s.handleMarkAbsent)
	s.mux.HandleFunc("POST /api/governance/v1/participants/{participant_id}/leave", s.handleMarkLeft)
	s.mux.HandleFunc("POST /api/governance/v1/participants/{participant_id}/response", s.handleInvitationResponse)
	s.mux.HandleFunc("POST /api/governance/v1/participants/{participant_id}/delegate", s.handleDelegate)
	s.mux.HandleFunc("POST /api/governance/v1/participants/{participant_id}/revoke-delegation", s.handleRevokeDelegation)
	s.mux.HandleFunc("GET /api/governance/v1/participants/{participant_id}/voting-rights", s.handleVotingRights)
	s.mux.HandleFunc("GET /api/governance/v1/sessions/{session_id}/quorum", s.handleQuorum)
	s.mux.HandleFunc("GET /api/governance/v1/sessions/{session_id}/participation", s.handleParticipationStats)

	s.mux.HandleFunc("POST /api/governance/v1/ballots", s.handleCreateBallot)
	s.mux.HandleFunc("GET /api/governance/v1/ballots/{ballot_id}", s.handleGetBallot)
	s.mux.HandleFunc("GET /api/governance/v1/sessions/{session_id}/ballots", s.handleListSessionBallots)
	s.mux.HandleFunc("POST /api/governance/v1/ballots/{ballot_id}/open", s.handleOpenBallot)
	s.mux.HandleFunc("POST /api/governance/v1/ballots/{ballot_id}/close", s.handleCloseBallot)
	s.mux.HandleFunc("POST /api/governance/v1/ballots/{ballot_id}/cancel", s.handleCancelBallot)
	s.mux.HandleFunc("POST /api/governance/v1/ballots/{ballot_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/governance/v1/ballots/{ballot_id}/statistics", s.handleBallotStatistics)
	s.mux.HandleFunc("GET /api/governance/v1/ballots/{ballot_id}/results", s.handleBallotResults)
	s.mux.HandleFunc("GET /api/governance/v1/ballots/{ballot_id}/verify", s.handleVerifyBallot)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := r.Header.Get("X-User-Id")
	if actor == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"code":    "missing_user",
			"message": "X-User-Id header is required",
		})
		return "", false
	}
	return actor, true
}
