package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ballotengine "plenum/contexts/governance/ballot-engine"
	ballotports "plenum/contexts/governance/ballot-engine/ports"
	participantregistry "plenum/contexts/governance/participant-registry"
	sessionlifecycle "plenum/contexts/governance/session-lifecycle"
)

type testLedger struct{}

func (testLedger) SeedBallot(ballotID string, _ string, _ time.Time, _ []string) (string, error) {
	return "seed-" + ballotID, nil
}

func (testLedger) TokenForResponse(ballotID string, participantID string, _ []byte, _ time.Time, _ string) string {
	return ballotID + ":" + participantID
}

func (testLedger) FinalDigest(ballotID string, _ time.Time, _ []string, _ []byte) string {
	return "digest-" + ballotID
}

func (testLedger) SealerFor(_ string) (ballotports.PayloadSealer, error) {
	return passthroughSealer{}, nil
}

type passthroughSealer struct{}

func (passthroughSealer) Seal(plaintext []byte) ([]byte, error) { return plaintext, nil }
func (passthroughSealer) Open(sealed []byte) ([]byte, error) { return sealed, nil }

type testRoster struct{}

func (testRoster) EligibleVoters(_ context.Context, _ string) ([]ballotports.Voter, error) {
	return []ballotports.Voter{
		{ParticipantID: "p-1", IdentityID: "identity-1", DisplayName: "Voter One"},
	}, nil
}

func (testRoster) WeightsFor(_ context.Context, participantID string) ([]ballotports.Weight, error) {
	return []ballotports.Weight{
		{Kind: ballotports.WeightOwn, ParticipantID: participantID, IdentityID: "identity-1"},
	}, nil
}

func newTestServer() *Server {
	return New(
		participantregistry.NewInMemoryModule(nil, slog.Default()),
		sessionlifecycle.NewInMemoryModule(nil, nil, slog.Default()),
		ballotengine.NewInMemoryModule(nil, testRoster{}, nil, testLedger{}, nil, slog.Default()),
		slog.Default(),
		":0",
	)
}

func TestScheduleSessionRequiresActor(t *testing.T) {
	server := newTestServer()
	body := []byte(`{"entity_id":"entity-1","meeting_type":"board","title":"Q3 board meeting","scheduled_at":"2026-09-15T10:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/governance/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestScheduleAndFetchSession(t *testing.T) {
	server := newTestServer()
	body := []byte(`{"entity_id":"entity-1","meeting_type":"board","title":"Q3 board meeting","scheduled_at":"2026-09-15T10:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/governance/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "secretary-1")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.SessionID == "" {
		t.Fatalf("expected a session id, body=%s", rr.Body.String())
	}

	get := httptest.NewRequest(http.MethodGet, "/api/governance/v1/sessions/"+created.SessionID, nil)
	getRR := httptest.NewRecorder()
	server.mux.ServeHTTP(getRR, get)
	if getRR.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", getRR.Code, getRR.Body.String())
	}
}

func TestGetUnknownSessionReturnsNotFound(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/governance/v1/sessions/missing", nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateBallotRejectsInvalidBody(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ballots", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "secretary-1")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCastVoteRequiresParticipantHeader(t *testing.T) {
	server := newTestServer()
	body := []byte(`{"choice":"yes"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ballots/b-1/votes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "identity-1")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGetUnknownBallotReturnsNotFound(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/governance/v1/ballots/missing", nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}
