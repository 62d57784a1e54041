package queries

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"plenum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "plenum/contexts/governance/ballot-engine/domain/errors"
	"plenum/contexts/governance/ballot-engine/ports"
)

type SessionBallotCounts struct {
	Total     int
	Closed    int
	Decisions int
}

// BallotQueries serves the read side: live statistics, frozen results and
// independent integrity verification.
type BallotQueries struct {
	Ballots ports.BallotRepository
	Roster  ports.VoterRoster
	Ledger  ports.IntegrityLedger
	Clock   ports.Clock
}

func (q BallotQueries) Get(ctx context.Context, ballotID string) (entities.Ballot, error) {
	return q.Ballots.Get(ctx, strings.TrimSpace(ballotID))
}

func (q BallotQueries) ListBySession(ctx context.Context, sessionID string) ([]entities.Ballot, error) {
	return q.Ballots.ListBySession(ctx, strings.TrimSpace(sessionID))
}

func (q BallotQueries) Statistics(ctx context.Context, ballotID string) (entities.Statistics, error) {
	ballot, err := q.Ballots.Get(ctx, strings.TrimSpace(ballotID))
	if err != nil {
		return entities.Statistics{}, err
	}
	voters, err := q.Roster.EligibleVoters(ctx, ballot.SessionID)
	if err != nil {
		return entities.Statistics{}, err
	}
	responses, err := q.Ballots.CountResponses(ctx, ballot.BallotID)
	if err != nil {
		return entities.Statistics{}, err
	}

	now := q.now()
	stats := entities.Statistics{
		EligibleVoters:    len(voters),
		TotalResponses:    responses,
		ParticipationRate: rate(responses, len(voters)),
		QuorumRequired:    ballot.QuorumRequired,
		QuorumAchieved:    responses >= ballot.QuorumRequired,
		MajorityRequired:  ballot.MajorityRequired,
		IsOpen:            ballot.IsOpen(now),
		IsClosed:          ballot.Status == entities.StatusClosed,
	}
	if ballot.EndsAt != nil && ballot.Status == entities.StatusOpen {
		remaining := int(ballot.EndsAt.Sub(now).Minutes())
		stats.TimeRemainingMinutes = &remaining
	}
	if ballot.StartedAt != nil && ballot.ClosedAt != nil {
		duration := int(ballot.ClosedAt.Sub(*ballot.StartedAt).Minutes())
		stats.DurationMinutes = &duration
	}
	return stats, nil
}

// Results returns the frozen tally. Only a closed ballot has results.
func (q BallotQueries) Results(ctx context.Context, ballotID string) (entities.TallyResult, error) {
	ballot, err := q.Ballots.Get(ctx, strings.TrimSpace(ballotID))
	if err != nil {
		return entities.TallyResult{}, err
	}
	if ballot.Status != entities.StatusClosed || ballot.Results == nil {
		return entities.TallyResult{}, domainerrors.ErrBallotNotClosed
	}
	return *ballot.Results, nil
}

// VerifyIntegrity recomputes the final digest from stored tokens and
// results, then recomputes every response's expected token from its
// decrypted payload. Findings are reported, never repaired.
func (q BallotQueries) VerifyIntegrity(ctx context.Context, ballotID string) (entities.VerificationReport, error) {
	ballot, err := q.Ballots.Get(ctx, strings.TrimSpace(ballotID))
	if err != nil {
		return entities.VerificationReport{}, err
	}
	if ballot.Status != entities.StatusClosed || ballot.ClosedAt == nil || ballot.Results == nil {
		return entities.VerificationReport{Valid: false, Reason: "ballot is not closed"}, nil
	}

	responses, err := q.Ballots.ListResponses(ctx, ballot.BallotID)
	if err != nil {
		return entities.VerificationReport{}, err
	}

	tokens := make([]string, 0, len(responses))
	for _, response := range responses {
		tokens = append(tokens, response.SecurityToken)
	}
	resultsJSON, err := json.Marshal(*ballot.Results)
	if err != nil {
		return entities.VerificationReport{}, err
	}
	if q.Ledger.FinalDigest(ballot.BallotID, *ballot.ClosedAt, tokens, resultsJSON) != ballot.FinalDigest {
		return entities.VerificationReport{Valid: false, Reason: "final digest mismatch"}, nil
	}

	var sealer ports.PayloadSealer
	if ballot.Sealed() {
		if sealer, err = q.Ledger.SealerFor(ballot.SecuritySeed); err != nil {
			return entities.VerificationReport{}, err
		}
	}
	corrupted := 0
	for _, response := range responses {
		plain := response.Payload
		if response.Sealed {
			if sealer == nil {
				corrupted++
				continue
			}
			opened, err := sealer.Open(response.Payload)
			if err != nil {
				corrupted++
				continue
			}
			plain = opened
		}
		expected := q.Ledger.TokenForResponse(ballot.BallotID, response.ParticipantID, plain, response.CastAt, response.Origin)
		if expected != response.SecurityToken {
			corrupted++
		}
	}
	if corrupted > 0 {
		return entities.VerificationReport{
			Valid:          false,
			Reason:         "corrupted responses",
			CorruptedCount: corrupted,
		}, nil
	}
	return entities.VerificationReport{Valid: true, VerifiedAt: q.now()}, nil
}

// CountBySession feeds the session metrics view: how many ballots ran,
// how many closed, and how many reached a decision.
func (q BallotQueries) CountBySession(ctx context.Context, sessionID string) (SessionBallotCounts, error) {
	ballots, err := q.Ballots.ListBySession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return SessionBallotCounts{}, err
	}
	counts := SessionBallotCounts{Total: len(ballots)}
	for _, ballot := range ballots {
		if ballot.Status != entities.StatusClosed {
			continue
		}
		counts.Closed++
		if ballot.Results == nil {
			continue
		}
		switch ballot.Results.Summary.Outcome {
		case entities.OutcomeAdopted, entities.OutcomeDecided:
			counts.Decisions++
		}
	}
	return counts, nil
}

func (q BallotQueries) now() time.Time {
	if q.Clock != nil {
		return q.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func rate(part int, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}
