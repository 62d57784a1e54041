package queries

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"plenum/contexts/governance/ballot-engine/adapters/memory"
	"plenum/contexts/governance/ballot-engine/application/commands"
	"plenum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "plenum/contexts/governance/ballot-engine/domain/errors"
	"plenum/contexts/governance/ballot-engine/ports"
)

type fakeLedger struct{}

func (fakeLedger) SeedBallot(ballotID string, _ string, _ time.Time, _ []string) (string, error) {
	return "seed-" + ballotID, nil
}

func (fakeLedger) TokenForResponse(ballotID string, participantID string, payload []byte, castAt time.Time, origin string) string {
	sum := sha256.Sum256([]byte(ballotID + "|" + participantID + "|" + string(payload) + "|" + castAt.UTC().Format(time.RFC3339Nano) + "|" + origin))
	return hex.EncodeToString(sum[:])
}

func (fakeLedger) FinalDigest(ballotID string, closedAt time.Time, responseTokens []string, results []byte) string {
	tokens := append([]string(nil), responseTokens...)
	sort.Strings(tokens)
	sum := sha256.Sum256([]byte(ballotID + "|" + closedAt.UTC().Format(time.RFC3339Nano) + "|" + strings.Join(tokens, ",") + "|" + string(results)))
	return hex.EncodeToString(sum[:])
}

func (fakeLedger) SealerFor(seed string) (ports.PayloadSealer, error) {
	return prefixSealer{prefix: "sealed|" + seed + "|"}, nil
}

type prefixSealer struct {
	prefix string
}

func (s prefixSealer) Seal(plaintext []byte) ([]byte, error) {
	return append([]byte(s.prefix), plaintext...), nil
}

func (s prefixSealer) Open(sealed []byte) ([]byte, error) {
	if !bytes.HasPrefix(sealed, []byte(s.prefix)) {
		return nil, errors.New("sealed payload invalid")
	}
	return sealed[len(s.prefix):], nil
}

type fakeRoster struct {
	voters  []ports.Voter
	weights map[string][]ports.Weight
}

func (r fakeRoster) EligibleVoters(_ context.Context, _ string) ([]ports.Voter, error) {
	return r.voters, nil
}

func (r fakeRoster) WeightsFor(_ context.Context, participantID string) ([]ports.Weight, error) {
	return r.weights[participantID], nil
}

func rosterOf(n int) fakeRoster {
	roster := fakeRoster{weights: map[string][]ports.Weight{}}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p-%d", i)
		roster.voters = append(roster.voters, ports.Voter{
			ParticipantID: id,
			IdentityID:    "identity-" + id,
		})
		roster.weights[id] = []ports.Weight{{Kind: ports.WeightOwn, ParticipantID: id, IdentityID: "identity-" + id}}
	}
	return roster
}

type alwaysLive struct{}

func (alwaysLive) SessionIsLive(_ context.Context, _ string) (bool, error) {
	return true, nil
}

type fixture struct {
	store   *memory.Store
	engine  commands.BallotUseCase
	queries BallotQueries
}

func newFixture(voters int) fixture {
	store := memory.NewStore(nil)
	roster := rosterOf(voters)
	engine := commands.BallotUseCase{
		Ballots:  store,
		Roster:   roster,
		Sessions: alwaysLive{},
		Ledger:   fakeLedger{},
		Outbox:   store,
		Audit:    store,
		Notifier: store,
		Clock:    store,
		IDGen:    store,
	}
	return fixture{
		store:  store,
		engine: engine,
		queries: BallotQueries{
			Ballots: store,
			Roster:  roster,
			Ledger:  fakeLedger{},
			Clock:   store,
		},
	}
}

func (f fixture) openSealedBallot(t *testing.T, quorum int) entities.Ballot {
	t.Helper()
	created, err := f.engine.Create(context.Background(), commands.CreateBallotCommand{
		SessionID:      "session-1",
		Title:          "Confidential motion",
		Type:           entities.TypeSimple,
		Secrecy:        entities.SecrecySecret,
		QuorumRequired: quorum,
		Actor:          "secretary-1",
	})
	if err != nil {
		t.Fatalf("create ballot: %v", err)
	}
	opened, err := f.engine.Open(context.Background(), created.BallotID, "president-1")
	if err != nil {
		t.Fatalf("open ballot: %v", err)
	}
	return opened
}

func (f fixture) cast(t *testing.T, ballotID string, participantID string, choice string) {
	t.Helper()
	_, err := f.engine.CastVote(context.Background(), commands.CastVoteCommand{
		BallotID:      ballotID,
		ParticipantID: participantID,
		Payload:       entities.VotePayload{Choice: choice},
	})
	if err != nil {
		t.Fatalf("cast %s for %s: %v", choice, participantID, err)
	}
}

func TestStatisticsReflectLiveParticipation(t *testing.T) {
	f := newFixture(4)
	ballot := f.openSealedBallot(t, 3)
	f.cast(t, ballot.BallotID, "p-1", "yes")
	f.cast(t, ballot.BallotID, "p-2", "no")

	stats, err := f.queries.Statistics(context.Background(), ballot.BallotID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.EligibleVoters != 4 || stats.TotalResponses != 2 {
		t.Fatalf("unexpected counts: eligible=%d responses=%d", stats.EligibleVoters, stats.TotalResponses)
	}
	if stats.ParticipationRate != 50.0 {
		t.Fatalf("expected participation 50, got %v", stats.ParticipationRate)
	}
	if stats.QuorumAchieved {
		t.Fatal("2 of 3 required responses must not reach quorum")
	}
	if !stats.IsOpen || stats.IsClosed {
		t.Fatalf("unexpected state flags: open=%v closed=%v", stats.IsOpen, stats.IsClosed)
	}
}

func TestResultsRequireClosedBallot(t *testing.T) {
	f := newFixture(3)
	ballot := f.openSealedBallot(t, 2)

	if _, err := f.queries.Results(context.Background(), ballot.BallotID); !errors.Is(err, domainerrors.ErrBallotNotClosed) {
		t.Fatalf("expected ErrBallotNotClosed, got %v", err)
	}
}

func TestVerifyIntegrityReportsOpenBallotInvalid(t *testing.T) {
	f := newFixture(3)
	ballot := f.openSealedBallot(t, 2)

	report, err := f.queries.VerifyIntegrity(context.Background(), ballot.BallotID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if report.Valid || report.Reason != "ballot is not closed" {
		t.Fatalf("open ballot must not verify, got %+v", report)
	}
}

func TestVerifyIntegrityRoundTrip(t *testing.T) {
	f := newFixture(5)
	ballot := f.openSealedBallot(t, 3)
	f.cast(t, ballot.BallotID, "p-1", "yes")
	f.cast(t, ballot.BallotID, "p-2", "yes")
	f.cast(t, ballot.BallotID, "p-3", "no")

	if _, err := f.engine.Close(context.Background(), ballot.BallotID, "", "president-1"); err != nil {
		t.Fatalf("close ballot: %v", err)
	}

	report, err := f.queries.VerifyIntegrity(context.Background(), ballot.BallotID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.Valid || report.CorruptedCount != 0 {
		t.Fatalf("untouched ballot must verify, got %+v", report)
	}
	if report.VerifiedAt.IsZero() {
		t.Fatal("expected a verification timestamp")
	}
}

func TestVerifyIntegrityDetectsCorruptedResponse(t *testing.T) {
	f := newFixture(5)
	ballot := f.openSealedBallot(t, 3)
	f.cast(t, ballot.BallotID, "p-1", "yes")
	f.cast(t, ballot.BallotID, "p-2", "yes")
	f.cast(t, ballot.BallotID, "p-3", "no")

	if _, err := f.engine.Close(context.Background(), ballot.BallotID, "", "president-1"); err != nil {
		t.Fatalf("close ballot: %v", err)
	}

	f.store.CorruptResponse(ballot.BallotID, "p-2", []byte("tampered blob"))

	report, err := f.queries.VerifyIntegrity(context.Background(), ballot.BallotID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if report.Valid {
		t.Fatal("tampered response must fail verification")
	}
	if report.Reason != "corrupted responses" || report.CorruptedCount != 1 {
		t.Fatalf("expected exactly one corrupted response, got %+v", report)
	}
}

func TestCountBySessionClassifiesOutcomes(t *testing.T) {
	f := newFixture(5)

	adopted := f.openSealedBallot(t, 2)
	f.cast(t, adopted.BallotID, "p-1", "yes")
	f.cast(t, adopted.BallotID, "p-2", "yes")
	if _, err := f.engine.Close(context.Background(), adopted.BallotID, "", "president-1"); err != nil {
		t.Fatalf("close ballot: %v", err)
	}

	f.openSealedBallot(t, 2)

	counts, err := f.queries.CountBySession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("count by session: %v", err)
	}
	if counts.Total != 2 || counts.Closed != 1 || counts.Decisions != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
