package commands

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
	"plenum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "plenum/contexts/governance/ballot-engine/domain/errors"
	"plenum/contexts/governance/ballot-engine/ports"
)

// fakeLedger is deterministic and payload-sensitive, which is all the
// engine relies on.
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

// rosterOf builds n voters p-1..p-n, each holding its own weight.
func rosterOf(n int) fakeRoster {
	roster := fakeRoster{weights: map[string][]ports.Weight{}}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p-%d", i)
		roster.voters = append(roster.voters, ports.Voter{
			ParticipantID: id,
			IdentityID:    "identity-" + id,
			DisplayName:   "Voter " + id,
		})
		roster.weights[id] = []ports.Weight{{Kind: ports.WeightOwn, ParticipantID: id, IdentityID: "identity-" + id}}
	}
	return roster
}

type scriptedGateway struct {
	live bool
}

func (g scriptedGateway) SessionIsLive(_ context.Context, _ string) (bool, error) {
	return g.live, nil
}

type adjustableClock struct {
	current time.Time
}

func (c *adjustableClock) Now() time.Time { return c.current }

func (c *adjustableClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newEngine(store *memory.Store, roster fakeRoster, clock *adjustableClock) BallotUseCase {
	uc := BallotUseCase{
		Ballots:  store,
		Roster:   roster,
		Sessions: scriptedGateway{live: true},
		Ledger:   fakeLedger{},
		Outbox:   store,
		Audit:    store,
		Notifier: store,
		Clock:    store,
		IDGen:    store,
	}
	if clock != nil {
		uc.Clock = clock
	}
	return uc
}

func createSimple(t *testing.T, uc BallotUseCase, quorum int) entities.Ballot {
	t.Helper()
	ballot, err := uc.Create(context.Background(), CreateBallotCommand{
		SessionID:      "session-1",
		Title:          "Approve the annual budget",
		Question:       "Shall the annual budget be approved?",
		Type:           entities.TypeSimple,
		QuorumRequired: quorum,
		Actor:          "secretary-1",
	})
	if err != nil {
		t.Fatalf("create ballot: %v", err)
	}
	return ballot
}

func openBallot(t *testing.T, uc BallotUseCase, ballotID string) entities.Ballot {
	t.Helper()
	ballot, err := uc.Open(context.Background(), ballotID, "president-1")
	if err != nil {
		t.Fatalf("open ballot: %v", err)
	}
	return ballot
}

func castChoice(t *testing.T, uc BallotUseCase, ballotID string, participantID string, choice string) entities.VoteResponse {
	t.Helper()
	response, err := uc.CastVote(context.Background(), CastVoteCommand{
		BallotID:      ballotID,
		ParticipantID: participantID,
		Payload:       entities.VotePayload{Choice: choice},
	})
	if err != nil {
		t.Fatalf("cast %s for %s: %v", choice, participantID, err)
	}
	return response
}

func TestCreateSimpleBallotAppliesDefaults(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(3), nil)

	ballot := createSimple(t, uc, 2)
	if ballot.Status != entities.StatusDraft {
		t.Fatalf("new ballot must be draft, got %s", ballot.Status)
	}
	if ballot.MajorityRequired != 50.0 {
		t.Fatalf("expected default majority 50, got %v", ballot.MajorityRequired)
	}
	if ballot.Secrecy != entities.SecrecyOpen {
		t.Fatalf("expected default secrecy open, got %s", ballot.Secrecy)
	}
	ids := ballot.OptionIDs()
	if len(ids) != 3 || ids[0] != entities.ChoiceYes || ids[1] != entities.ChoiceNo || ids[2] != entities.ChoiceAbstention {
		t.Fatalf("simple ballot must carry the fixed options, got %v", ids)
	}
}

func TestCreateRejectsDuplicateOptionIDs(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(3), nil)

	_, err := uc.Create(context.Background(), CreateBallotCommand{
		SessionID: "session-1",
		Title:     "Board seat election",
		Type:      entities.TypeElection,
		Options: []entities.Option{
			{ID: "candidate-a", Label: "Candidate A"},
			{ID: "candidate-a", Label: "Candidate A again"},
		},
		Actor: "secretary-1",
	})
	if !errors.Is(err, domainerrors.ErrInvalidBallotInput) {
		t.Fatalf("expected ErrInvalidBallotInput, got %v", err)
	}
}

func TestOpenRequiresLiveSession(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(3), nil)
	uc.Sessions = scriptedGateway{live: false}

	ballot := createSimple(t, uc, 2)
	if _, err := uc.Open(context.Background(), ballot.BallotID, "president-1"); !errors.Is(err, domainerrors.ErrSessionNotLive) {
		t.Fatalf("expected ErrSessionNotLive, got %v", err)
	}

	stored, err := store.Get(context.Background(), ballot.BallotID)
	if err != nil {
		t.Fatalf("get ballot: %v", err)
	}
	if stored.Status != entities.StatusDraft {
		t.Fatalf("failed open must not transition, status %s", stored.Status)
	}
}

func TestOpenRequiresEnoughEligibleVoters(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(2), nil)

	ballot := createSimple(t, uc, 5)
	if _, err := uc.Open(context.Background(), ballot.BallotID, "president-1"); !errors.Is(err, domainerrors.ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet, got %v", err)
	}
}

func TestOpenSeedsIntegrityChainAndDeadline(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(5), nil)

	created, err := uc.Create(context.Background(), CreateBallotCommand{
		SessionID:       "session-1",
		Title:           "Approve the annual budget",
		Type:            entities.TypeSimple,
		QuorumRequired:  3,
		DurationMinutes: 30,
		Actor:           "secretary-1",
	})
	if err != nil {
		t.Fatalf("create ballot: %v", err)
	}

	opened := openBallot(t, uc, created.BallotID)
	if opened.Status != entities.StatusOpen {
		t.Fatalf("expected open, got %s", opened.Status)
	}
	if opened.SecuritySeed == "" {
		t.Fatal("opening must seed the integrity chain")
	}
	if opened.StartedAt == nil || opened.EndsAt == nil {
		t.Fatal("expected started_at and ends_at to be set")
	}
	if got := opened.EndsAt.Sub(*opened.StartedAt); got != 30*time.Minute {
		t.Fatalf("expected a 30 minute window, got %v", got)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "governance.ballot.opened" {
		t.Fatalf("expected a single ballot.opened outbox row, got %+v", pending)
	}
}

func TestCastVoteRejectsSecondCast(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(5), nil)

	ballot := createSimple(t, uc, 3)
	openBallot(t, uc, ballot.BallotID)

	first := castChoice(t, uc, ballot.BallotID, "p-1", "yes")
	_, err := uc.CastVote(context.Background(), CastVoteCommand{
		BallotID:      ballot.BallotID,
		ParticipantID: "p-1",
		Payload:       entities.VotePayload{Choice: "no"},
	})
	if !errors.Is(err, domainerrors.ErrDuplicateResponse) {
		t.Fatalf("expected ErrDuplicateResponse, got %v", err)
	}

	responses, err := store.ListResponses(context.Background(), ballot.BallotID)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	if len(responses) != 1 || responses[0].SecurityToken != first.SecurityToken {
		t.Fatalf("first response must stand unchanged, got %d responses", len(responses))
	}
}

func TestCastVoteDelegationExclusivity(t *testing.T) {
	store := memory.NewStore(nil)
	roster := rosterOf(3)
	// p-2 delegated its weight to p-1: p-1 holds its own weight plus the
	// delegated one, p-2 holds nothing.
	roster.weights["p-1"] = append(roster.weights["p-1"], ports.Weight{
		Kind:          ports.WeightDelegated,
		ParticipantID: "p-2",
		IdentityID:    "identity-p-2",
	})
	roster.weights["p-2"] = nil
	uc := newEngine(store, roster, nil)

	ballot := createSimple(t, uc, 2)
	openBallot(t, uc, ballot.BallotID)

	_, err := uc.CastVote(context.Background(), CastVoteCommand{
		BallotID:      ballot.BallotID,
		ParticipantID: "p-2",
		Payload:       entities.VotePayload{Choice: "yes"},
	})
	if !errors.Is(err, domainerrors.ErrNotEligibleVoter) {
		t.Fatalf("delegated-away participant must not cast, got %v", err)
	}

	castChoice(t, uc, ballot.BallotID, "p-1", "yes")
	delegated, err := uc.CastVote(context.Background(), CastVoteCommand{
		BallotID:      ballot.BallotID,
		ParticipantID: "p-1",
		Payload:       entities.VotePayload{Choice: "no"},
		OnBehalfOf:    "p-2",
	})
	if err != nil {
		t.Fatalf("delegate must cast the delegated weight: %v", err)
	}
	if delegated.OnBehalfOf != "p-2" {
		t.Fatalf("expected on_behalf_of p-2, got %q", delegated.OnBehalfOf)
	}

	count, err := store.CountResponses(context.Background(), ballot.BallotID)
	if err != nil {
		t.Fatalf("count responses: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected own plus delegated response, got %d", count)
	}
}

func TestCastVoteRejectsExpiredBallot(t *testing.T) {
	store := memory.NewStore(nil)
	clock := &adjustableClock{current: time.Now().UTC()}
	uc := newEngine(store, rosterOf(3), clock)

	created, err := uc.Create(context.Background(), CreateBallotCommand{
		SessionID:       "session-1",
		Title:           "Approve the annual budget",
		Type:            entities.TypeSimple,
		QuorumRequired:  2,
		DurationMinutes: 5,
		Actor:           "secretary-1",
	})
	if err != nil {
		t.Fatalf("create ballot: %v", err)
	}
	openBallot(t, uc, created.BallotID)

	clock.Advance(6 * time.Minute)
	_, err = uc.CastVote(context.Background(), CastVoteCommand{
		BallotID:      created.BallotID,
		ParticipantID: "p-1",
		Payload:       entities.VotePayload{Choice: "yes"},
	})
	if !errors.Is(err, domainerrors.ErrBallotExpired) {
		t.Fatalf("expected ErrBallotExpired, got %v", err)
	}
}

func TestSealedBallotStoresCiphertext(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(3), nil)

	created, err := uc.Create(context.Background(), CreateBallotCommand{
		SessionID:      "session-1",
		Title:          "Confidential motion",
		Type:           entities.TypeSimple,
		Secrecy:        entities.SecrecySecret,
		QuorumRequired: 2,
		Actor:          "secretary-1",
	})
	if err != nil {
		t.Fatalf("create ballot: %v", err)
	}
	openBallot(t, uc, created.BallotID)
	castChoice(t, uc, created.BallotID, "p-1", "yes")

	responses, err := store.ListResponses(context.Background(), created.BallotID)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected one response, got %d", len(responses))
	}
	if !responses[0].Sealed {
		t.Fatal("secret ballot response must be marked sealed")
	}
	if bytes.Contains(responses[0].Payload, []byte(`"choice":"yes"`)) {
		t.Fatal("sealed payload must not contain the plaintext choice")
	}
}

func TestCloseTalliesSimpleBallot(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(10), nil)

	ballot := createSimple(t, uc, 5)
	openBallot(t, uc, ballot.BallotID)

	for _, participant := range []string{"p-1", "p-2", "p-3", "p-4"} {
		castChoice(t, uc, ballot.BallotID, participant, "yes")
	}
	castChoice(t, uc, ballot.BallotID, "p-5", "no")
	castChoice(t, uc, ballot.BallotID, "p-6", "abstention")

	closed, err := uc.Close(context.Background(), ballot.BallotID, "agenda item finished", "president-1")
	if err != nil {
		t.Fatalf("close ballot: %v", err)
	}
	if closed.Status != entities.StatusClosed || closed.Results == nil {
		t.Fatalf("expected closed ballot with results, got %s", closed.Status)
	}
	summary := closed.Results.Summary
	if summary.Outcome != entities.OutcomeAdopted {
		t.Fatalf("4 yes vs 1 no above 50%% must adopt, got %s", summary.Outcome)
	}
	if summary.WinningPercentage != 80.0 {
		t.Fatalf("expected winning percentage 80, got %v", summary.WinningPercentage)
	}
	if summary.ParticipationRate != 60.0 {
		t.Fatalf("expected participation 60, got %v", summary.ParticipationRate)
	}
	if !summary.QuorumAchieved {
		t.Fatal("6 of 10 votes meet a quorum of 5")
	}
	if closed.FinalDigest == "" {
		t.Fatal("closing must freeze a final digest")
	}
	if _, err := uc.Close(context.Background(), ballot.BallotID, "again", "president-1"); !errors.Is(err, domainerrors.ErrBallotNotOpen) {
		t.Fatalf("second close must fail with ErrBallotNotOpen, got %v", err)
	}
}

func TestCloseMultipleChoiceTieHasNoMajority(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(10), nil)

	created, err := uc.Create(context.Background(), CreateBallotCommand{
		SessionID: "session-1",
		Title:     "Venue for the assembly",
		Type:      entities.TypeMultipleChoice,
		Options: []entities.Option{
			{ID: "venue-a", Label: "Venue A"},
			{ID: "venue-b", Label: "Venue B"},
		},
		QuorumRequired: 5,
		Actor:          "secretary-1",
	})
	if err != nil {
		t.Fatalf("create ballot: %v", err)
	}
	openBallot(t, uc, created.BallotID)

	for _, participant := range []string{"p-1", "p-2", "p-3", "p-4", "p-5"} {
		castChoice(t, uc, created.BallotID, participant, "venue-a")
	}
	for _, participant := range []string{"p-6", "p-7", "p-8", "p-9", "p-10"} {
		castChoice(t, uc, created.BallotID, participant, "venue-b")
	}

	closed, err := uc.Close(context.Background(), created.BallotID, "", "president-1")
	if err != nil {
		t.Fatalf("close ballot: %v", err)
	}
	summary := closed.Results.Summary
	if summary.Outcome != entities.OutcomeNoMajority {
		t.Fatalf("a 5:5 tie must end in no_majority, got %s", summary.Outcome)
	}
	if summary.Winner != "" {
		t.Fatalf("a tie has no winner, got %q", summary.Winner)
	}
}

func TestCancelForbiddenOnceClosed(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(3), nil)

	ballot := createSimple(t, uc, 2)
	openBallot(t, uc, ballot.BallotID)
	if _, err := uc.Close(context.Background(), ballot.BallotID, "", "president-1"); err != nil {
		t.Fatalf("close ballot: %v", err)
	}

	if _, err := uc.Cancel(context.Background(), ballot.BallotID, "changed our minds", "president-1"); !errors.Is(err, domainerrors.ErrBallotAlreadyClosed) {
		t.Fatalf("expected ErrBallotAlreadyClosed, got %v", err)
	}
}

func TestLifecycleEmitsAuditTrail(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newEngine(store, rosterOf(3), nil)

	ballot := createSimple(t, uc, 2)
	openBallot(t, uc, ballot.BallotID)
	castChoice(t, uc, ballot.BallotID, "p-1", "yes")
	if _, err := uc.Close(context.Background(), ballot.BallotID, "", "president-1"); err != nil {
		t.Fatalf("close ballot: %v", err)
	}

	kinds := map[string]bool{}
	for _, event := range store.AuditEvents() {
		kinds[event.Kind] = true
	}
	for _, expected := range []string{"ballot_created", "ballot_opened", "vote_cast", "ballot_closed"} {
		if !kinds[expected] {
			t.Fatalf("missing audit event %s, have %v", expected, kinds)
		}
	}
}
