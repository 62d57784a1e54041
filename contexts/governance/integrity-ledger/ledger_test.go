package integrityledger

import (
	"testing"
	"time"
)

func TestSeedBallotIsUniquePerCall(t *testing.T) {
	ledger := New([]byte("service-secret"))
	openedAt := time.Date(2026, time.March, 10, 18, 0, 0, 0, time.UTC)

	first, err := ledger.SeedBallot("ballot-1", "session-1", openedAt, []string{"yes", "no"})
	if err != nil {
		t.Fatalf("seed ballot: %v", err)
	}
	second, err := ledger.SeedBallot("ballot-1", "session-1", openedAt, []string{"yes", "no"})
	if err != nil {
		t.Fatalf("seed ballot: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct seeds for repeated calls")
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
}

func TestTokenForResponseIsDeterministic(t *testing.T) {
	ledger := New([]byte("service-secret"))
	castAt := time.Date(2026, time.March, 10, 18, 5, 0, 0, time.UTC)

	token := ledger.TokenForResponse("ballot-1", "participant-1", []byte(`{"choice":"yes"}`), castAt, "10.0.0.4")
	again := ledger.TokenForResponse("ballot-1", "participant-1", []byte(`{"choice":"yes"}`), castAt, "10.0.0.4")
	if token != again {
		t.Fatal("expected identical tokens for identical inputs")
	}

	mutated := ledger.TokenForResponse("ballot-1", "participant-1", []byte(`{"choice":"no"}`), castAt, "10.0.0.4")
	if token == mutated {
		t.Fatal("expected payload change to change the token")
	}
}

func TestFinalDigestIgnoresTokenOrder(t *testing.T) {
	ledger := New([]byte("service-secret"))
	closedAt := time.Date(2026, time.March, 10, 19, 0, 0, 0, time.UTC)
	results := []byte(`{"outcome":"adopted"}`)

	forward := ledger.FinalDigest("ballot-1", closedAt, []string{"t1", "t2", "t3"}, results)
	reversed := ledger.FinalDigest("ballot-1", closedAt, []string{"t3", "t2", "t1"}, results)
	if forward != reversed {
		t.Fatal("expected digest to be independent of token order")
	}

	tampered := ledger.FinalDigest("ballot-1", closedAt, []string{"t1", "t2", "tx"}, results)
	if forward == tampered {
		t.Fatal("expected changed token set to change the digest")
	}
}
