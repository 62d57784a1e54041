package integrityledger

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestSealerRoundTrip(t *testing.T) {
	ledger := New([]byte("service-secret"))
	seed, err := ledger.SeedBallot("ballot-1", "session-1", time.Now().UTC(), []string{"yes", "no"})
	if err != nil {
		t.Fatalf("seed ballot: %v", err)
	}
	sealer, err := ledger.SealerFor(seed)
	if err != nil {
		t.Fatalf("derive sealer: %v", err)
	}

	payload := []byte(`{"choice":"yes"}`)
	sealed, err := sealer.Seal(payload)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, payload) {
		t.Fatal("sealed blob must not contain the plaintext")
	}

	opened, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, payload) {
		t.Fatalf("round trip mismatch: %q", opened)
	}
}

func TestSealerRejectsTamperedCiphertext(t *testing.T) {
	ledger := New([]byte("service-secret"))
	sealer, err := ledger.SealerFor("seed-a")
	if err != nil {
		t.Fatalf("derive sealer: %v", err)
	}

	sealed, err := sealer.Seal([]byte(`{"choice":"no"}`))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	if _, err := sealer.Open(sealed); !errors.Is(err, ErrSealedPayloadInvalid) {
		t.Fatalf("expected ErrSealedPayloadInvalid, got %v", err)
	}
}

func TestSealerKeysDifferPerSeed(t *testing.T) {
	ledger := New([]byte("service-secret"))
	first, err := ledger.SealerFor("seed-a")
	if err != nil {
		t.Fatalf("derive sealer: %v", err)
	}
	second, err := ledger.SealerFor("seed-b")
	if err != nil {
		t.Fatalf("derive sealer: %v", err)
	}

	sealed, err := first.Seal([]byte(`{"choice":"abstention"}`))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := second.Open(sealed); !errors.Is(err, ErrSealedPayloadInvalid) {
		t.Fatalf("expected cross-seed open to fail, got %v", err)
	}
}

func TestNewSealerRejectsShortKey(t *testing.T) {
	if _, err := NewSealer([]byte("short")); err == nil {
		t.Fatal("expected error for non-32-byte key")
	}
}
