package integrityledger

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Ledger derives the digests that make a ballot's response set tamper
// evident: a per-ballot seed at open, a per-response token at cast, and a
// final digest over the full response set at close. All digests are hex
// encoded sha256. The service secret only feeds sealing-key derivation;
// tokens stay reproducible from stored data so verification can recompute
// them.
type Ledger struct {
	secret []byte
}

func New(secret []byte) Ledger {
	return Ledger{secret: append([]byte(nil), secret...)}
}

// SeedBallot binds fresh randomness to the ballot identity, session, open
// timestamp and option set. The seed is stored as the ballot security hash
// and anchors sealing-key derivation.
func (l Ledger) SeedBallot(ballotID string, sessionID string, openedAt time.Time, optionIDs []string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read seed randomness: %w", err)
	}
	payload, err := json.Marshal(map[string]any{
		"ballot_id":  ballotID,
		"session_id": sessionID,
		"opened_at":  openedAt.UTC().Format(time.RFC3339Nano),
		"options":    optionIDs,
		"nonce":      hex.EncodeToString(nonce),
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// TokenForResponse is deterministic over the response identity and payload.
// Recomputing it later requires the original (decrypted) payload, which is
// what lets verification detect a mutated stored response.
func (l Ledger) TokenForResponse(ballotID string, participantID string, payload []byte, castAt time.Time, origin string) string {
	raw, _ := json.Marshal(map[string]string{
		"ballot_id":      ballotID,
		"participant_id": participantID,
		"payload":        hex.EncodeToString(payload),
		"cast_at":        castAt.UTC().Format(time.RFC3339Nano),
		"origin":         origin,
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// FinalDigest hashes each response token, sorts the hashes, and digests
// them together with the ballot id, close timestamp and stored results.
// Sorting makes the digest independent of response retrieval order.
func (l Ledger) FinalDigest(ballotID string, closedAt time.Time, responseTokens []string, results []byte) string {
	hashes := make([]string, 0, len(responseTokens))
	for _, token := range responseTokens {
		sum := sha256.Sum256([]byte(token))
		hashes = append(hashes, hex.EncodeToString(sum[:]))
	}
	sort.Strings(hashes)

	raw, _ := json.Marshal(map[string]any{
		"ballot_id":   ballotID,
		"closed_at":   closedAt.UTC().Format(time.RFC3339Nano),
		"vote_hashes": hashes,
		"results":     hex.EncodeToString(results),
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// SealerFor derives the ballot's sealing key from the service secret and
// the ballot seed, so sealed payloads from different ballots never share a
// key.
func (l Ledger) SealerFor(seed string) (Sealer, error) {
	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(seed))
	return NewSealer(mac.Sum(nil))
}
