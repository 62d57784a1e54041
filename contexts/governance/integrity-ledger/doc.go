// Package integrityledger computes the tamper-evidence chain for ballots:
// a random seed when a ballot opens, a deterministic token for every cast
// response, and a final digest over the ordered response set when the
// ballot closes. It also derives the per-ballot AES-256-GCM sealer used to
// encrypt response payloads at rest.
package integrityledger
