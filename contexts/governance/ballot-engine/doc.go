// Package ballotengine owns formal votes inside live sessions: the ballot
// state machine (draft, open, closed, cancelled), weighted casting with
// delegation, sealed storage for secret ballots, deterministic tallying at
// closure and cryptographic integrity verification of frozen results.
// Lifecycle events leave through a transactional outbox drained by the
// relay worker; the deadline sweeper closes ballots whose voting window
// has elapsed.
package ballotengine
