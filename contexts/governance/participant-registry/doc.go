// Package participantregistry owns the session roster inside the
// governance context: attendance transitions, invitation responses,
// voting-rights delegation with cycle detection, and quorum computation.
//
// Quorum is always recomputed from current attendance; the snapshot stored
// on a session is display-only. Business rules live in application/domain
// layers behind ports, with memory and postgres adapters.
package participantregistry
