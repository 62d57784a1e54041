package workers

import (
	"context"
	"log/slog"
	"time"

	application "plenum/contexts/governance/ballot-engine/application"
	"plenum/contexts/governance/ballot-engine/application/commands"
	"plenum/contexts/governance/ballot-engine/ports"
)

// DeadlineSweeper closes open ballots whose voting deadline has passed.
// CastVote already rejects expired ballots on read; the sweeper makes the
// closure durable so results and final digests get computed.
type DeadlineSweeper struct {
	Ballots ports.BallotRepository
	Engine  commands.BallotUseCase
	Clock   ports.Clock
	Logger  *slog.Logger
}

func (s DeadlineSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}

	expired, err := s.Ballots.ListExpired(ctx, now)
	if err != nil {
		logger.Error("expired ballot listing failed",
			"event", "ballot_sweep_list_failed",
			"module", "governance/ballot-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	closed := 0
	for _, ballot := range expired {
		if _, err := s.Engine.Close(ctx, ballot.BallotID, "voting deadline reached", "system"); err != nil {
			logger.Warn("expired ballot close failed",
				"event", "ballot_sweep_close_failed",
				"module", "governance/ballot-engine",
				"layer", "worker",
				"ballot_id", ballot.BallotID,
				"error", err.Error(),
			)
			continue
		}
		closed++
	}

	if closed > 0 {
		logger.Info("deadline sweep completed",
			"event", "ballot_sweep_completed",
			"module", "governance/ballot-engine",
			"layer", "worker",
			"closed_count", closed,
		)
	}
	return nil
}
