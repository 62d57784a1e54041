package entities

import (
	"math"
	"strings"
)

const (
	OutcomeAdopted       = "adopted"
	OutcomeRejected      = "rejected"
	OutcomeDecided       = "decided"
	OutcomeNoMajority    = "no_majority"
	OutcomePendingReview = "pending_review"
)

type OptionCount struct {
	Label      string
	Count      int
	Percentage float64
}

type Summary struct {
	TotalEligible     int
	TotalVotes        int
	ParticipationRate float64
	QuorumAchieved    bool
	Outcome           string
	Winner            string
	MajorityAchieved  bool
	WinningPercentage float64
}

type TallyResult struct {
	Detailed map[string]OptionCount
	Summary  Summary
}

// Tally computes the deterministic result for a ballot given the decoded
// choices of every cast response. Choices are option ids; entries that do
// not match any option are ignored by the counters but still contribute to
// the participation figures.
func Tally(ballot Ballot, choices []string, eligibleVoters int) TallyResult {
	totalVotes := len(choices)
	result := TallyResult{
		Detailed: map[string]OptionCount{},
		Summary: Summary{
			TotalEligible:     eligibleVoters,
			TotalVotes:        totalVotes,
			ParticipationRate: percentage(totalVotes, eligibleVoters),
			QuorumAchieved:    totalVotes >= ballot.QuorumRequired,
			Outcome:           OutcomePendingReview,
		},
	}

	switch ballot.Type {
	case TypeSimple:
		tallySimple(ballot, choices, &result)
	case TypeMultipleChoice, TypeElection:
		tallyByOption(ballot, choices, &result)
	case TypeRanking, TypeApproval:
		// Scoring rules for these types are not defined; only the common
		// summary figures are produced and the outcome stays pending.
		tallyByOption(ballot, choices, &result)
		result.Summary.Outcome = OutcomePendingReview
		result.Summary.Winner = ""
		result.Summary.MajorityAchieved = false
		result.Summary.WinningPercentage = 0
	}
	return result
}

// tallySimple counts yes/no/abstention. Abstentions are excluded from the
// majority base: adoption requires yes votes strictly above the threshold
// of yes+no.
func tallySimple(ballot Ballot, choices []string, result *TallyResult) {
	counts := map[string]int{ChoiceYes: 0, ChoiceNo: 0, ChoiceAbstention: 0}
	for _, choice := range choices {
		key := strings.ToLower(strings.TrimSpace(choice))
		if _, ok := counts[key]; ok {
			counts[key]++
		}
	}

	base := counts[ChoiceYes] + counts[ChoiceNo]
	threshold := float64(base) * ballot.MajorityRequired / 100
	adopted := float64(counts[ChoiceYes]) > threshold

	result.Detailed[ChoiceYes] = OptionCount{Label: "Yes", Count: counts[ChoiceYes]}
	result.Detailed[ChoiceNo] = OptionCount{Label: "No", Count: counts[ChoiceNo]}
	result.Detailed[ChoiceAbstention] = OptionCount{Label: "Abstention", Count: counts[ChoiceAbstention]}

	result.Summary.MajorityAchieved = adopted
	result.Summary.WinningPercentage = percentage(counts[ChoiceYes], base)
	if adopted {
		result.Summary.Outcome = OutcomeAdopted
		result.Summary.Winner = "Yes"
	} else {
		result.Summary.Outcome = OutcomeRejected
	}
}

// tallyByOption counts per option with all responses as the majority base.
// A tie on the maximum count resolves to no majority before the threshold
// comparison is even made.
func tallyByOption(ballot Ballot, choices []string, result *TallyResult) {
	counts := make(map[string]int, len(ballot.Options))
	for _, option := range ballot.Options {
		counts[option.ID] = 0
	}
	for _, choice := range choices {
		if _, ok := counts[choice]; ok {
			counts[choice]++
		}
	}

	totalVotes := result.Summary.TotalVotes
	var winner Option
	winnerCount := -1
	tied := false
	for _, option := range ballot.Options {
		count := counts[option.ID]
		result.Detailed[option.ID] = OptionCount{
			Label:      option.Label,
			Count:      count,
			Percentage: percentage(count, totalVotes),
		}
		if count > winnerCount {
			winner = option
			winnerCount = count
			tied = false
		} else if count == winnerCount {
			tied = true
		}
	}
	if winnerCount < 0 {
		return
	}

	threshold := float64(totalVotes) * ballot.MajorityRequired / 100
	decided := !tied && float64(winnerCount) > threshold

	result.Summary.MajorityAchieved = decided
	result.Summary.WinningPercentage = percentage(winnerCount, totalVotes)
	if decided {
		result.Summary.Outcome = OutcomeDecided
		result.Summary.Winner = winner.Label
	} else {
		result.Summary.Outcome = OutcomeNoMajority
	}
}

func percentage(part int, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}
