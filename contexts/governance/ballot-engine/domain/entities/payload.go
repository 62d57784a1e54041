package entities

import (
	"encoding/json"
	"strings"
)

// VotePayload is the decoded shape of a response. Choice carries the
// selected option for simple/multiple-choice/election ballots; Rankings and
// Approvals serve the reserved types.
type VotePayload struct {
	Choice    string   `json:"choice,omitempty"`
	Rankings  []string `json:"rankings,omitempty"`
	Approvals []string `json:"approvals,omitempty"`
}

// Normalize validates the payload against the ballot type and returns the
// canonical encoding used for sealing and integrity tokens. The canonical
// form is stable: lowercased simple choices, trimmed ids, fixed field
// order via struct tags.
func (p VotePayload) Normalize(ballot Ballot) ([]byte, VotePayload, bool) {
	normalized := VotePayload{}
	switch ballot.Type {
	case TypeSimple:
		choice := strings.ToLower(strings.TrimSpace(p.Choice))
		if choice != ChoiceYes && choice != ChoiceNo && choice != ChoiceAbstention {
			return nil, VotePayload{}, false
		}
		normalized.Choice = choice
	case TypeMultipleChoice, TypeElection:
		choice := strings.TrimSpace(p.Choice)
		if !ballot.HasOption(choice) {
			return nil, VotePayload{}, false
		}
		normalized.Choice = choice
	case TypeRanking:
		if len(p.Rankings) == 0 {
			return nil, VotePayload{}, false
		}
		seen := map[string]bool{}
		for _, id := range p.Rankings {
			id = strings.TrimSpace(id)
			if !ballot.HasOption(id) || seen[id] {
				return nil, VotePayload{}, false
			}
			seen[id] = true
			normalized.Rankings = append(normalized.Rankings, id)
		}
	case TypeApproval:
		seen := map[string]bool{}
		for _, id := range p.Approvals {
			id = strings.TrimSpace(id)
			if !ballot.HasOption(id) || seen[id] {
				return nil, VotePayload{}, false
			}
			seen[id] = true
			normalized.Approvals = append(normalized.Approvals, id)
		}
	default:
		return nil, VotePayload{}, false
	}

	canonical, err := json.Marshal(normalized)
	if err != nil {
		return nil, VotePayload{}, false
	}
	return canonical, normalized, true
}

// DecodePayload parses a stored plaintext payload back into its shape.
func DecodePayload(raw []byte) (VotePayload, error) {
	var payload VotePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return VotePayload{}, err
	}
	return payload, nil
}
