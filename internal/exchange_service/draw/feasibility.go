package draw

import (
	"fmt"

	"github.com/google/uuid"
)

// MinParticipants is the floor below which a meaningful exchange cannot run.
const MinParticipants = 3

// ValidationResult reports whether a complete valid assignment exists for the
// given participants and exclusions, with human-readable reasons when it does not.
type ValidationResult struct {
	Feasible         bool     `json:"feasible"`
	ParticipantCount int      `json:"participant_count"`
	ExclusionCount   int      `json:"exclusion_count"`
	Errors           []string `json:"errors"`
}

// Validate decides whether at least one derangement of the participants exists
// that respects every exclusion pair.
//
// The per-participant empty-candidate check only produces specific error
// messages; the authoritative test is a maximum bipartite matching over the
// candidate graph. A graph where every node has at least one candidate can
// still be infeasible (isolated subsets), so the degree check is never
// sufficient on its own.
func Validate(participants []uuid.UUID, exclusions []Pair) ValidationResult {
	result := ValidationResult{
		ParticipantCount: len(participants),
		ExclusionCount:   len(exclusions),
	}

	if len(participants) < MinParticipants {
		result.Errors = append(result.Errors,
			fmt.Sprintf("a draw requires at least %d participants, got %d", MinParticipants, len(participants)))
		return result
	}

	adj := buildAdjacency(participants, exclusions)
	for i, candidates := range adj {
		if len(candidates) == 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("exclusion rules leave no valid recipient for participant %s", participants[i]))
		}
	}
	if len(result.Errors) > 0 {
		return result
	}

	_, size := maximumMatching(adj)
	if size < len(participants) {
		result.Errors = append(result.Errors,
			"exclusion rules make a complete assignment impossible even though every participant has candidates")
		return result
	}

	result.Feasible = true
	return result
}
