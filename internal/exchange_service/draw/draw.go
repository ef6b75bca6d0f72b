package draw

import (
	"errors"
	"math/rand"

	"github.com/google/uuid"
)

// ErrInfeasible is returned when no permutation satisfies the constraints.
// Callers are expected to have run Validate first; this is the safety net.
var ErrInfeasible = errors.New("no valid assignment satisfies the exclusion constraints")

// greedyAttempts bounds the cheap randomized construction before falling back
// to the matching-based solver.
const greedyAttempts = 32

// Draw produces one random giver→recipient permutation with no fixed points
// and no excluded edges. Randomization strategy: repeated randomized greedy
// construction, then a matching solve over shuffled adjacency lists when the
// retry budget is exhausted. The distribution is not uniform over all valid
// permutations but carries no structural preference for input order.
func Draw(participants []uuid.UUID, exclusions []Pair, rng *rand.Rand) (map[uuid.UUID]uuid.UUID, error) {
	n := len(participants)
	if n < MinParticipants {
		return nil, ErrInfeasible
	}
	adj := buildAdjacency(participants, exclusions)

	for attempt := 0; attempt < greedyAttempts; attempt++ {
		if assigned, ok := tryGreedy(adj, rng); ok {
			return toResult(participants, assigned), nil
		}
	}

	// Shuffling each adjacency list randomizes which of the equivalent valid
	// solutions the deterministic matching lands on.
	shuffled := make([][]int, n)
	for i, candidates := range adj {
		cp := make([]int, len(candidates))
		copy(cp, candidates)
		rng.Shuffle(len(cp), func(a, b int) { cp[a], cp[b] = cp[b], cp[a] })
		shuffled[i] = cp
	}
	matched, size := maximumMatching(shuffled)
	if size < n {
		return nil, ErrInfeasible
	}
	return toResult(participants, matched), nil
}

// tryGreedy assigns recipients to givers in a random order, picking a random
// unused candidate for each. It gives up on the first giver with no remaining
// candidate; completeness is the fallback solver's job.
func tryGreedy(adj [][]int, rng *rand.Rand) ([]int, bool) {
	n := len(adj)
	order := rng.Perm(n)
	assigned := make([]int, n)
	for i := range assigned {
		assigned[i] = -1
	}
	used := make([]bool, n)

	for _, giver := range order {
		candidates := adj[giver]
		free := make([]int, 0, len(candidates))
		for _, recipient := range candidates {
			if !used[recipient] {
				free = append(free, recipient)
			}
		}
		if len(free) == 0 {
			return nil, false
		}
		pick := free[rng.Intn(len(free))]
		assigned[giver] = pick
		used[pick] = true
	}
	return assigned, true
}

func toResult(participants []uuid.UUID, assigned []int) map[uuid.UUID]uuid.UUID {
	result := make(map[uuid.UUID]uuid.UUID, len(participants))
	for giver, recipient := range assigned {
		result[participants[giver]] = participants[recipient]
	}
	return result
}
