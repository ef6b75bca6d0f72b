package draw

import "github.com/google/uuid"

// Pair is an unordered exclusion between two participants.
type Pair struct {
	A uuid.UUID
	B uuid.UUID
}

// BuildCandidates returns, for each participant, the ordered list of
// recipients they are permitted to draw: everyone in the group except
// themselves and anyone they share an exclusion pair with. Pure and
// deterministic for the same inputs.
func BuildCandidates(participants []uuid.UUID, exclusions []Pair) map[uuid.UUID][]uuid.UUID {
	excluded := make(map[uuid.UUID]map[uuid.UUID]bool, len(participants))
	for _, e := range exclusions {
		if excluded[e.A] == nil {
			excluded[e.A] = make(map[uuid.UUID]bool)
		}
		if excluded[e.B] == nil {
			excluded[e.B] = make(map[uuid.UUID]bool)
		}
		excluded[e.A][e.B] = true
		excluded[e.B][e.A] = true
	}

	candidates := make(map[uuid.UUID][]uuid.UUID, len(participants))
	for _, giver := range participants {
		list := make([]uuid.UUID, 0, len(participants)-1)
		for _, recipient := range participants {
			if recipient == giver {
				continue
			}
			if excluded[giver][recipient] {
				continue
			}
			list = append(list, recipient)
		}
		candidates[giver] = list
	}
	return candidates
}

// buildAdjacency is the index-based form of BuildCandidates used by the
// matching and draw routines. adj[i] lists the participant indexes that
// participant i may give to, in input order.
func buildAdjacency(participants []uuid.UUID, exclusions []Pair) [][]int {
	index := make(map[uuid.UUID]int, len(participants))
	for i, p := range participants {
		index[p] = i
	}

	blocked := make(map[[2]int]bool, len(exclusions)*2)
	for _, e := range exclusions {
		ia, okA := index[e.A]
		ib, okB := index[e.B]
		if !okA || !okB {
			continue
		}
		blocked[[2]int{ia, ib}] = true
		blocked[[2]int{ib, ia}] = true
	}

	adj := make([][]int, len(participants))
	for i := range participants {
		for j := range participants {
			if i == j || blocked[[2]int{i, j}] {
				continue
			}
			adj[i] = append(adj[i], j)
		}
	}
	return adj
}
