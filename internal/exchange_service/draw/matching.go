package draw

// maximumMatching runs Kuhn's augmenting-path algorithm on the bipartite
// giver→recipient graph. It returns matchedRecipient[i] = recipient index for
// giver i (-1 if unmatched) and the matching size. The assignment is complete
// iff size == len(adj).
func maximumMatching(adj [][]int) (matchedRecipient []int, size int) {
	n := len(adj)
	matchedRecipient = make([]int, n)
	recipientGiver := make([]int, n)
	for i := 0; i < n; i++ {
		matchedRecipient[i] = -1
		recipientGiver[i] = -1
	}

	var visited []bool
	var tryAugment func(giver int) bool
	tryAugment = func(giver int) bool {
		for _, recipient := range adj[giver] {
			if visited[recipient] {
				continue
			}
			visited[recipient] = true
			if recipientGiver[recipient] == -1 || tryAugment(recipientGiver[recipient]) {
				recipientGiver[recipient] = giver
				matchedRecipient[giver] = recipient
				return true
			}
		}
		return false
	}

	for giver := 0; giver < n; giver++ {
		visited = make([]bool, n)
		if tryAugment(giver) {
			size++
		}
	}
	return matchedRecipient, size
}
