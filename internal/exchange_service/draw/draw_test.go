package draw

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertValidAssignment(t *testing.T, participants []uuid.UUID, exclusions []Pair, result map[uuid.UUID]uuid.UUID) {
	t.Helper()

	require.Len(t, result, len(participants))

	blocked := make(map[[2]uuid.UUID]bool)
	for _, e := range exclusions {
		blocked[[2]uuid.UUID{e.A, e.B}] = true
		blocked[[2]uuid.UUID{e.B, e.A}] = true
	}

	seenRecipients := make(map[uuid.UUID]bool, len(result))
	for giver, recipient := range result {
		assert.NotEqual(t, giver, recipient, "self-assignment")
		assert.False(t, blocked[[2]uuid.UUID{giver, recipient}], "excluded pair assigned")
		assert.False(t, seenRecipients[recipient], "recipient assigned twice")
		seenRecipients[recipient] = true
	}
}

func TestDraw_ProducesValidDerangement(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := newParticipants(6)
	exclusions := []Pair{{A: p[0], B: p[1]}, {A: p[2], B: p[5]}}

	result, err := Draw(p, exclusions, rng)

	require.NoError(t, err)
	assertValidAssignment(t, p, exclusions, result)
}

func TestDraw_InfeasibleReturnsDistinctError(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := newParticipants(3)
	exclusions := []Pair{{A: p[0], B: p[1]}}

	result, err := Draw(p, exclusions, rng)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestDraw_TooFewParticipants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := Draw(newParticipants(2), nil, rng)

	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestDraw_ForcedSolutionFoundByFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := newParticipants(4)
	// Constraints tight enough that random greedy frequently dead-ends: p0 and
	// p1 both compete for the two remaining recipients.
	exclusions := []Pair{
		{A: p[0], B: p[1]},
		{A: p[2], B: p[3]},
	}

	for i := 0; i < 100; i++ {
		result, err := Draw(p, exclusions, rng)
		require.NoError(t, err)
		assertValidAssignment(t, p, exclusions, result)
	}
}

// Scenario: P = {A,B,C,D}, E = {(A,B)}. Over 1,000 runs the result must never
// contain A→A or A→B, and both A→C and A→D must occur (no structural bias).
func TestDraw_NoStructuralBias(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	p := newParticipants(4)
	a, b, c, d := p[0], p[1], p[2], p[3]
	exclusions := []Pair{{A: a, B: b}}

	counts := map[uuid.UUID]int{}
	for i := 0; i < 1000; i++ {
		result, err := Draw(p, exclusions, rng)
		require.NoError(t, err)
		assertValidAssignment(t, p, exclusions, result)

		recipient := result[a]
		require.NotEqual(t, a, recipient)
		require.NotEqual(t, b, recipient)
		counts[recipient]++
	}

	assert.Positive(t, counts[c], "A never drew C over 1000 runs")
	assert.Positive(t, counts[d], "A never drew D over 1000 runs")
}

func TestDraw_LargeGroup(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	p := newParticipants(50)
	exclusions := []Pair{
		{A: p[0], B: p[1]},
		{A: p[10], B: p[20]},
		{A: p[30], B: p[40]},
	}

	result, err := Draw(p, exclusions, rng)

	require.NoError(t, err)
	assertValidAssignment(t, p, exclusions, result)
}
