package draw

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newParticipants(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestBuildCandidates_ExcludesSelfAndPairs(t *testing.T) {
	p := newParticipants(4)
	exclusions := []Pair{{A: p[0], B: p[1]}}

	candidates := BuildCandidates(p, exclusions)

	assert.ElementsMatch(t, []uuid.UUID{p[2], p[3]}, candidates[p[0]])
	assert.ElementsMatch(t, []uuid.UUID{p[2], p[3]}, candidates[p[1]])
	assert.ElementsMatch(t, []uuid.UUID{p[0], p[1], p[3]}, candidates[p[2]])
	assert.ElementsMatch(t, []uuid.UUID{p[0], p[1], p[2]}, candidates[p[3]])
}

func TestBuildCandidates_Deterministic(t *testing.T) {
	p := newParticipants(5)
	exclusions := []Pair{{A: p[1], B: p[3]}}

	first := BuildCandidates(p, exclusions)
	second := BuildCandidates(p, exclusions)

	assert.Equal(t, first, second)
}

func TestValidate_MinimumParticipants(t *testing.T) {
	p := newParticipants(2)

	result := Validate(p, nil)

	assert.False(t, result.Feasible)
	assert.Equal(t, 2, result.ParticipantCount)
	assert.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "at least 3 participants")
}

func TestValidate_FeasibleWithoutExclusions(t *testing.T) {
	result := Validate(newParticipants(3), nil)

	assert.True(t, result.Feasible)
	assert.Empty(t, result.Errors)
}

func TestValidate_EmptyCandidateSet(t *testing.T) {
	p := newParticipants(3)
	// p0 is excluded with everyone else and has no one left to give to.
	exclusions := []Pair{
		{A: p[0], B: p[1]},
		{A: p[0], B: p[2]},
	}

	result := Validate(p, exclusions)

	assert.False(t, result.Feasible)
	assert.Contains(t, result.Errors[0], "no valid recipient")
	assert.Contains(t, result.Errors[0], p[0].String())
}

func TestValidate_ThreeParticipantsOneExclusionIsInfeasible(t *testing.T) {
	p := newParticipants(3)
	// Both p0 and p1 can only give to p2, who can receive from just one of them.
	exclusions := []Pair{{A: p[0], B: p[1]}}

	result := Validate(p, exclusions)

	assert.False(t, result.Feasible)
	assert.NotEmpty(t, result.Errors)
}

func TestValidate_NonEmptyDegreesCanStillBeInfeasible(t *testing.T) {
	p := newParticipants(4)
	// p0, p1 and p2 each have exactly one candidate (p3), so every participant
	// has a non-empty candidate set yet no complete assignment exists. This is
	// the case a degree-only check would wrongly accept.
	exclusions := []Pair{
		{A: p[0], B: p[1]},
		{A: p[0], B: p[2]},
		{A: p[1], B: p[2]},
	}

	result := Validate(p, exclusions)

	assert.False(t, result.Feasible)
	assert.Contains(t, result.Errors[0], "complete assignment impossible")
}

func TestValidate_TightButFeasible(t *testing.T) {
	p := newParticipants(4)
	exclusions := []Pair{
		{A: p[0], B: p[1]},
		{A: p[2], B: p[3]},
	}

	result := Validate(p, exclusions)

	assert.True(t, result.Feasible)
	assert.Equal(t, 2, result.ExclusionCount)
}
