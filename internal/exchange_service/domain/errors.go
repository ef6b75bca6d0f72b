package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden indicates the requester is not allowed to perform the action.
	ErrForbidden = errors.New("action not permitted for requester")
	// ErrAlreadyDrawn indicates a draw was requested for a group that is already drawn.
	ErrAlreadyDrawn = errors.New("group has already been drawn")
	// ErrGroupDrawn indicates a pre-draw mutation (rules, membership, budget) on a drawn group.
	ErrGroupDrawn = errors.New("group is drawn; this change is no longer allowed")
	// ErrNotDrawn indicates an assignment read before the group has been drawn.
	ErrNotDrawn = errors.New("group has not been drawn yet")
	// ErrDuplicateRule indicates the exclusion pair already exists in either order.
	ErrDuplicateRule = errors.New("exclusion rule already exists for this pair")
	// ErrDuplicateParticipant indicates the person is already a member of the group.
	ErrDuplicateParticipant = errors.New("person is already a participant of this group")
	// ErrValidation indicates malformed input (budget, self-pair, etc.).
	ErrValidation = errors.New("validation failed")
	// ErrInfeasible indicates no valid assignment exists for the current constraints.
	ErrInfeasible = errors.New("constraints make a valid assignment impossible")
)

// InfeasibleError carries the enumerated constraint violations so the owner
// can adjust exclusion rules before retrying.
type InfeasibleError struct {
	Violations []string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("infeasible constraints: %s", strings.Join(e.Violations, "; "))
}

func (e *InfeasibleError) Is(target error) bool {
	return target == ErrInfeasible
}

// ValidationError carries a field-level message alongside the ErrValidation sentinel.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
