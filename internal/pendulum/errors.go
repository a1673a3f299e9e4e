package pendulum

import (
	"errors"
	"fmt"
)

// Domain errors for chain operations.
var (
	// ErrInvalidParameter indicates a non-positive or non-finite mass, length
	// or time step, or an out-of-range insert position.
	ErrInvalidParameter = errors.New("pendulum: invalid parameter")

	// ErrUnknownID indicates a bob id that is not part of the chain.
	ErrUnknownID = errors.New("pendulum: unknown bob id")

	// ErrDuplicateID indicates a bob id that is already part of the chain.
	ErrDuplicateID = errors.New("pendulum: duplicate bob id")

	// ErrSingularConfiguration indicates the constraint system has no unique
	// solution for the current state. The step is skipped.
	ErrSingularConfiguration = errors.New("pendulum: singular configuration")

	// ErrNumericDivergence indicates NaN or Inf values in the system or the
	// integrated state. The chain is faulted until reset.
	ErrNumericDivergence = errors.New("pendulum: numeric divergence (NaN or Inf detected)")
)

// ChainError wraps an error with the operation and bob it concerns.
type ChainError struct {
	Op  string
	ID  int
	Err error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("%s bob %d: %v", e.Op, e.ID, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

func chainErr(op string, id int, err error) error {
	return &ChainError{Op: op, ID: id, Err: err}
}
