package collatz

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrDiverging marks a sequence that did not stop within the step ceiling.
	ErrDiverging = errors.New("sequence did not terminate within the safety ceiling")

	// ErrNonPositive is returned for start values below 1.
	ErrNonPositive = errors.New("start value must be positive")
)

// DivergingError reports the start value and ceiling of a run that never stopped.
type DivergingError struct {
	Start   *big.Int
	Ceiling uint64
}

func (e *DivergingError) Error() string {
	digits := 0
	if e.Start != nil {
		digits = len(e.Start.String())
	}
	return fmt.Sprintf("%v: %d steps from a %d-digit start value", ErrDiverging, e.Ceiling, digits)
}

func (e *DivergingError) Unwrap() error {
	return ErrDiverging
}
