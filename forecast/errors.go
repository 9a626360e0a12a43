package forecast

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoModels        = errors.New("no models to forecast with")
	ErrMaxStepsReached = errors.New("maximum number of forecast steps reached")
	ErrNonFiniteSum    = errors.New("base and residual sum is not finite")
	ErrHoldoutTooLong  = errors.New("holdout leaves no history to forecast from")
)

// StepError wraps a failure inside the rolling loop with the step that failed
type StepError struct {
	Step int
	Date time.Time
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("forecast step %d for %s failed, %v", e.Step, e.Date.Format(time.DateOnly), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
