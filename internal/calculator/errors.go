package calculator

import (
	"errors"
	"fmt"

	"TrendAdvisor/internal/model"
)

// ErrInvalidPeriod is returned for a zero or negative period.
var ErrInvalidPeriod = errors.New("period must be positive")

// InsufficientDataError reports a series too short for the requested indicator.
type InsufficientDataError struct {
	Spec model.IndicatorSpec
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d bars, have %d", e.Spec.Key(), e.Need, e.Have)
}

// IsInsufficientData reports whether err wraps an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var ide *InsufficientDataError
	return errors.As(err, &ide)
}
