package backtest

import "fmt"

// DataError reports malformed bar input: empty series, non-chronological
// timestamps, or non-positive prices. It is always detected before any
// simulation step runs.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "bad bar data: " + e.Reason
}

func dataErrorf(format string, args ...any) *DataError {
	return &DataError{Reason: fmt.Sprintf(format, args...)}
}

// ParameterError reports an invalid strategy parameter or an invalid
// parameter grid. It is always detected before the affected run starts.
type ParameterError struct {
	Reason string
}

func (e *ParameterError) Error() string {
	return "bad parameter: " + e.Reason
}

// ParameterErrorf builds a ParameterError with a formatted reason. Strategy
// constructors use it to reject out-of-range parameters.
func ParameterErrorf(format string, args ...any) *ParameterError {
	return &ParameterError{Reason: fmt.Sprintf(format, args...)}
}
