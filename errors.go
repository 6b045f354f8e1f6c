// errors.go - error taxonomy for the video conversion engine
//
// License: GPLv3 or later

package pixelweave

import (
	"errors"
	"fmt"
)

// Result is the closed set of outcomes a conversion operation can
// report. Success is the zero value so a freshly-declared Result
// reads as "no error yet".
type Result int

const (
	Success Result = iota
	InvalidInputFormatError
	InvalidOutputFormatError
	InvalidInputResolutionError
	InvalidOutputResolutionError
	DriverNotFoundError
	InvalidDeviceError
	NoSuitableDeviceError
	AllocationFailed
	ShaderCompilationFailed
	UnknownError
)

func (r Result) String() string {
	switch r {
	case Success:
		return "Success"
	case InvalidInputFormatError:
		return "InvalidInputFormatError"
	case InvalidOutputFormatError:
		return "InvalidOutputFormatError"
	case InvalidInputResolutionError:
		return "InvalidInputResolutionError"
	case InvalidOutputResolutionError:
		return "InvalidOutputResolutionError"
	case DriverNotFoundError:
		return "DriverNotFoundError"
	case InvalidDeviceError:
		return "InvalidDeviceError"
	case NoSuitableDeviceError:
		return "NoSuitableDeviceError"
	case AllocationFailed:
		return "AllocationFailed"
	case ShaderCompilationFailed:
		return "ShaderCompilationFailed"
	case UnknownError:
		return "UnknownError"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// ConvertError provides detailed error context for every fallible
// operation in this package, following the same shape the rest of the
// corpus uses for its own domain errors: a named operation, a human
// detail string, the underlying cause if any, and here a Kind that
// lets callers branch on the closed Result taxonomy without parsing
// Error() strings.
type ConvertError struct {
	Operation string // what was being attempted, e.g. "CreateVideoConverter"
	Details   string // additional context
	Kind      Result // closed taxonomy value
	Err       error  // underlying error, if any
}

func (e *ConvertError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pixelweave %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("pixelweave %s failed: %s", e.Operation, e.Details)
}

func (e *ConvertError) Unwrap() error { return e.Err }

func newError(op string, kind Result, details string, err error) *ConvertError {
	return &ConvertError{Operation: op, Details: details, Kind: kind, Err: err}
}

// ResultOf extracts the Kind of err if it is (or wraps) a
// *ConvertError, Success if err is nil, or UnknownError if err is of
// another type.
func ResultOf(err error) Result {
	if err == nil {
		return Success
	}
	var ce *ConvertError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return UnknownError
}
