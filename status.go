package vkf

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Status carries the shared "all OK" state for a Framework. Once any
// operation records an error, or the validation layer reports one, every
// subsequent operation that consults the status returns immediately without
// touching Vulkan. The status is never cleared back to OK.
type Status struct {
	firstErr        error
	validationError bool
}

// NewStatus returns a status in the OK state.
func NewStatus() *Status {
	return &Status{}
}

// OK reports whether no error has been recorded so far.
func (s *Status) OK() bool {
	return s.firstErr == nil && !s.validationError
}

// Err returns the first error recorded, or a validation error if the
// validation layer tripped before any operation failed directly.
func (s *Status) Err() error {
	if s.firstErr != nil {
		return s.firstErr
	}
	if s.validationError {
		return errors.New("validation layer reported an error")
	}
	return nil
}

// fail records err as the first error if none has been recorded yet, and
// returns the error that now represents the failed state.
func (s *Status) fail(err error) error {
	if s.firstErr == nil {
		s.firstErr = err
	}
	return err
}

func (s *Status) failf(format string, args ...interface{}) error {
	return s.fail(errors.Newf(format, args...))
}

// failResult records a native failure, embedding the routine name and a
// decode of the Vulkan result code.
func (s *Status) failResult(routine string, res vk.Result) error {
	return s.fail(errors.Wrapf(vk.Error(res), "%s failed", routine))
}

// setValidationError marks the sticky validation flag. It is called from the
// debug callback, possibly well after the call that caused the complaint
// appeared to succeed.
func (s *Status) setValidationError() {
	s.validationError = true
}

// ValidationErrorSeen reports whether the validation layer has complained at
// any point since instance creation.
func (s *Status) ValidationErrorSeen() bool {
	return s.validationError
}

func (s *Status) String() string {
	if s.OK() {
		return "OK"
	}
	return fmt.Sprintf("failed: %v", s.Err())
}
