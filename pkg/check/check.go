// Package check contains small validation helpers for configuration structs.
package check

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Validatable is implemented by configuration values whose fields should be
// validated before use.
type Validatable interface {
	Validate() []error
}

type validationError struct {
	errs []error
}

func (v validationError) Error() string {
	msgs := make([]string, 0, len(v.errs))
	for _, err := range v.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors found:\n\t%s", len(v.errs), strings.Join(msgs, "\n\t"))
}

// Validate runs every provided validatable and combines the failures into a
// single error, or returns nil when everything passes.
func Validate(vs ...Validatable) error {
	var errs []error
	for _, v := range vs {
		for _, err := range v.Validate() {
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return validationError{errs: errs}
}

// NotEmpty returns an error with the provided message if the value is empty.
func NotEmpty(value string, msgAndArgs ...interface{}) error {
	if value == "" {
		return wrapCheck(errors.New("string must be non-empty"), msgAndArgs)
	}
	return nil
}

// In returns an error if the value is not contained in the expected set.
func In(value string, set []string, msgAndArgs ...interface{}) error {
	for _, ok := range set {
		if value == ok {
			return nil
		}
	}
	return wrapCheck(
		errors.Errorf("%q is not in the set of expected values: %s", value, strings.Join(set, ", ")),
		msgAndArgs)
}

// GreaterThan returns an error if the value is not greater than the minimum.
func GreaterThan(value, minimum int, msgAndArgs ...interface{}) error {
	if value > minimum {
		return nil
	}
	return wrapCheck(errors.Errorf("%d is not greater than %d", value, minimum), msgAndArgs)
}

// True returns an error with the provided message if the condition is false.
func True(condition bool, msgAndArgs ...interface{}) error {
	if condition {
		return nil
	}
	return wrapCheck(errors.New("condition failed"), msgAndArgs)
}

func wrapCheck(err error, msgAndArgs []interface{}) error {
	if len(msgAndArgs) == 0 {
		return err
	}
	msg, ok := msgAndArgs[0].(string)
	if !ok {
		return err
	}
	return errors.Wrapf(err, msg, msgAndArgs[1:]...)
}
