package build

import (
	"errors"
	"strings"
)

// ComposeErrors takes multiple errors and combines them into a single error
// with a longer message. Nil errors are stripped out; if every input is nil,
// ComposeErrors returns nil. The original types of the errors are not
// preserved.
func ComposeErrors(errs ...error) error {
	var errStrings []string
	for _, err := range errs {
		if err != nil {
			errStrings = append(errStrings, err.Error())
		}
	}
	if len(errStrings) == 0 {
		return nil
	}
	return errors.New(strings.Join(errStrings, "; "))
}

// ExtendErr prefixes err's message with s. If err is nil, ExtendErr returns
// nil and discards s.
func ExtendErr(s string, err error) error {
	if err == nil {
		return nil
	}
	return errors.New(s + ": " + err.Error())
}
