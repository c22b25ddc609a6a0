package cli

import "errors"

// ErrUsage classifies errors caused by bad input: flags, arguments or
// configuration.
var ErrUsage = errors.New("cli usage error")

// ErrGenerationFailed is returned when a run finished without producing
// output. The details have already been printed.
var ErrGenerationFailed = errors.New("generation failed")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// ErrInvalidConfig is returned by validate when the file breaks at least one
// rule. The violations have already been printed.
var ErrInvalidConfig = errors.New("invalid configuration")
