package retry

// MultiError errors of every failed attempt; it reads as the last one
type MultiError struct {
	Errors   []error
	Attempts int
}

// Error message of the last attempt
func (e *MultiError) Error() string {
	if last := e.Unwrap(); last != nil {
		return last.Error()
	}
	return "retry failed: no errors"
}

// Unwrap returns the error of the final attempt
func (e *MultiError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
