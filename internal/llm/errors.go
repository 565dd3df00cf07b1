package llm

import "fmt"

// StatusError is returned when the completion endpoint answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generator returned status %d: %s", e.StatusCode, e.Body)
}

// ExhaustedError is returned when every attempt of a retry policy has failed
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("generator failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
