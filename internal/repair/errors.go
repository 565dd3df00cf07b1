package repair

import "fmt"

// Error represents a general repair error
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("repair error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("repair error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
