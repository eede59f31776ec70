package ports

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Call is a retryable request descriptor. The gateway keeps the whole
// descriptor so that "retry the original call" is literally re-issuing the
// same value with its original arguments.
type Call struct {
	Method  string
	Payload map[string]any

	OnSuccess func(result json.RawMessage)
	OnFailure func(code int, message string)

	// Blocker marks a call that is itself part of a recovery cycle (the
	// silent re-login). Blocker calls are never retried.
	Blocker bool
}

// Gateway issues authenticated requests to the remote service. Do never
// blocks; completion callbacks run later on the dispatch loop. Retry
// bookkeeping (auth refresh, transient retries, budget) happens inside the
// gateway before either callback fires.
type Gateway interface {
	Do(call Call)
}

// ServiceError is a failure reported by the remote service, carrying the
// numeric service code.
type ServiceError struct {
	Code    int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error %d: %s", e.Code, e.Message)
}

// ErrorCode extracts the service code from an error chain, or -1 when the
// error did not come from the service.
func ErrorCode(err error) int {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return -1
}
