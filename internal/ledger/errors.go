package ledger

import "fmt"

// NetError reports a ledger operation that failed after exhausting its
// retry budget or its deadline. Callers branch on it with errors.As to
// degrade gracefully instead of treating the gateway as fatal.
type NetError struct {
	Op  string // "query" or "download"
	Err error
}

func (e *NetError) Error() string {
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e *NetError) Unwrap() error {
	return e.Err
}
