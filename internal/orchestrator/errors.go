package orchestrator

import (
	"errors"
	"fmt"
)

// Validation errors; no I/O happens before they are returned.
var (
	ErrBlankSymbol  = errors.New("symbol must not be blank")
	ErrUnknownAgent = errors.New("unknown agent id")
)

// UpstreamError reports a market data failure while building the context.
type UpstreamError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("build context for %s: %s: %v", e.Symbol, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsValidation reports whether err was caused by bad request input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrBlankSymbol) || errors.Is(err, ErrUnknownAgent)
}
