package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig = fmt.Errorf("agentmemory: invalid config")
	ErrNotFound      = fmt.Errorf("agentmemory: not found")
	ErrInvalidParams = fmt.Errorf("agentmemory: invalid params")
	ErrInternal      = fmt.Errorf("agentmemory: internal error")

	// ErrOracleUnavailable covers timeouts, transport failures and an open breaker.
	ErrOracleUnavailable = fmt.Errorf("agentmemory: oracle unavailable")
	// ErrOracleMalformed means the oracle answered but the result failed schema or grounding validation.
	ErrOracleMalformed = fmt.Errorf("agentmemory: oracle malformed")
	// ErrStoreUnavailable is the only failure the engine reports upward.
	ErrStoreUnavailable = fmt.Errorf("agentmemory: store unavailable")
)

type marked struct {
	cause error
	kind  error
}

func (m *marked) Error() string {
	return m.kind.Error() + ": " + m.cause.Error()
}

func (m *marked) Unwrap() []error {
	return []error{m.cause, m.kind}
}

// Mark tags err with kind. errors.Is matches both kind and anything in err's own chain.
func Mark(err error, kind error) error {
	if err == nil {
		return nil
	}
	return &marked{cause: err, kind: kind}
}
