package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the outcomes callers are expected to branch on.
var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFoundOrTerminal  = errors.New("not found or already in a terminal state")
	ErrConcurrencyLost     = errors.New("lost race: another caller completed this transition")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Persistence marks a storage failure. Critical is set when the write it
// wraps is balance-affecting and the operation is incomplete without it.
type Persistence struct {
	Op       string
	Critical bool
	Err      error
}

func (e *Persistence) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *Persistence) Unwrap() error { return e.Err }

func NewPersistence(op string, critical bool, err error) *Persistence {
	return &Persistence{Op: op, Critical: critical, Err: err}
}

// IsRecoverable reports whether the error is an expected concurrent-race or
// terminal-state outcome that callers surface as a notice, not a failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrConcurrencyLost) || errors.Is(err, ErrNotFoundOrTerminal)
}
