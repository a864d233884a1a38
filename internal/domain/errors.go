package domain

import "errors"

// ErrInvalidArgument marks caller errors that should surface immediately
// rather than be retried. Wrap it with context via fmt.Errorf and %w.
var ErrInvalidArgument = errors.New("invalid argument")
