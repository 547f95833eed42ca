package penalty

import (
	"errors"
	"fmt"
)

// ErrMalformedSchedule is wrapped by every ParseError. A malformed schedule
// must never be treated as "no penalty".
var ErrMalformedSchedule = errors.New("malformed late penalty schedule")

// ParseError identifies the token that could not be read as a
// non-negative number. Position is zero-based.
type ParseError struct {
	Token    string
	Position int
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid late penalty %q at position %d: %s", e.Token, e.Position, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedSchedule
}

// IsMalformed returns true if err came from parsing a bad schedule string.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedSchedule)
}
