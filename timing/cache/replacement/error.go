package replacement

import "fmt"

type constError string

func (errStr constError) Error() string { return string(errStr) }

const (
	// ErrOutOfRange is returned when a cpu, set or way index lies outside the
	// dimensions the policy was built with.
	ErrOutOfRange = constError("index out of range")

	// ErrInvalidGeometry is returned when a policy or table is requested with
	// non-positive dimensions.
	ErrInvalidGeometry = constError("invalid geometry")

	// ErrUnknownPolicy is returned by [Registry.New] for unregistered names.
	ErrUnknownPolicy = constError("unknown replacement policy")

	// ErrDuplicatePolicy is returned by [Registry.Register] when the name is
	// already taken.
	ErrDuplicatePolicy = constError("replacement policy already registered")
)

func outOfRangeError(what string, index, limit int) error {
	return fmt.Errorf("%w: %s %d not in [0, %d)", ErrOutOfRange, what, index, limit)
}
