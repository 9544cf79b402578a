package order

import "errors"

var (
	// ErrInvalidArgument marks malformed construction inputs. These are
	// raised at the boundary and never partially applied.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOperationNotAllowed marks a transition requested while the
	// order's status or ownership state forbids it.
	ErrOperationNotAllowed = errors.New("operation not allowed")
	// ErrModificationNotAllowed marks a forbidden delivery-date, address
	// or item edit, including cancellation.
	ErrModificationNotAllowed = errors.New("modification not allowed")
)
