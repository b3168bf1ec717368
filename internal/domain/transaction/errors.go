package transaction

import "errors"

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrDuplicateReference = errors.New("reference_id already exists")
	ErrAlreadyTerminal    = errors.New("transaction is already in a terminal state")
	ErrInvalidTransition  = errors.New("illegal status transition")
)
