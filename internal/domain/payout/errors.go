package payout

import "errors"

var (
	ErrNotFound            = errors.New("payout not found")
	ErrUnsupportedCurrency = errors.New("no payout gateway supports this currency")
	ErrAlreadyTerminal     = errors.New("payout is already in a terminal state")
)
