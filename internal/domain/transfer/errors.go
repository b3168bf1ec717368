package transfer

import "errors"

var (
	ErrSameUser         = errors.New("sender and receiver are the same user")
	ErrTenancyNotFound  = errors.New("no active tenancy for this tenant")
	ErrCurrencyMismatch = errors.New("landlord has no wallet in this currency")
)
