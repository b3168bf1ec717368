package payment

import "errors"

var (
	ErrUnsupportedGateway = errors.New("unsupported payment gateway")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrUnknownReference   = errors.New("no transaction matches the event reference")
	ErrAnomaly            = errors.New("correlated transactions are inconsistent")
)
