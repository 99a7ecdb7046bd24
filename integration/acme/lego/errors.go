package lego

import "errors"

var (
	ErrNoFinalizeURL    = errors.New("acme: order has no finalize URL")
	ErrNoCertificateURL = errors.New("acme: order has no certificate URL")
	ErrEmptyAccountID   = errors.New("acme: account id is required")
	ErrNilPool          = errors.New("acme: connection pool is required")
	ErrNilCache         = errors.New("acme: cache is required")
	ErrUnknownStore     = errors.New("acme: unknown account store kind")
)
