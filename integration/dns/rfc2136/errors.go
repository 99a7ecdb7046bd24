package rfc2136

import "errors"

var (
	ErrNoNameserver    = errors.New("rfc2136: nameserver is required")
	ErrUnsupportedType = errors.New("rfc2136: only TXT records can be managed")
	ErrInvalidRecordID = errors.New("rfc2136: invalid record id")
	ErrUpdateRejected  = errors.New("rfc2136: update rejected")
	ErrTransferFailed  = errors.New("rfc2136: zone transfer failed")
	ErrQueryFailed     = errors.New("rfc2136: query failed")
	ErrIncompleteTSIG  = errors.New("rfc2136: tsig key and secret must be set together")
	ErrEmptyDomain     = errors.New("rfc2136: domain is required")
)
