package certutil

import "errors"

var (
	ErrUnsupportedKey = errors.New("certutil: unsupported private key type")
	ErrNoNames        = errors.New("certutil: at least one name is required")
	ErrEmptyBundle    = errors.New("certutil: bundle contains no certificate")
)
