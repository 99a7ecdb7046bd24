// Package lego drives an ACME CA through the low-level API of go-acme/lego.
//
// Client implements challenge.ACME and the accounts it opens implement
// challenge.Account, so the challenge orchestrator owns the order workflow
// (DNS records, propagation, polling) while this package only speaks the
// protocol.
//
//	acmeClient := lego.New(
//		lego.WithDirectoryURL(lego.LetsEncryptStaging),
//		lego.WithEmail("ops@example.com"),
//	)
//
// Account keys are kept by an AccountStore: MemoryAccountStore for tests,
// PostgresAccountStore for deployments sharing one database, and
// CacheAccountStore for any autocert.Cache such as autocert.DirCache.
package lego
