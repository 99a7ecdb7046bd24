// Package challenge orders certificates from an ACME CA using DNS-01.
//
// An Orchestrator runs the whole exchange for one certificate: it loads the
// durable account key, opens an order, publishes a TXT record per pending
// authorization under the root domain, waits for the records to be visible on
// the authoritative servers, validates each challenge, finalizes the order
// with a fresh key and CSR, and downloads the issued chain.
//
// The CA, the DNS provider and the account key store are interfaces so the
// flow can be driven by lego and RFC 2136 in production and by fakes in tests.
//
// Polling budgets default to what a real CA and DNS need:
//
//	propagation   every 30s for up to 6h
//	challenge     every 1s, 10 attempts
//	finalization  every 3s, 10 attempts
//
// TXT records are removed in the background after the order finishes. Call
// Wait before shutdown to let those cleanups complete.
package challenge
