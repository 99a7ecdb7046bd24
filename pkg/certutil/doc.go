// Package certutil wraps lego's certcrypto helpers for the key, CSR and PEM
// handling needed when ordering certificates.
//
// Account keys are ECDSA P-256, certificate keys are RSA-2048. Everything
// crossing a package boundary is PEM text so it can be stored in events.
//
//	key, _ := certutil.NewCertificateKey()
//	csrDER, csrPEM, _ := certutil.NewCSR(key, certutil.Names("www.example.com", true))
//	leaf, chain, notAfter, _ := certutil.SplitBundle(bundle)
package certutil
