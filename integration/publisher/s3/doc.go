// Package s3 publishes issued certificates to Amazon S3 or any S3-compatible
// object store (MinIO, Wasabi, Ceph RGW).
//
// Each certificate is written in the familiar certbot layout under
// <prefix><fqdn>/:
//
//	cert.pem       leaf certificate
//	chain.pem      issuer chain
//	fullchain.pem  leaf followed by the chain
//	privkey.pem    private key, written with server-side encryption
//
// Publisher implements certificate.Publisher:
//
//	pub, err := s3.New(ctx, s3.Config{Bucket: "certs", Region: "eu-west-3"})
//	if err != nil {
//		return err
//	}
//	agg := certificate.NewAggregate(orchestrator, pub)
//
// Errors are classified into the sentinels of this package, so callers can
// branch with errors.Is on access, bucket and availability failures.
package s3
