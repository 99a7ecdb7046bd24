package certutil

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
)

// NewAccountKey generates an ECDSA P-256 key for an ACME account.
func NewAccountKey() (crypto.Signer, error) {
	return generate(certcrypto.EC256)
}

// NewCertificateKey generates an RSA-2048 key for an issued certificate.
func NewCertificateKey() (crypto.Signer, error) {
	return generate(certcrypto.RSA2048)
}

func generate(kt certcrypto.KeyType) (crypto.Signer, error) {
	key, err := certcrypto.GeneratePrivateKey(kt)
	if err != nil {
		return nil, fmt.Errorf("certutil: generate %s key: %w", kt, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrUnsupportedKey
	}
	return signer, nil
}

// EncodePrivateKey returns key as PEM.
func EncodePrivateKey(key crypto.PrivateKey) (string, error) {
	out := certcrypto.PEMEncode(key)
	if len(out) == 0 {
		return "", fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
	return string(out), nil
}

// ParsePrivateKey reads a PEM private key written by EncodePrivateKey.
func ParsePrivateKey(data string) (crypto.Signer, error) {
	key, err := certcrypto.ParsePEMPrivateKey([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("certutil: parse private key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
	return signer, nil
}

// Names lists the identifiers a certificate for fqdn covers.
func Names(fqdn string, wildcard bool) []string {
	if wildcard {
		return []string{fqdn, "*." + fqdn}
	}
	return []string{fqdn}
}

// NewCSR builds a certificate request for names, the first one being the
// common name. It returns the DER bytes sent to the CA and their PEM form.
func NewCSR(key crypto.PrivateKey, names []string) ([]byte, string, error) {
	if len(names) == 0 {
		return nil, "", ErrNoNames
	}
	der, err := certcrypto.GenerateCSR(key, names[0], names, false)
	if err != nil {
		return nil, "", fmt.Errorf("certutil: generate csr: %w", err)
	}
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, "", fmt.Errorf("certutil: parse csr: %w", err)
	}
	return der, string(certcrypto.PEMEncode(csr)), nil
}

// SplitBundle splits a PEM bundle as returned by the CA into the leaf
// certificate, the issuer chain and the leaf's expiry.
func SplitBundle(bundle []byte) (string, []string, time.Time, error) {
	certs, err := certcrypto.ParsePEMBundle(bundle)
	if err != nil {
		return "", nil, time.Time{}, fmt.Errorf("certutil: parse bundle: %w", err)
	}
	if len(certs) == 0 {
		return "", nil, time.Time{}, ErrEmptyBundle
	}

	leaf := encodeCertificate(certs[0])
	chain := make([]string, 0, len(certs)-1)
	for _, c := range certs[1:] {
		chain = append(chain, encodeCertificate(c))
	}
	return leaf, chain, certs[0].NotAfter.UTC(), nil
}

func encodeCertificate(c *x509.Certificate) string {
	return string(certcrypto.PEMEncode(certcrypto.DERCertificateBytes(c.Raw)))
}
