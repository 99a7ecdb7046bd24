// Package route53 manages DNS-01 challenge records in Amazon Route 53 hosted
// zones.
//
// Manager implements challenge.DNS. A TXT name holds one record set in
// Route 53, so CreateRecord and DeleteRecord read the current set and write
// it back with the value added or removed. Changes are serialized per
// Manager. ResolveTXT uses the TestDNSAnswer API, which answers from the
// hosted zone's authoritative servers.
//
// The hosted zone is either fixed with WithHostedZoneID or looked up by the
// root domain name and cached.
package route53
