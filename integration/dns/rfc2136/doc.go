// Package rfc2136 manages DNS-01 challenge records on any nameserver that
// accepts RFC 2136 dynamic updates (BIND, Knot, PowerDNS, ...), optionally
// authenticated with TSIG.
//
// Manager implements challenge.DNS:
//
//   - GetDomain reads the whole zone with AXFR.
//   - CreateRecord and DeleteRecord send UPDATE messages.
//   - ResolveTXT queries the configured resolvers directly, bypassing the
//     system resolver cache.
//
// Record IDs are opaque and stable: they encode owner name, type and value, so
// DeleteRecord removes exactly the record GetDomain or CreateRecord returned.
package rfc2136
