// Package netcrypt implements an encrypted peer-to-peer transport session.
//
// # Overview
//
// Two peers exchange ephemeral secp256k1 public keys, derive a shared
// keypack via HKDF-SHA256, and from then on exchange frames authenticated
// and encrypted with ChaCha20-Poly1305. The 3-byte length field prefixing
// each frame is itself encrypted with a raw ChaCha20 keystream, so it never
// appears on the wire in the clear, and doubles as the AEAD's associated
// data for the frame that follows it.
//
// # Session Lifecycle
//
//   - Handshake (handshake.go): HandshakeInit produces this side's x-only
//     public key; HandshakeProcess consumes the peer's and derives keys.
//   - Steady state (codec.go, decoder.go): Encrypt builds one outbound
//     frame; Decoder.Read consumes inbound bytes across arbitrarily many
//     partial reads and emits complete frames via Session.decryptFrame.
//   - Rekeying (keystate.go): triggered by byte volume, elapsed time, or an
//     in-band peer request, subject to the abuse-resistance limits in
//     Policy.
//   - Teardown (session.go): Close zeroizes the ephemeral key, shared secret
//     and both directional keypacks, and is safe to call more than once.
//
// # Primitives
//
// primitives.go holds every cryptographic building block used above: the
// ChaCha20-Poly1305 AEAD, the raw-ChaCha20 length-field cipher, HKDF-SHA256,
// double-SHA256, and the secp256k1 keygen/ECDH bindings.
//
// # Concurrency
//
// A Session's send half and receive half each guard their own state with a
// dedicated mutex, so one goroutine can be encrypting outbound frames while
// another decodes inbound ones. Neither Encrypt, decryptFrame, nor
// Decoder.Read blocks on I/O — callers own the net.Conn and feed bytes in.
package netcrypt

import "netcrypt/lib/util/logger"

var log = logger.GetLogger()
