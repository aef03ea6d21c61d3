package netcrypt

import (
	"github.com/samber/oops"
)

// Sentinel errors for the fatal outcomes enumerated in the transport's error
// handling design. None of these are recoverable in-layer: on any of them the
// caller must discard the Session and close the underlying connection.
var (
	// ErrMalformedHeader is returned when the AAD length field cannot be
	// recovered, or the recovered message size exceeds MaxMessageSize.
	ErrMalformedHeader = oops.New("netcrypt: malformed header")

	// ErrAuthFailure is returned when an AEAD tag fails to verify.
	ErrAuthFailure = oops.New("netcrypt: authentication failed")

	// ErrProtocolAbuse is returned when a peer exceeds the byte or time
	// abort limits on the receive side.
	ErrProtocolAbuse = oops.New("netcrypt: protocol abuse limit exceeded")

	// ErrRekeyRefused is returned when a peer-requested rekey arrives
	// before MinRekeyInterval has elapsed since the last receive-side rekey.
	ErrRekeyRefused = oops.New("netcrypt: rekey refused (below minimum interval)")

	// ErrBadHandshake is returned when a peer's handshake key fails to
	// parse as a valid secp256k1 point, or looks like a legacy plaintext
	// message header.
	ErrBadHandshake = oops.New("netcrypt: bad handshake data")

	// ErrBadPayload is returned when the command-name field at the head of
	// a decrypted payload cannot be parsed.
	ErrBadPayload = oops.New("netcrypt: malformed payload")

	// ErrSessionNotEncrypted is returned by operations that require the
	// handshake to have completed (state == Encrypted).
	ErrSessionNotEncrypted = oops.New("netcrypt: session handshake not complete")

	// ErrSessionAborted names the Aborted session state. No function in this
	// package returns it: Encrypt on an aborted session reports
	// ErrSessionNotEncrypted.
	ErrSessionAborted = oops.New("netcrypt: session aborted")

	// ErrReservedBit is returned when the caller-supplied header already
	// has the rekey bit set before encryption.
	ErrReservedBit = oops.New("netcrypt: reserved rekey bit set on input")
)

// WrapNetcryptError attaches an operation name to an underlying error,
// matching the wrapping convention used across this module's callers.
func WrapNetcryptError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return oops.Wrapf(err, "netcrypt %s failed: %s", operation, err.Error())
}
