package netcrypt

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Wire-format constants fixed by the AEAD and framing primitives.
const (
	// AADLen is the length in bytes of the header (associated data): a
	// little-endian 24-bit message length with the rekey flag in its
	// top bit.
	AADLen = 3

	// TagLen is the length in bytes of the Poly1305 authentication tag
	// trailing every frame's ciphertext.
	TagLen = 16

	// nonceLen is the ChaCha20-Poly1305 nonce size.
	nonceLen = chacha20poly1305.NonceSize

	// rekeyBit is the most significant bit of the 24-bit length field,
	// smuggled in byte 2 (the high byte, little-endian) as the in-band
	// rekey-after-this-message signal.
	rekeyBit = 1 << 23

	// maxPlainLen24 is the largest value the 24-bit length field can
	// encode once the rekey bit is masked off.
	maxPlainLen24 = rekeyBit - 1
)

// aeadContext binds one direction's two 32-byte key halves (the AAD/length
// key and the payload key) to ready-to-use ciphers. It has no notion of
// sequence numbers — those live on the keystate that owns it — so a fresh
// aeadContext is produced on every aeadInit and rekey.
type aeadContext struct {
	lengthKey   [32]byte // encrypts/recovers the 3-byte length field
	payloadAEAD cipher.AEAD
}

// aeadInit installs a 64-byte keypack into an AEAD context: the first 32
// bytes key the raw ChaCha20 cipher over the length field, the second 32
// bytes key the ChaCha20-Poly1305 AEAD over the payload. Mirrors lib/transport/ntcp/aead.go's PerformAEADOperation key
// derivation split, generalized to the two-key BIP151 keypack layout.
func aeadInit(keypack [64]byte) (*aeadContext, error) {
	aead, err := chacha20poly1305.New(keypack[32:64])
	if err != nil {
		return nil, oops.Errorf("failed to init payload AEAD: %w", err)
	}
	ctx := &aeadContext{payloadAEAD: aead}
	copy(ctx.lengthKey[:], keypack[0:32])
	return ctx, nil
}

// seqNonce builds the 12-byte ChaCha20(-Poly1305) nonce from a monotonic
// sequence number: four zero bytes followed by the sequence number encoded
// little-endian, matching Bitcoin Core's aead_chacha20_poly1305 nonce
// convention (net_encryption.cpp's m_send_seq_nr / m_recv_seq_nr feed the
// same construction).
func seqNonce(seq uint64) [nonceLen]byte {
	var nonce [nonceLen]byte
	binary.LittleEndian.PutUint64(nonce[4:], seq)
	return nonce
}

// xorLength applies the raw ChaCha20 keystream (keyed by the length-key
// half, no Poly1305 involved) to a 3-byte length field. The operation is
// its own inverse: called on a plaintext header it produces the ciphertext
// transmitted on the wire; called again on that ciphertext with the same
// seq it recovers the plaintext. This is what lets the wire header be both
// confidential (it is ciphertext, not the bare length) and, unmodified,
// usable as the AEAD's associated data on both ends.
func xorLength(ctx *aeadContext, seq uint64, in []byte) ([AADLen]byte, error) {
	var out [AADLen]byte
	if len(in) != AADLen {
		return out, oops.Errorf("length field must be %d bytes, got %d", AADLen, len(in))
	}
	nonce := seqNonce(seq)
	stream, err := chacha20.NewUnauthenticatedCipher(ctx.lengthKey[:], nonce[:])
	if err != nil {
		return out, oops.Errorf("failed to build length stream cipher: %w", err)
	}
	stream.XORKeyStream(out[:], in)
	return out, nil
}

// aeadLength recovers the cleartext 24-bit length (rekey bit included) from
// the on-the-wire (ciphertext) AAD without advancing any state and without
// verifying the trailing tag — the length field is itself authenticated
// only transitively, as the associated data of the following payload+tag.
func aeadLength(ctx *aeadContext, seq uint64, aad []byte) (uint32, error) {
	out, err := xorLength(ctx, seq, aad)
	if err != nil {
		return 0, err
	}
	return uint32(out[0]) | uint32(out[1])<<8 | uint32(out[2])<<16, nil
}

// aeadDirection selects encrypt or decrypt for aeadCrypt.
type aeadDirection int

const (
	aeadDecrypt aeadDirection = 0
	aeadEncrypt aeadDirection = 1
)

// aeadCrypt encrypts or decrypts one frame's payload into a newly allocated
// slice. For encrypt, payload is the plaintext and the result is
// ciphertext||tag (TagLen bytes longer); for decrypt, payload is
// ciphertext||tag and the result is the plaintext (TagLen bytes shorter), or
// ErrAuthFailure if the tag does not verify. aad is authenticated but
// not encrypted/decrypted itself — it is passed to Seal/Open as associated
// data and is expected to already hold the wire (length-cipher) header.
func aeadCrypt(ctx *aeadContext, seq uint64, aad, payload []byte, dir aeadDirection) ([]byte, error) {
	nonce := seqNonce(seq)
	if dir == aeadEncrypt {
		return ctx.payloadAEAD.Seal(nil, nonce[:], payload, aad), nil
	}
	out, err := ctx.payloadAEAD.Open(nil, nonce[:], payload, aad)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return out, nil
}

// hkdf32 expands a 32-byte secret, salted by salt, into a 32-byte value
// bound to label. Mirrors CHKDF_HMAC_SHA256_L32::Expand32 from the original
// source: HKDF-SHA256 extract-then-expand with the label as HKDF "info".
func hkdf32(secret []byte, salt string, label string) ([32]byte, error) {
	var out [32]byte
	reader := hkdf.New(sha256.New, secret, []byte(salt), []byte(label))
	if _, err := readFull(reader, out[:]); err != nil {
		return out, oops.Errorf("hkdf32(%s): %w", label, err)
	}
	return out, nil
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, oops.Errorf("short read from kdf reader")
		}
	}
	return total, nil
}

// sha256d computes SHA-256(SHA-256(concat...)), the double-hash used for
// rekeying in BIP151: new_key_half = sha256d(session_id || old_key_half).
func sha256d(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	first := h.Sum(nil)
	return sha256.Sum256(first)
}

// generateEphemeralKey creates a fresh secp256k1 keypair for the handshake,
// then negates the private key if its compressed public key has odd parity
// (leading byte 0x03), so the 32-byte x-only transmission is unambiguous —
// the counterparty always reconstructs an even-parity (0x02) point.
func generateEphemeralKey() (*secp256k1.PrivateKey, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, oops.Errorf("failed to generate ephemeral key: %w", err)
	}
	if priv.PubKey().SerializeCompressed()[0] == 0x03 {
		priv = negatePrivateKey(priv)
	}
	return priv, nil
}

// negatePrivateKey returns priv negated modulo the secp256k1 group order,
// flipping the parity of the corresponding public key.
func negatePrivateKey(priv *secp256k1.PrivateKey) *secp256k1.PrivateKey {
	scalar := priv.Key
	scalar.Negate()
	return secp256k1.NewPrivateKey(&scalar)
}

// parseXOnlyPubKey reconstructs a full (even-parity) secp256k1 public key
// from its 32-byte x-only encoding, as transmitted during the handshake,
// and validates it as a point on the curve.
func parseXOnlyPubKey(xOnly [32]byte) (*secp256k1.PublicKey, error) {
	compressed := make([]byte, 33)
	compressed[0] = 0x02
	copy(compressed[1:], xOnly[:])
	pub, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return nil, oops.Errorf("invalid secp256k1 point: %w", err)
	}
	return pub, nil
}

// ecdh computes the shared secret between a local private key and a peer's
// public key, as the SHA-256 of the compressed shared point — the same
// construction as Bitcoin Core's CKey::ComputeECDHSecret.
func ecdh(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) [32]byte {
	var point, result secp256k1.JacobianPoint
	pub.AsJacobian(&point)
	secp256k1.ScalarMultNonConst(&priv.Key, &point, &result)
	result.ToAffine()
	shared := secp256k1.NewPublicKey(&result.X, &result.Y)
	return sha256.Sum256(shared.SerializeCompressed())
}

// xOnlyPubKey returns the 32-byte x-coordinate of an even-parity public
// key, suitable for transmission during the handshake.
func xOnlyPubKey(pub *secp256k1.PublicKey) [32]byte {
	var out [32]byte
	copy(out[:], pub.SerializeCompressed()[1:])
	return out
}
