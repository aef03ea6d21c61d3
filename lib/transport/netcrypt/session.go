package netcrypt

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Session is one encrypted transport session, bound to a single
// direction-pair (one per TCP connection). It is the entry point for the
// handshake driver, packet codec, and streaming decoder, all of which take
// a *Session and mutate it under its own locks — never a coarser lock held
// by the caller.
type Session struct {
	role   Role
	clock  clock.Clock
	policy Policy

	mu sync.Mutex // guards ephPriv, sharedSecret, sessionID, state during handshake

	ephPriv      *secp256k1.PrivateKey
	sharedSecret [32]byte
	sessionID    [32]byte
	state        sessionState

	send  *sendHalf
	recv  *recvHalf
	times *rekeyTimes
}

// NewSession creates a Session in the Fresh state, generating a fresh
// ephemeral secp256k1 keypair for use in the handshake. policy governs
// rekey/abort thresholds; pass DefaultPolicy() for production behavior or
// FastRekeyPolicy() for tests that want to observe rekeying quickly. clk is
// the wall-clock source; pass clock.New() in production and a *clock.Mock
// in tests that need deterministic rekey timing.
func NewSession(role Role, policy Policy, clk clock.Clock) (*Session, error) {
	priv, err := generateEphemeralKey()
	if err != nil {
		return nil, err
	}
	return &Session{
		role:    role,
		clock:   clk,
		policy:  policy,
		ephPriv: priv,
		state:   StateFresh,
	}, nil
}

// ShouldEncrypt reports whether the handshake has completed and the session
// is ready to encrypt/decrypt application traffic.
func (s *Session) ShouldEncrypt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateEncrypted
}

// SessionID returns the 32-byte HKDF-derived session identifier, stable for
// the session's lifetime. Only meaningful once ShouldEncrypt() is true.
func (s *Session) SessionID() [32]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Role returns the role this Session was constructed with.
func (s *Session) Role() Role {
	return s.role
}

// abort transitions the session to Aborted and zeroizes any still-live
// ephemeral key material. Called by HandshakeProcess on a failed handshake
// and by Close; fatal errors from the codec and decoder do not call it.
func (s *Session) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ephPriv != nil {
		s.ephPriv.Zero()
		s.ephPriv = nil
	}
	zero(s.sharedSecret[:])
	s.state = StateAborted
}

// Close tears the session down, zeroizing the ephemeral key, the shared
// secret, and both directions' keypacks and length-field keys. Safe to call
// multiple times and on a session that never completed its handshake.
func (s *Session) Close() {
	s.abort()
	if s.send != nil {
		s.send.mu.Lock()
		zero(s.send.kp[:])
		zero(s.send.aead.lengthKey[:])
		s.send.mu.Unlock()
	}
	if s.recv != nil {
		s.recv.mu.Lock()
		zero(s.recv.kp[:])
		zero(s.recv.aead.lengthKey[:])
		s.recv.mu.Unlock()
	}
}
