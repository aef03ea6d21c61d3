package netcrypt

import (
	"sync"
	"time"
)

// Role identifies which half of the handshake a Session plays, which in
// turn decides which half of the keypack serves send vs recv.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

// sessionState is the Session's lifecycle state.
type sessionState uint32

const (
	StateFresh sessionState = iota
	StateHandshakeSent
	StateHandshakeReceived
	StateEncrypted
	StateAborted
)

// keypack is the 64-byte concatenation of a 32-byte length key and a
// 32-byte payload key that parameterizes one direction of the AEAD.
type keypack [64]byte

func (kp keypack) lengthHalf() []byte  { return kp[0:32] }
func (kp keypack) payloadHalf() []byte { return kp[32:64] }

// rekeyTimes holds the two wall-clock timestamps shared between a
// Session's send and recv halves. It is split out (rather than folded into
// sendHalf/recvHalf) because the receive-side abuse check reads the
// *send*-side rekey timestamp, so the two halves cannot be fully
// disjoint — this is the one piece of state they share.
type rekeyTimes struct {
	mu   sync.Mutex
	send time.Time
	recv time.Time
}

func (t *rekeyTimes) setSend(now time.Time) {
	t.mu.Lock()
	t.send = now
	t.mu.Unlock()
}

func (t *rekeyTimes) setRecv(now time.Time) {
	t.mu.Lock()
	t.recv = now
	t.mu.Unlock()
}

func (t *rekeyTimes) getSend() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.send
}

func (t *rekeyTimes) getRecv() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recv
}

// sendHalf owns every piece of state mutated while encrypting outbound
// frames. Serialized by mu so concurrent callers of Session.Encrypt cannot
// race on the sequence counter or trigger overlapping rekeys.
type sendHalf struct {
	mu       sync.Mutex
	kp       keypack
	aead     *aeadContext
	seq      uint64
	bytesEnc uint64
}

// recvHalf owns every piece of state mutated while authenticating inbound
// frames. Serialized by mu, independent of sendHalf.mu.
type recvHalf struct {
	mu       sync.Mutex
	kp       keypack
	aead     *aeadContext
	seq      uint64
	bytesDec uint64
}

// installKeys derives the two directional keypacks and the session ID from
// the shared secret via HKDF,
// binds the AEAD contexts per the role's directional assignment, and clears
// the ephemeral private key and shared secret. Must be called with s.mu
// held (the caller, HandshakeProcess, holds it).
func (s *Session) installKeys() error {
	k1a, err := hkdf32(s.sharedSecret[:], "BitcoinSharedSecret", "BitcoinK1A")
	if err != nil {
		return err
	}
	k1b, err := hkdf32(s.sharedSecret[:], "BitcoinSharedSecret", "BitcoinK1B")
	if err != nil {
		return err
	}
	k2a, err := hkdf32(s.sharedSecret[:], "BitcoinSharedSecret", "BitcoinK2A")
	if err != nil {
		return err
	}
	k2b, err := hkdf32(s.sharedSecret[:], "BitcoinSharedSecret", "BitcoinK2B")
	if err != nil {
		return err
	}
	sessionID, err := hkdf32(s.sharedSecret[:], "BitcoinSharedSecret", "BitcoinSessionID")
	if err != nil {
		return err
	}

	var kp1, kp2 keypack
	copy(kp1[0:32], k1a[:])
	copy(kp1[32:64], k1b[:])
	copy(kp2[0:32], k2a[:])
	copy(kp2[32:64], k2b[:])

	// Initiator sends with K1/recvs with K2; Responder sends with K2/recvs
	// with K1. Fixed here, never re-chosen for the lifetime of the Session.
	var sendKP, recvKP keypack
	if s.role == RoleInitiator {
		sendKP, recvKP = kp1, kp2
	} else {
		sendKP, recvKP = kp2, kp1
	}

	sendAEAD, err := aeadInit(sendKP)
	if err != nil {
		return err
	}
	recvAEAD, err := aeadInit(recvKP)
	if err != nil {
		return err
	}

	s.sessionID = sessionID
	now := s.clock.Now()

	s.send = &sendHalf{kp: sendKP, aead: sendAEAD}
	s.recv = &recvHalf{kp: recvKP, aead: recvAEAD}
	s.times = &rekeyTimes{send: now, recv: now}

	// Once Encrypted, ephPriv and sharedSecret must be cleared.
	zero(s.sharedSecret[:])
	if s.ephPriv != nil {
		s.ephPriv.Zero()
		s.ephPriv = nil
	}

	log.WithField("role", s.role).Debug("netcrypt: session keys installed")
	return nil
}

// rekeySend replaces the send keypack in place with
// sha256d(session_id||old_half) for each 32-byte half, re-initializes the
// send AEAD context, and resets the send sequence/byte counters and the
// send-side rekey timestamp. It acquires send.mu itself, so the caller must
// hold neither send.mu nor s.mu.
func (s *Session) rekeySend() error {
	s.send.mu.Lock()
	defer s.send.mu.Unlock()

	newA := sha256d(s.sessionID[:], s.send.kp.lengthHalf())
	newB := sha256d(s.sessionID[:], s.send.kp.payloadHalf())
	var newKP keypack
	copy(newKP[0:32], newA[:])
	copy(newKP[32:64], newB[:])

	aead, err := aeadInit(newKP)
	if err != nil {
		return err
	}

	s.send.kp = newKP
	s.send.aead = aead
	s.send.seq = 0
	s.send.bytesEnc = 0
	s.times.setSend(s.clock.Now())

	log.Debug("netcrypt: rekeyed send channel")
	return nil
}

// rekeyRecv rekeys the receive side. Refuses (ErrRekeyRefused) if less than
// Policy.MinRekeyInterval has elapsed since the previous receive-side
// rekey, guarding against a rekey-storm DoS.
func (s *Session) rekeyRecv() error {
	now := s.clock.Now()
	if now.Sub(s.times.getRecv()) < s.policy.MinRekeyInterval {
		log.Warn("netcrypt: rejecting peer rekey request (below MinRekeyInterval)")
		return ErrRekeyRefused
	}

	s.recv.mu.Lock()
	defer s.recv.mu.Unlock()

	newA := sha256d(s.sessionID[:], s.recv.kp.lengthHalf())
	newB := sha256d(s.sessionID[:], s.recv.kp.payloadHalf())
	var newKP keypack
	copy(newKP[0:32], newA[:])
	copy(newKP[32:64], newB[:])

	aead, err := aeadInit(newKP)
	if err != nil {
		return err
	}

	s.recv.kp = newKP
	s.recv.aead = aead
	s.recv.seq = 0
	s.recv.bytesDec = 0
	s.times.setRecv(now)

	log.Debug("netcrypt: rekeyed recv channel")
	return nil
}

// shouldRekeySend reports whether a send-side rekey is due, per the byte and
// time thresholds in Policy.
func (s *Session) shouldRekeySend() bool {
	s.send.mu.Lock()
	bytesEnc := s.send.bytesEnc
	s.send.mu.Unlock()

	if bytesEnc >= s.policy.RekeyBytes {
		return true
	}
	return s.clock.Now().Sub(s.times.getSend()) >= s.policy.RekeyInterval
}

// zero overwrites a byte slice before it is discarded, satisfying the
// zeroization contract for ephemeral key material and plaintext left behind
// by a failed decrypt.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
