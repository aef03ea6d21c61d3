package netcrypt

// networkMagic is the legacy plaintext framing's 4-byte prefix. A real
// deployment would source this from lib/config per network (mainnet,
// testnet, ...); it is a package var rather than a lib/config dependency so
// this package stays importable without pulling in viper for unit tests.
var networkMagic = [4]byte{0xf9, 0xbe, 0xb4, 0xd9}

// legacyVersionCommand is the command name of the legacy handshake message
// this transport supersedes; a 32-byte handshake block that decodes as one
// is a downgrade attempt, not a valid ephemeral public key.
const legacyVersionCommand = "version"

// HandshakeInit is the initiator/responder-symmetric send side of the
// handshake: it returns the 32-byte x-only encoding of this Session's
// ephemeral public key, to be transmitted with no framing over whatever
// outer channel the peer uses before encryption is active. Transitions
// Fresh -> HandshakeSent.
func (s *Session) HandshakeInit() [32]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := xOnlyPubKey(s.ephPriv.PubKey())
	if s.state == StateFresh {
		s.state = StateHandshakeSent
	}
	return out
}

// HandshakeProcess is the receipt path: it validates the
// peer's 32-byte x-only public key, computes the ECDH shared secret, and
// installs directional keys, transitioning the session to Encrypted. Any
// error leaves the session Aborted; the caller must close the connection.
func (s *Session) HandshakeProcess(peer [32]byte) error {
	pub, err := parseXOnlyPubKey(peer)
	if err != nil {
		s.abort()
		return ErrBadHandshake
	}

	s.mu.Lock()
	s.state = StateHandshakeReceived
	s.sharedSecret = ecdh(s.ephPriv, pub)
	err = s.installKeys()
	if err != nil {
		s.mu.Unlock()
		s.abort()
		return err
	}
	s.state = StateEncrypted
	s.mu.Unlock()

	log.WithField("role", s.role).Debug("netcrypt: handshake complete")
	return nil
}

// isLegacyHeader reports whether a 32-byte handshake block looks like a
// legacy plaintext message header rather than an ephemeral public key: it
// begins with the network magic, or its command-name field (bytes 4..16 of
// a CMessageHeader) decodes as "version". This is the corrected sense of
// the original's VerifyHeader — reject when it DOES match, to catch a
// downgrade attempt.
func isLegacyHeader(block [32]byte) bool {
	if block[0] == networkMagic[0] && block[1] == networkMagic[1] &&
		block[2] == networkMagic[2] && block[3] == networkMagic[3] {
		return true
	}
	command, _, err := splitCommand(block[4:16])
	return err == nil && command == legacyVersionCommand
}

// HandshakeReader is a tiny streaming reader, independent of
// Decoder, that assembles the peer's 32-byte handshake block across however
// many partial reads the outer (still-unencrypted) framing delivers it in —
// the same accumulate-until-complete shape NetMessageEncryptionHandshake::Read
// uses for m_data_pos before the transport is live.
type HandshakeReader struct {
	buf [32]byte
	pos int
}

// Read consumes up to 32-pos bytes from chunk, returning how many it used.
// Once Complete is true, PeerKey returns the validated handshake block.
func (h *HandshakeReader) Read(chunk []byte) (int, error) {
	if h.pos >= len(h.buf) {
		return 0, nil
	}
	n := copy(h.buf[h.pos:], chunk)
	h.pos += n
	if h.pos < len(h.buf) {
		return n, nil
	}
	if isLegacyHeader(h.buf) {
		return n, ErrBadHandshake
	}
	return n, nil
}

// Complete reports whether all 32 bytes of the handshake block have
// arrived. It is also true after Read rejected the block as a legacy
// header; that rejection is reported only by Read's error.
func (h *HandshakeReader) Complete() bool {
	return h.pos == len(h.buf)
}

// PeerKey returns the accumulated 32-byte handshake block. Only meaningful
// once Complete() is true.
func (h *HandshakeReader) PeerKey() [32]byte {
	return h.buf
}
