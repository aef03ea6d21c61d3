package netcrypt

// Encrypt encrypts one outbound frame. buf's
// first AADLen bytes must hold the little-endian 24-bit plaintext length
// with bit 23 clear; the remaining bytes are the plaintext payload. Encrypt
// returns a new frame (AAD || ciphertext || tag), leaving buf untouched,
// and transparently performs a send-side rekey after encryption if one is
// due.
func (s *Session) Encrypt(buf []byte) ([]byte, error) {
	if len(buf) < AADLen {
		return nil, ErrMalformedHeader
	}
	if !s.ShouldEncrypt() {
		return nil, ErrSessionNotEncrypted
	}

	header := buf[:AADLen]
	length := uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16
	if length&rekeyBit != 0 {
		return nil, ErrReservedBit
	}

	rekeyDue := s.shouldRekeySend()
	flagged := length
	if rekeyDue {
		flagged |= rekeyBit
	}
	var plainHeader [AADLen]byte
	putLength24(plainHeader[:], flagged)

	s.send.mu.Lock()
	seq := s.send.seq
	s.send.seq++
	wireHeader, err := xorLength(s.send.aead, seq, plainHeader[:])
	if err != nil {
		s.send.mu.Unlock()
		return nil, err
	}
	out, err := aeadCrypt(s.send.aead, seq, wireHeader[:], buf[AADLen:], aeadEncrypt)
	if err != nil {
		s.send.mu.Unlock()
		return nil, err
	}
	s.send.bytesEnc += uint64(len(buf) - AADLen)
	s.send.mu.Unlock()

	frame := make([]byte, 0, AADLen+len(out))
	frame = append(frame, wireHeader[:]...)
	frame = append(frame, out...)

	if rekeyDue {
		if err := s.rekeySend(); err != nil {
			return nil, err
		}
		log.Debug("netcrypt: signaled send-side rekey to peer")
	}
	return frame, nil
}

// decryptFrame authenticates and decrypts one inbound frame: in is exactly
// AADLen+messageSize+TagLen bytes, rekeyFlag
// is the bit already extracted from the header by the decoder. It enforces
// the receive-side abuse limits, authenticates and decrypts the frame into
// a new plaintext slice (zeroing in if authentication fails), and — if
// rekeyFlag was set — performs the receive-side rekey before returning.
func (s *Session) decryptFrame(in []byte, messageSize uint32, rekeyFlag bool) ([]byte, error) {
	if !s.ShouldEncrypt() {
		return nil, ErrSessionNotEncrypted
	}
	if err := s.checkAbuseLimits(uint64(messageSize)); err != nil {
		return nil, err
	}

	aad := in[:AADLen]
	ciphertext := in[AADLen : AADLen+int(messageSize)+TagLen]

	s.recv.mu.Lock()
	seq := s.recv.seq
	s.recv.seq++
	plain, err := aeadCrypt(s.recv.aead, seq, aad, ciphertext, aeadDecrypt)
	if err != nil {
		zero(in)
		s.recv.mu.Unlock()
		return nil, err
	}
	s.recv.bytesDec += uint64(messageSize)
	s.recv.mu.Unlock()

	if rekeyFlag {
		if err := s.rekeyRecv(); err != nil {
			return nil, err
		}
		log.Debug("netcrypt: applied peer-requested rekey")
	}
	return plain, nil
}

// checkAbuseLimits enforces the receive-side abuse limits:
// reject when the next frame would push bytesDec past AbortBytes, or when
// too much wall-clock time has passed since the last send-side rekey.
func (s *Session) checkAbuseLimits(nextFrameSize uint64) error {
	s.recv.mu.Lock()
	bytesDec := s.recv.bytesDec
	s.recv.mu.Unlock()

	if bytesDec+nextFrameSize > s.policy.AbortBytes {
		log.WithField("bytesDec", bytesDec).Warn("netcrypt: abort byte limit exceeded")
		return ErrProtocolAbuse
	}
	if s.clock.Now().Sub(s.times.getSend()) > s.policy.AbortInterval {
		log.Warn("netcrypt: abort time limit exceeded")
		return ErrProtocolAbuse
	}
	return nil
}

// putLength24 writes a little-endian 24-bit length (rekey bit included)
// into the first AADLen bytes of dst, matching the header layout Encrypt
// expects on input.
func putLength24(dst []byte, length uint32) {
	dst[0] = byte(length)
	dst[1] = byte(length >> 8)
	dst[2] = byte(length >> 16)
}
