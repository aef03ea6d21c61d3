package netcrypt

// bufferGrowStep bounds how far Decoder grows its body buffer ahead of what
// has actually arrived, matching net_encryption.cpp's vRecv.resize() step.
const bufferGrowStep = 256 * 1024

// Decoder is a non-blocking streaming reader: it consumes arbitrarily
// chunked network reads and emits complete inbound frames, one at a time,
// without blocking on I/O. A Decoder is bound to a single Session and is
// not safe for concurrent use by multiple goroutines.
type Decoder struct {
	session *Session

	inData      bool
	hdrPos      int
	dataPos     int
	messageSize uint32
	rekeyFlag   bool

	header  [AADLen]byte
	buffer  []byte
	payload []byte // set once Complete() is true; the decrypted body, command field stripped
	command string
}

// NewDecoder returns a Decoder bound to session, ready to read the header
// of its first inbound frame.
func NewDecoder(session *Session) *Decoder {
	return &Decoder{session: session}
}

// Complete reports whether the most recent frame has been fully decoded and
// is waiting to be drained via Payload/Command. Calling Read again after
// Complete() is true starts the next frame.
func (d *Decoder) Complete() bool {
	return d.payload != nil
}

// Payload returns the application payload of the most recently completed
// frame, with the command-name field already stripped.
// Only meaningful once Complete() is true.
func (d *Decoder) Payload() []byte {
	return d.payload
}

// Command returns the 12-byte NUL-padded command name of the most recently
// completed frame, trimmed of trailing NULs. Only meaningful once
// Complete() is true.
func (d *Decoder) Command() string {
	return d.command
}

// Read runs the two-phase (header, then body) state machine. It consumes as
// many bytes of chunk as are needed to make progress on the frame in
// flight and returns how many it used; it never consumes more than
// len(chunk) and never blocks. A non-nil error is always fatal: the caller
// must discard the Session and close the connection. If a previous frame
// is sitting unread (Complete() == true), Read drains that state first and
// begins the next frame from a clean slate before touching chunk.
func (d *Decoder) Read(chunk []byte) (int, error) {
	if d.payload != nil {
		d.reset()
	}

	consumed := 0
	if !d.inData {
		n, err := d.readHeader(chunk)
		consumed += n
		if err != nil {
			return consumed, err
		}
		if !d.inData {
			// Header still incomplete; chunk was fully consumed.
			return consumed, nil
		}
		chunk = chunk[n:]
	}

	n, err := d.readBody(chunk)
	consumed += n
	return consumed, err
}

// readHeader accumulates the AADLen-byte header and, once complete,
// recovers the candidate message size and rekey flag and transitions to
// Phase D.
func (d *Decoder) readHeader(chunk []byte) (int, error) {
	want := AADLen - d.hdrPos
	n := want
	if n > len(chunk) {
		n = len(chunk)
	}
	copy(d.header[d.hdrPos:], chunk[:n])
	d.hdrPos += n
	if d.hdrPos < AADLen {
		return n, nil
	}

	length, err := aeadLength(d.session.recv.aead, d.session.recv.seq, d.header[:])
	if err != nil {
		return n, ErrMalformedHeader
	}
	d.rekeyFlag = length&rekeyBit != 0
	d.messageSize = length &^ rekeyBit
	if d.messageSize > d.session.policy.MaxMessageSize {
		log.WithField("messageSize", d.messageSize).Warn("netcrypt: message size exceeds policy limit")
		return n, ErrMalformedHeader
	}

	d.inData = true
	d.growBuffer()
	copy(d.buffer[:AADLen], d.header[:])
	return n, nil
}

// growBuffer extends d.buffer toward its final size (AADLen+messageSize+
// TagLen) in steps of at most bufferGrowStep, matching the original
// source's incremental vRecv.resize().
func (d *Decoder) growBuffer() {
	final := AADLen + int(d.messageSize) + TagLen
	if len(d.buffer) >= final {
		return
	}
	next := len(d.buffer) + bufferGrowStep
	if next > final {
		next = final
	}
	grown := make([]byte, next)
	copy(grown, d.buffer)
	d.buffer = grown
}

// readBody accumulates the body+tag and, once complete, authenticates and
// decrypts the frame, parses the command name, applies a peer-requested
// rekey if flagged, and marks the frame Complete.
func (d *Decoder) readBody(chunk []byte) (int, error) {
	total := 0
	for {
		final := AADLen + int(d.messageSize) + TagLen
		want := final - AADLen - d.dataPos
		n := want
		if n > len(chunk) {
			n = len(chunk)
		}
		if n > 0 {
			for len(d.buffer) < AADLen+d.dataPos+n {
				d.growBuffer()
			}
			copy(d.buffer[AADLen+d.dataPos:], chunk[:n])
			d.dataPos += n
			chunk = chunk[n:]
			total += n
		}
		if d.dataPos < int(d.messageSize)+TagLen {
			return total, nil
		}

		plain, err := d.session.decryptFrame(d.buffer[:final], d.messageSize, d.rekeyFlag)
		if err != nil {
			return total, err
		}
		command, body, err := splitCommand(plain)
		if err != nil {
			return total, ErrBadPayload
		}
		d.command = command
		d.payload = body
		return total, nil
	}
}

// reset clears decoder state so the next Read call starts a fresh frame.
func (d *Decoder) reset() {
	d.inData = false
	d.hdrPos = 0
	d.dataPos = 0
	d.messageSize = 0
	d.rekeyFlag = false
	d.buffer = nil
	d.payload = nil
	d.command = ""
}
