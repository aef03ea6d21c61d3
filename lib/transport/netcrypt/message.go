package netcrypt

// commandLen is the width of the fixed command-name field at the head of
// every decrypted payload, matching net_encryption.cpp's `vRecv >>
// m_command_name` (a CMessageHeader-style 12-byte NUL-padded ASCII field).
// The transport is payload-agnostic past this field; it is the one concrete
// instantiation of "application message format" this package commits to.
const commandLen = 12

// CommandLen is the exported width of the fixed command-name field, for
// callers assembling outbound frame buffers.
const CommandLen = commandLen

// splitCommand parses the command-name field off the head of a decrypted
// payload and returns it alongside the remaining body. The field must be
// exactly commandLen bytes of ASCII, NUL-padded on the right; a non-NUL
// byte following the first NUL, or a payload shorter than commandLen,
// makes it unparseable.
func splitCommand(plain []byte) (string, []byte, error) {
	if len(plain) < commandLen {
		return "", nil, ErrBadPayload
	}
	field := plain[:commandLen]

	nul := commandLen
	for i, b := range field {
		if b == 0 {
			nul = i
			break
		}
		if b < 0x20 || b > 0x7e {
			return "", nil, ErrBadPayload
		}
	}
	for _, b := range field[nul:] {
		if b != 0 {
			return "", nil, ErrBadPayload
		}
	}

	return string(field[:nul]), plain[commandLen:], nil
}

// encodeCommand builds a commandLen-byte NUL-padded command field from
// name, for callers assembling an outbound payload before Session.Encrypt.
// Panics if name is longer than commandLen bytes, mirroring the fixed-width
// contract callers are expected to respect (a command name is a compile-time
// constant in every real caller, never attacker-controlled input).
func encodeCommand(name string) [commandLen]byte {
	if len(name) > commandLen {
		panic("netcrypt: command name exceeds 12 bytes")
	}
	var out [commandLen]byte
	copy(out[:], name)
	return out
}

// EncodeCommand is the exported form of encodeCommand, for callers outside
// this package assembling an outbound payload before Session.Encrypt.
func EncodeCommand(name string) []byte {
	out := encodeCommand(name)
	return out[:]
}
