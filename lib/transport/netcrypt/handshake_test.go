package netcrypt

import (
	"bytes"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionFromSeed builds a Session whose ephemeral key is derived
// deterministically from a repeated seed byte, for fixed-seed handshake
// scenarios. Bypasses NewSession's random keygen.
func sessionFromSeed(t *testing.T, role Role, policy Policy, clk clock.Clock, seedByte byte) *Session {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = seedByte
	}
	priv := secp256k1.PrivKeyFromBytes(seed[:])
	if priv.PubKey().SerializeCompressed()[0] == 0x03 {
		priv = negatePrivateKey(priv)
	}
	return &Session{
		role:    role,
		clock:   clk,
		policy:  policy,
		ephPriv: priv,
		state:   StateFresh,
	}
}

func TestHandshake_FixedSeedProducesMatchingSessionID(t *testing.T) {
	clk := clock.NewMock()
	initiator := sessionFromSeed(t, RoleInitiator, DefaultPolicy(), clk, 0x01)
	responder := sessionFromSeed(t, RoleResponder, DefaultPolicy(), clk, 0x02)

	initKey := initiator.HandshakeInit()
	respKey := responder.HandshakeInit()

	require.NoError(t, initiator.HandshakeProcess(respKey))
	require.NoError(t, responder.HandshakeProcess(initKey))

	assert.True(t, initiator.ShouldEncrypt())
	assert.True(t, responder.ShouldEncrypt())
	assert.Equal(t, initiator.SessionID(), responder.SessionID())

	// Initiator sends with K1/recvs with K2; Responder sends with
	// K2/recvs with K1 — so initiator's send keypack must equal
	// responder's recv keypack.
	assert.Equal(t, initiator.send.kp, responder.recv.kp)
	assert.Equal(t, initiator.recv.kp, responder.send.kp)
}

func TestHandshake_ClearsEphemeralStateOnCompletion(t *testing.T) {
	clk := clock.NewMock()
	initiator := sessionFromSeed(t, RoleInitiator, DefaultPolicy(), clk, 0x01)
	responder := sessionFromSeed(t, RoleResponder, DefaultPolicy(), clk, 0x02)

	initKey := initiator.HandshakeInit()
	respKey := responder.HandshakeInit()
	require.NoError(t, initiator.HandshakeProcess(respKey))
	require.NoError(t, responder.HandshakeProcess(initKey))

	assert.Nil(t, initiator.ephPriv)
	assert.Equal(t, [32]byte{}, initiator.sharedSecret)
}

func TestHandshake_RejectsInvalidPeerKey(t *testing.T) {
	clk := clock.NewMock()
	s := sessionFromSeed(t, RoleInitiator, DefaultPolicy(), clk, 0x01)
	s.HandshakeInit()

	var badKey [32]byte // all-zero x-coordinate is not a valid curve point
	err := s.HandshakeProcess(badKey)
	require.ErrorIs(t, err, ErrBadHandshake)
	assert.Equal(t, StateAborted, s.state)
}

func TestHandshakeReader_RejectsLegacyNetworkMagic(t *testing.T) {
	var block [32]byte
	copy(block[:], networkMagic[:])

	r := &HandshakeReader{}
	_, err := r.Read(block[:])
	require.ErrorIs(t, err, ErrBadHandshake)
}

func TestHandshakeReader_RejectsLegacyVersionCommand(t *testing.T) {
	var block [32]byte
	copy(block[4:], []byte("version\x00\x00\x00\x00\x00"))

	r := &HandshakeReader{}
	_, err := r.Read(block[:])
	require.ErrorIs(t, err, ErrBadHandshake)
}

func TestHandshakeReader_AccumulatesPartialReads(t *testing.T) {
	clk := clock.NewMock()
	s := sessionFromSeed(t, RoleInitiator, DefaultPolicy(), clk, 0x01)
	full := s.HandshakeInit()

	r := &HandshakeReader{}
	chunks := [][]byte{full[:5], full[5:17], full[17:]}
	total := 0
	for _, c := range chunks {
		n, err := r.Read(c)
		require.NoError(t, err)
		total += n
		if total < 32 {
			assert.False(t, r.Complete())
		}
	}
	require.True(t, r.Complete())
	peerKey := r.PeerKey()
	assert.True(t, bytes.Equal(peerKey[:], full[:]))
}
