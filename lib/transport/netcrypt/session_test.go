package netcrypt

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

// handshakeReady returns an initiator/responder pair that has already
// completed the handshake and is ready to encrypt, sharing the given mock
// clock so rekey-timing tests can drive both sides' notion of "now".
func handshakeReady(t *testing.T, policy Policy, clk *clock.Mock) (*Session, *Session) {
	t.Helper()
	initiator := sessionFromSeed(t, RoleInitiator, policy, clk, 0x01)
	responder := sessionFromSeed(t, RoleResponder, policy, clk, 0x02)

	initKey := initiator.HandshakeInit()
	respKey := responder.HandshakeInit()
	require.NoError(t, initiator.HandshakeProcess(respKey))
	require.NoError(t, responder.HandshakeProcess(initKey))
	return initiator, responder
}

func TestSession_ShouldEncryptFalseBeforeHandshake(t *testing.T) {
	clk := clock.NewMock()
	s := sessionFromSeed(t, RoleInitiator, DefaultPolicy(), clk, 0x01)
	require.False(t, s.ShouldEncrypt())
}

func TestSession_CloseIsIdempotentAndZeroizes(t *testing.T) {
	clk := clock.NewMock()
	initiator, _ := handshakeReady(t, DefaultPolicy(), clk)
	initiator.Close()
	initiator.Close()
	require.False(t, initiator.ShouldEncrypt())
	require.Equal(t, StateAborted, initiator.state)
	require.Equal(t, keypack{}, initiator.send.kp)
	require.Equal(t, keypack{}, initiator.recv.kp)
}

func TestSession_EncryptFailsBeforeHandshakeComplete(t *testing.T) {
	clk := clock.NewMock()
	s := sessionFromSeed(t, RoleInitiator, DefaultPolicy(), clk, 0x01)
	buf := make([]byte, AADLen+CommandLen)
	copy(buf[AADLen:], EncodeCommand("ping"))
	_, err := s.Encrypt(buf)
	require.ErrorIs(t, err, ErrSessionNotEncrypted)
}
