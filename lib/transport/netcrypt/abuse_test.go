package netcrypt

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestCheckAbuseLimits_RejectsWhenBytesDecWouldExceedAbortBytes(t *testing.T) {
	clk := clock.NewMock()
	policy := DefaultPolicy()
	policy.AbortBytes = 100
	initiator, responder := handshakeReady(t, policy, clk)
	_ = initiator

	responder.recv.mu.Lock()
	responder.recv.bytesDec = 90
	responder.recv.mu.Unlock()

	err := responder.checkAbuseLimits(20)
	require.ErrorIs(t, err, ErrProtocolAbuse)
}

func TestCheckAbuseLimits_AllowsWhenBytesDecStaysUnderAbortBytes(t *testing.T) {
	clk := clock.NewMock()
	policy := DefaultPolicy()
	policy.AbortBytes = 100
	_, responder := handshakeReady(t, policy, clk)

	responder.recv.mu.Lock()
	responder.recv.bytesDec = 50
	responder.recv.mu.Unlock()

	require.NoError(t, responder.checkAbuseLimits(20))
}

func TestCheckAbuseLimits_RejectsWhenAbortIntervalElapsedSinceLastSendRekey(t *testing.T) {
	clk := clock.NewMock()
	policy := DefaultPolicy()
	policy.AbortInterval = time.Minute
	_, responder := handshakeReady(t, policy, clk)

	clk.Add(policy.AbortInterval + time.Second)

	err := responder.checkAbuseLimits(1)
	require.ErrorIs(t, err, ErrProtocolAbuse)
}

func TestDecryptFrame_ReturnsProtocolAbuseBeforeAuthenticating(t *testing.T) {
	clk := clock.NewMock()
	policy := DefaultPolicy()
	policy.AbortBytes = 10
	initiator, responder := handshakeReady(t, policy, clk)

	buf := make([]byte, AADLen+CommandLen)
	buf[0] = CommandLen
	copy(buf[AADLen:], EncodeCommand("ping"))
	frame, err := initiator.Encrypt(buf)
	require.NoError(t, err)

	decoder := NewDecoder(responder)
	_, err = decoder.Read(frame)
	require.ErrorIs(t, err, ErrProtocolAbuse)
}
