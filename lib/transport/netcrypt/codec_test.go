package netcrypt

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_BasicFrameRoundTrip(t *testing.T) {
	clk := clock.NewMock()
	initiator, responder := handshakeReady(t, DefaultPolicy(), clk)

	buf := make([]byte, AADLen+CommandLen)
	buf[0] = CommandLen // 12, no rekey bit
	copy(buf[AADLen:], EncodeCommand("ping"))

	frame, err := initiator.Encrypt(buf)
	require.NoError(t, err)
	assert.Equal(t, AADLen+CommandLen+TagLen, len(frame))
	assert.Equal(t, 31, len(frame))

	decoder := NewDecoder(responder)
	consumed, err := decoder.Read(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), consumed)
	require.True(t, decoder.Complete())
	assert.Equal(t, "ping", decoder.Command())
	assert.Empty(t, decoder.Payload())
	assert.Equal(t, uint64(1), responder.recv.seq)
}

func TestCodec_EncryptRejectsReservedBitSetOnInput(t *testing.T) {
	clk := clock.NewMock()
	initiator, _ := handshakeReady(t, DefaultPolicy(), clk)

	buf := make([]byte, AADLen+CommandLen)
	buf[2] = 0x80 // bit 23 set
	_, err := initiator.Encrypt(buf)
	require.ErrorIs(t, err, ErrReservedBit)
}

func TestCodec_BitFlipInFrameFailsAuthentication(t *testing.T) {
	clk := clock.NewMock()
	initiator, responder := handshakeReady(t, DefaultPolicy(), clk)

	buf := make([]byte, AADLen+CommandLen)
	buf[0] = CommandLen
	copy(buf[AADLen:], EncodeCommand("ping"))
	frame, err := initiator.Encrypt(buf)
	require.NoError(t, err)

	frame[len(frame)-1] ^= 0x01 // flip a tag bit

	decoder := NewDecoder(responder)
	_, err = decoder.Read(frame)
	require.ErrorIs(t, err, ErrAuthFailure)
}

func TestCodec_SendSeqAdvancesPerSuccessfulEncrypt(t *testing.T) {
	clk := clock.NewMock()
	initiator, responder := handshakeReady(t, DefaultPolicy(), clk)

	for i := 0; i < 3; i++ {
		buf := make([]byte, AADLen+CommandLen)
		buf[0] = CommandLen
		copy(buf[AADLen:], EncodeCommand("ping"))
		frame, err := initiator.Encrypt(buf)
		require.NoError(t, err)

		decoder := NewDecoder(responder)
		_, err = decoder.Read(frame)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(3), initiator.send.seq)
	assert.Equal(t, uint64(3), responder.recv.seq)
}
