package controllers_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/flavioribeiro/nalscan/h264"
	"github.com/flavioribeiro/nalscan/internal/controllers"
	"github.com/flavioribeiro/nalscan/internal/entities"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRTPController(c *entities.Config) *controllers.RTPController {
	return controllers.NewRTPController(c, zap.NewNop().Sugar())
}

func pollUntil(t *testing.T, s *controllers.RTPSession, want int) []*rtp.Packet {
	t.Helper()
	var packets []*rtp.Packet
	deadline := time.Now().Add(2 * time.Second)
	for len(packets) < want && time.Now().Before(deadline) {
		got, err := s.PollIncoming()
		require.NoError(t, err)
		packets = append(packets, got...)
	}
	return packets
}

func TestRTPController_CreateSession_InvalidDestination(t *testing.T) {
	c := newRTPController(testConfig())

	s, err := c.CreateSession("", 5004)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, entities.ErrInvalidDestination)

	s, err = c.CreateSession("127.0.0.1", 0)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, entities.ErrInvalidDestination)

	s, err = c.CreateSession("not an address..", 5004)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, entities.ErrInvalidDestination)
}

func TestRTPSession_SendAndPoll(t *testing.T) {
	cfg := testConfig()
	c := newRTPController(cfg)

	receiver, err := c.Listen(0)
	require.NoError(t, err)
	defer receiver.Close()

	sender, err := c.CreateSession("127.0.0.1", uint16(receiver.LocalAddr().Port))
	require.NoError(t, err)
	defer sender.Close()

	ctx := context.Background()
	require.NoError(t, sender.SendPacket(ctx, []byte{0x67, 0x42}))
	require.NoError(t, sender.SendPacket(ctx, []byte{0x68, 0xCE}))

	packets := pollUntil(t, receiver, 2)
	require.Len(t, packets, 2)

	assert.Equal(t, []byte{0x67, 0x42}, packets[0].Payload)
	assert.Equal(t, []byte{0x68, 0xCE}, packets[1].Payload)
	assert.Equal(t, uint8(2), packets[0].Version)
	assert.Equal(t, cfg.RTPPayloadType, packets[0].PayloadType)
	assert.Equal(t, sender.SSRC(), packets[0].SSRC)
	assert.Equal(t, packets[0].SequenceNumber+1, packets[1].SequenceNumber)
	assert.Equal(t, packets[0].Timestamp+cfg.RTPTimestampIncrement(), packets[1].Timestamp)
}

func TestRTPSession_SendPacket_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.RTPMaxPacketSize = 32
	c := newRTPController(cfg)

	receiver, err := c.Listen(0)
	require.NoError(t, err)
	defer receiver.Close()

	sender, err := c.CreateSession("127.0.0.1", uint16(receiver.LocalAddr().Port))
	require.NoError(t, err)
	defer sender.Close()

	err = sender.SendPacket(context.Background(), make([]byte, 64))
	assert.ErrorIs(t, err, entities.ErrRTPPacketTooLarge)
}

func TestRTPSession_ReceiveOnlyAndClosed(t *testing.T) {
	c := newRTPController(testConfig())

	receiver, err := c.Listen(0)
	require.NoError(t, err)

	err = receiver.SendPacket(context.Background(), []byte{0x09})
	assert.ErrorIs(t, err, entities.ErrMissingDestination)

	packets, err := receiver.PollIncoming()
	assert.NoError(t, err)
	assert.Empty(t, packets)

	require.NoError(t, receiver.Close())
	require.NoError(t, receiver.Close())

	_, err = receiver.PollIncoming()
	assert.ErrorIs(t, err, entities.ErrRTPSessionClosed)
}

func TestRTPSession_StreamFileEndToEnd(t *testing.T) {
	cfg := testConfig()
	c := newRTPController(cfg)
	streaming := newStreamingController(cfg)

	receiver, err := c.Listen(0)
	require.NoError(t, err)
	defer receiver.Close()

	sender, err := c.CreateSession("127.0.0.1", uint16(receiver.LocalAddr().Port))
	require.NoError(t, err)
	defer sender.Close()

	n, err := streaming.Send(context.Background(), newSampleScanner(t), sender, 10)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	packets := pollUntil(t, receiver, 4)
	require.Len(t, packets, 4)

	expected, err := h264.NewScanner(bytes.NewReader(sampleStream))
	require.NoError(t, err)
	for _, p := range packets {
		nal, err := expected.Read()
		require.NoError(t, err)
		assert.Equal(t, nal.Data, p.Payload)
	}
}
