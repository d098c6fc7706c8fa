package controllers_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flavioribeiro/nalscan/h264"
	"github.com/flavioribeiro/nalscan/internal/controllers"
	"github.com/flavioribeiro/nalscan/internal/entities"
	"github.com/flavioribeiro/nalscan/internal/mapper"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTransport struct {
	sent     [][]byte
	failAt   int
	incoming [][]*rtp.Packet
	polls    int
	cancel   context.CancelFunc
}

func (f *fakeTransport) SendPacket(ctx context.Context, data []byte) error {
	if f.failAt > 0 && len(f.sent)+1 == f.failAt {
		return entities.ErrRTPPacketTooLarge
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeTransport) PollIncoming() ([]*rtp.Packet, error) {
	f.polls++
	if len(f.incoming) == 0 {
		if f.cancel != nil {
			f.cancel()
		}
		return nil, nil
	}
	next := f.incoming[0]
	f.incoming = f.incoming[1:]
	return next, nil
}

type fakeTrack struct {
	samples []media.Sample
	err     error
}

func (f *fakeTrack) WriteSample(s media.Sample) error {
	if f.err != nil {
		return f.err
	}
	f.samples = append(f.samples, s)
	return nil
}

func testConfig() *entities.Config {
	return &entities.Config{
		RTPPortBase:       0,
		RTPClockRate:      90000,
		RTPFrameRate:      1000,
		RTPPayloadType:    96,
		RTPMaxPacketSize:  1400,
		RTPReadBufferSize: 65535,
		RTPPollTimeout:    20 * time.Millisecond,
		RTPSendInterval:   0,
	}
}

func newStreamingController(c *entities.Config) *controllers.StreamingController {
	l := zap.NewNop().Sugar()
	return controllers.NewStreamingController(c, l, mapper.NewMapper(l))
}

func newSampleScanner(t *testing.T) *h264.Scanner {
	t.Helper()
	s, err := h264.NewScanner(bytes.NewReader(sampleStream))
	require.NoError(t, err)
	return s
}

func TestStreamingController_Send_StopsAtCount(t *testing.T) {
	transport := &fakeTransport{}

	n, err := newStreamingController(testConfig()).Send(context.Background(), newSampleScanner(t), transport, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, transport.sent, 2)
	assert.Equal(t, []byte{0x67, 0x42, 0xC0, 0x1E}, transport.sent[0])
	assert.Equal(t, []byte{0x68, 0xCE, 0x3C, 0x80}, transport.sent[1])
	assert.Equal(t, 2, transport.polls)
}

func TestStreamingController_Send_StopsAtEndOfStream(t *testing.T) {
	transport := &fakeTransport{}

	n, err := newStreamingController(testConfig()).Send(context.Background(), newSampleScanner(t), transport, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, transport.sent, 4)
}

func TestStreamingController_Send_StopsWhenTransportFails(t *testing.T) {
	transport := &fakeTransport{failAt: 3}

	n, err := newStreamingController(testConfig()).Send(context.Background(), newSampleScanner(t), transport, 10)
	assert.ErrorIs(t, err, entities.ErrRTPPacketTooLarge)
	assert.Equal(t, 2, n)
	assert.Len(t, transport.sent, 2)
}

func TestStreamingController_Send_HonorsCancellation(t *testing.T) {
	c := testConfig()
	c.RTPSendInterval = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	n, err := newStreamingController(c).Send(ctx, newSampleScanner(t), &fakeTransport{}, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, n)
}

func TestStreamingController_Receive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := &fakeTransport{
		cancel: cancel,
		incoming: [][]*rtp.Packet{
			{
				{Header: rtp.Header{SequenceNumber: 1}, Payload: []byte{0x67, 0x42}},
				{Header: rtp.Header{SequenceNumber: 2}, Payload: []byte{0x68, 0xCE}},
			},
			{
				{Header: rtp.Header{SequenceNumber: 3}, Payload: []byte{0x65, 0x88}},
			},
		},
	}

	out := &bytes.Buffer{}
	n, err := newStreamingController(testConfig()).Receive(ctx, transport, out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0x42,
		0x00, 0x00, 0x00, 0x01, 0x68, 0xCE,
		0x00, 0x00, 0x00, 0x01, 0x65, 0x88,
	}, out.Bytes())

	// the written file is itself a valid Annex-B stream
	s, err := h264.NewScanner(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	nal, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, h264.SequenceParameterSet, nal.Type())
}

func TestStreamingController_StreamToTrack(t *testing.T) {
	track := &fakeTrack{}

	n, err := newStreamingController(testConfig()).StreamToTrack(context.Background(), newSampleScanner(t), track)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, track.samples, 4)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x88, 0x84}, track.samples[2].Data)
	assert.Equal(t, time.Millisecond, track.samples[2].Duration)
	assert.Zero(t, track.samples[0].Duration)
	assert.Zero(t, track.samples[1].Duration)
	assert.Zero(t, track.samples[3].Duration)
}

func TestStreamingController_StreamToTrack_WriteError(t *testing.T) {
	track := &fakeTrack{err: errors.New("track closed")}

	n, err := newStreamingController(testConfig()).StreamToTrack(context.Background(), newSampleScanner(t), track)
	assert.EqualError(t, err, "track closed")
	assert.Equal(t, 0, n)
}
