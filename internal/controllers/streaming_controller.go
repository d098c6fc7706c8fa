package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/flavioribeiro/nalscan/h264"
	"github.com/flavioribeiro/nalscan/internal/entities"
	"github.com/flavioribeiro/nalscan/internal/mapper"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media"
	"go.uber.org/zap"
)

// Transport is the packet sink/source fed by the streaming controller.
type Transport interface {
	SendPacket(ctx context.Context, data []byte) error
	PollIncoming() ([]*rtp.Packet, error)
}

// SampleWriter is satisfied by *webrtc.TrackLocalStaticSample.
type SampleWriter interface {
	WriteSample(s media.Sample) error
}

type StreamingController struct {
	c *entities.Config
	l *zap.SugaredLogger
	m *mapper.Mapper
}

func NewStreamingController(c *entities.Config, l *zap.SugaredLogger, m *mapper.Mapper) *StreamingController {
	return &StreamingController{
		c: c,
		l: l,
		m: m,
	}
}

// Send feeds up to count units to t, one packet per unit. It stops early at
// end of stream or on the first transport error and returns the number of
// units sent.
func (c *StreamingController) Send(ctx context.Context, s *h264.Scanner, t Transport, count int) (int, error) {
	sent := 0
	for i := 1; i <= count; i++ {
		nal, err := s.Read()
		if errors.Is(err, io.EOF) {
			c.l.Infow("end of stream reached",
				"sent", sent,
			)
			return sent, nil
		}
		if err != nil {
			return sent, err
		}

		c.l.Infow(fmt.Sprintf("Sending packet %d/%d of size %d", i, count, nal.Size()),
			"type", nal.Type().String(),
			"offset", nal.Offset,
			"next_offset", s.Offset(),
		)
		if err := t.SendPacket(ctx, nal.Data); err != nil {
			c.l.Errorw("transport is no longer alive",
				"error", err,
			)
			return sent, err
		}
		sent++

		if err := c.logIncoming(t); err != nil {
			return sent, err
		}

		if err := c.wait(ctx, c.c.RTPSendInterval); err != nil {
			return sent, err
		}
	}
	return sent, nil
}

// Receive polls t until ctx is done, writing each received payload to w
// as an Annex-B unit. A nil w only logs the packets.
func (c *StreamingController) Receive(ctx context.Context, t Transport, w io.Writer) (int, error) {
	received := 0
	for {
		select {
		case <-ctx.Done():
			c.l.Infow("receiving has stopped",
				"received", received,
			)
			return received, nil
		default:
		}

		packets, err := t.PollIncoming()
		if err != nil {
			return received, err
		}

		for _, p := range packets {
			c.l.Infow("Got packet !",
				"ssrc", p.SSRC,
				"sequence_number", p.SequenceNumber,
				"timestamp", p.Timestamp,
				"size", len(p.Payload),
			)
			received++

			if w == nil || len(p.Payload) == 0 {
				continue
			}
			if _, err := w.Write(c.m.FromPayloadToAnnexB(p.Payload)); err != nil {
				return received, fmt.Errorf("error while writing received unit: %w", err)
			}
		}
	}
}

// StreamToTrack writes every unit as a media sample until the stream or
// ctx ends.
func (c *StreamingController) StreamToTrack(ctx context.Context, s *h264.Scanner, track SampleWriter) (int, error) {
	c.l.Infow("streaming has started")

	written := 0
	ticker := time.NewTicker(c.c.FrameDuration())
	defer ticker.Stop()

	for {
		nal, err := s.Read()
		if errors.Is(err, io.EOF) {
			c.l.Infow("streaming has finished",
				"units", written,
			)
			return written, nil
		}
		if err != nil {
			return written, err
		}

		// units of one access unit share a timestamp, so only pictures advance it
		picture := isPictureUnit(nal.Type())
		duration := time.Duration(0)
		if picture {
			duration = c.c.FrameDuration()
		}

		if err := track.WriteSample(c.m.FromNALToSample(nal, duration)); err != nil {
			c.l.Errorw("failed to write a nal unit to web rtc",
				"error", err,
			)
			return written, err
		}
		written++

		// parameter sets and delimiters do not take a frame slot
		if !picture {
			continue
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				c.l.Infow("streaming has stopped due cancellation")
				return written, nil
			}
			return written, ctx.Err()
		case <-ticker.C:
		}
	}
}

func isPictureUnit(t h264.NALUnitType) bool {
	return t >= h264.CodedSliceNonIDRPicture && t <= h264.CodedSliceIDRPicture
}

func (c *StreamingController) logIncoming(t Transport) error {
	packets, err := t.PollIncoming()
	if err != nil {
		c.l.Errorw("transport is no longer alive",
			"error", err,
		)
		return err
	}
	for _, p := range packets {
		c.l.Infow("Got packet !",
			"ssrc", p.SSRC,
			"sequence_number", p.SequenceNumber,
		)
	}
	return nil
}

func (c *StreamingController) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
