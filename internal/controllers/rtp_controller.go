package controllers

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/flavioribeiro/nalscan/internal/entities"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"go.uber.org/zap"
)

type RTPController struct {
	c *entities.Config
	l *zap.SugaredLogger
}

func NewRTPController(c *entities.Config, l *zap.SugaredLogger) *RTPController {
	return &RTPController{
		c: c,
		l: l,
	}
}

// RTPSession sends every NAL unit as a single RTP packet over UDP and
// drains whatever arrives on its local port. Each operation reports its
// own error; there is no sticky liveness state.
type RTPSession struct {
	c *entities.Config
	l *zap.SugaredLogger

	conn      *net.UDPConn
	dest      *net.UDPAddr
	ssrc      uint32
	sequencer rtp.Sequencer
	timestamp uint32
	readBuf   []byte
	closed    bool
}

// CreateSession binds the configured local port base and targets the IPv4
// address host on port.
func (c *RTPController) CreateSession(host string, port uint16) (*RTPSession, error) {
	if host == "" || port == 0 {
		return nil, fmt.Errorf("%w: %q:%d", entities.ErrInvalidDestination, host, port)
	}

	ip := net.ParseIP(host).To4()
	if ip == nil {
		c.l.Errorw("bad destination address",
			"host", host,
			"port", port,
		)
		return nil, fmt.Errorf("%w: %q is not an IPv4 address", entities.ErrInvalidDestination, host)
	}
	dest := &net.UDPAddr{IP: ip, Port: int(port)}

	s, err := c.newSession(c.c.RTPPortBase)
	if err != nil {
		return nil, err
	}
	s.dest = dest

	c.l.Infow("rtp session created",
		"local", s.LocalAddr().String(),
		"destination", dest.String(),
		"ssrc", s.ssrc,
		"max_packet_size", c.c.RTPMaxPacketSize,
	)
	return s, nil
}

// Listen creates a receive-only session bound to port.
func (c *RTPController) Listen(port int) (*RTPSession, error) {
	s, err := c.newSession(port)
	if err != nil {
		return nil, err
	}
	c.l.Infow("rtp session listening",
		"local", s.LocalAddr().String(),
	)
	return s, nil
}

func (c *RTPController) newSession(port int) (*RTPSession, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{
		IP:   net.IP{0, 0, 0, 0},
		Port: port,
	})
	if err != nil {
		c.l.Errorw("failed to bind rtp port",
			"port", port,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", entities.ErrRTP, err)
	}

	return &RTPSession{
		c:         c.c,
		l:         c.l,
		conn:      conn,
		ssrc:      rand.Uint32(),
		sequencer: rtp.NewRandomSequencer(),
		timestamp: rand.Uint32(),
		readBuf:   make([]byte, c.c.RTPReadBufferSize),
	}, nil
}

func (s *RTPSession) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

func (s *RTPSession) SSRC() uint32 {
	return s.ssrc
}

// SendPacket wraps data in one RTP packet. Units that do not fit in the
// maximum packet size fail with ErrRTPPacketTooLarge.
func (s *RTPSession) SendPacket(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return entities.ErrRTPSessionClosed
	}
	if s.dest == nil {
		return entities.ErrMissingDestination
	}

	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    s.c.RTPPayloadType,
			SequenceNumber: s.sequencer.NextSequenceNumber(),
			Timestamp:      s.timestamp,
			SSRC:           s.ssrc,
		},
		Payload: data,
	}

	raw, err := packet.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %w", entities.ErrRTP, err)
	}
	if len(raw) > s.c.RTPMaxPacketSize {
		return fmt.Errorf("%w: %d > %d", entities.ErrRTPPacketTooLarge, len(raw), s.c.RTPMaxPacketSize)
	}

	if _, err := s.conn.WriteToUDP(raw, s.dest); err != nil {
		return fmt.Errorf("%w: %w", entities.ErrRTP, err)
	}
	s.timestamp += s.c.RTPTimestampIncrement()
	return nil
}

// PollIncoming returns the packets already queued on the socket, waiting
// at most RTPPollTimeout for each one.
func (s *RTPSession) PollIncoming() ([]*rtp.Packet, error) {
	if s.closed {
		return nil, entities.ErrRTPSessionClosed
	}

	var packets []*rtp.Packet
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.c.RTPPollTimeout)); err != nil {
			return packets, fmt.Errorf("%w: %w", entities.ErrRTP, err)
		}

		n, from, err := s.conn.ReadFromUDP(s.readBuf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return packets, nil
			}
			return packets, fmt.Errorf("%w: %w", entities.ErrRTP, err)
		}

		// Unmarshal keeps references into its input
		raw := make([]byte, n)
		copy(raw, s.readBuf[:n])

		packet := &rtp.Packet{}
		if err := packet.Unmarshal(raw); err != nil {
			s.l.Debugw("dropping non rtp datagram",
				"from", from.String(),
				"size", n,
				"error", err,
			)
			continue
		}
		packets = append(packets, packet)
	}
}

// Close says goodbye on the RTCP port of the destination, if any, and
// releases the socket.
func (s *RTPSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.dest != nil {
		if err := s.sendBye(); err != nil {
			s.l.Errorw("failed to send rtcp bye",
				"error", err,
			)
		}
	}
	return s.conn.Close()
}

func (s *RTPSession) sendBye() error {
	bye := &rtcp.Goodbye{Sources: []uint32{s.ssrc}}
	raw, err := bye.Marshal()
	if err != nil {
		return err
	}

	rtcpAddr := &net.UDPAddr{IP: s.dest.IP, Port: s.dest.Port + 1, Zone: s.dest.Zone}
	_, err = s.conn.WriteToUDP(raw, rtcpAddr)
	return err
}
