package entities

import (
	"time"

	"github.com/pion/webrtc/v3"
)

type RequestParams struct {
	Offer webrtc.SessionDescription
}

func (p *RequestParams) Valid() error {
	if p == nil {
		return ErrMissingParamsOffer
	}

	if p.Offer.SDP == "" {
		return ErrMissingRemoteOffer
	}

	return nil
}

// ReportRecord is one line of the NAL unit report.
type ReportRecord struct {
	Index int
	Type  uint8
	// Timing is the unit size divided by 125, i.e. its transmission time in
	// milliseconds at 1 Mbit/s. It is not a timestamp.
	Timing float64
	Name   string
	Offset int64
	Size   int
}

type Config struct {
	LogLevel string `required:"true" default:"info"`

	HTTPPort int32  `required:"true" default:"8080"`
	HTTPHost string `required:"true" default:"0.0.0.0"`

	ICEExternalIPsDNAT []string
	StunServers        []string `required:"true" default:"stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302"`

	// RTP session defaults match a 90kHz video clock at 30 frames per second.
	RTPPortBase       int           `required:"true" default:"5000"`
	RTPClockRate      uint32        `required:"true" default:"90000"`
	RTPFrameRate      uint32        `required:"true" default:"30"`
	RTPPayloadType    uint8         `required:"true" default:"96"`
	RTPMaxPacketSize  int           `required:"true" default:"1400"`
	RTPReadBufferSize int           `required:"true" default:"65535"`
	RTPPollTimeout    time.Duration `required:"true" default:"1ms"`
	RTPSendInterval   time.Duration `required:"true" default:"33ms"`

	// InputPath is the Annex-B file served by the web handlers.
	InputPath string `ignored:"true"`
}

// RTPTimestampIncrement is the RTP clock advance between two packets.
func (c *Config) RTPTimestampIncrement() uint32 {
	if c.RTPFrameRate == 0 {
		return c.RTPClockRate
	}
	return c.RTPClockRate / c.RTPFrameRate
}

// FrameDuration is the media duration of a single unit.
func (c *Config) FrameDuration() time.Duration {
	if c.RTPFrameRate == 0 {
		return time.Second
	}
	return time.Second / time.Duration(c.RTPFrameRate)
}
