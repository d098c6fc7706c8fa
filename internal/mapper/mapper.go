package mapper

import (
	"time"

	"github.com/flavioribeiro/nalscan/h264"
	"github.com/flavioribeiro/nalscan/internal/entities"
	"github.com/pion/webrtc/v3/pkg/media"
	"go.uber.org/zap"
)

// bytes per millisecond at 1 Mbit/s
const reportTimingDivisor = 125.0

var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

type Mapper struct {
	l *zap.SugaredLogger
}

func NewMapper(l *zap.SugaredLogger) *Mapper {
	return &Mapper{l: l}
}

func (m *Mapper) FromEntryToReportRecord(e h264.Entry) entities.ReportRecord {
	name, err := e.Type.Name()
	if err != nil {
		m.l.Debugw("unknown nal unit type",
			"index", e.Index,
			"error", err,
		)
		name = e.Type.String()
	}

	return entities.ReportRecord{
		Index:  e.Index,
		Type:   uint8(e.Type),
		Timing: float64(e.Size) / reportTimingDivisor,
		Name:   name,
		Offset: e.Offset,
		Size:   e.Size,
	}
}

// FromNALToAnnexB prefixes the unit with a four byte start code.
func (m *Mapper) FromNALToAnnexB(nal *h264.NAL) []byte {
	return m.FromPayloadToAnnexB(nal.Data)
}

func (m *Mapper) FromPayloadToAnnexB(data []byte) []byte {
	out := make([]byte, 0, len(annexBStartCode)+len(data))
	out = append(out, annexBStartCode...)
	return append(out, data...)
}

func (m *Mapper) FromNALToSample(nal *h264.NAL, d time.Duration) media.Sample {
	return media.Sample{
		Data:     m.FromNALToAnnexB(nal),
		Duration: d,
	}
}
