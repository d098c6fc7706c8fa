package controllers

import (
	"bufio"
	"fmt"
	"io"

	"github.com/flavioribeiro/nalscan/h264"
	"github.com/flavioribeiro/nalscan/internal/entities"
	"github.com/flavioribeiro/nalscan/internal/mapper"
	"go.uber.org/zap"
)

type ReportController struct {
	l *zap.SugaredLogger
	m *mapper.Mapper
}

func NewReportController(l *zap.SugaredLogger, m *mapper.Mapper) *ReportController {
	return &ReportController{
		l: l,
		m: m,
	}
}

// Records drains the scanner into report records.
func (c *ReportController) Records(s *h264.Scanner) ([]entities.ReportRecord, error) {
	records := []entities.ReportRecord{}
	for e, err := range s.ReadAll() {
		if err != nil {
			return records, err
		}
		records = append(records, c.m.FromEntryToReportRecord(e))
	}
	return records, nil
}

// Write drains the scanner and writes one line per unit to w. It returns
// the number of units written.
func (c *ReportController) Write(s *h264.Scanner, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)

	processed := 0
	for e, err := range s.ReadAll() {
		if err != nil {
			c.l.Errorw("failed to read nal unit",
				"index", processed,
				"error", err,
			)
			return processed, err
		}

		if err := c.writeRecord(bw, c.m.FromEntryToReportRecord(e)); err != nil {
			return processed, err
		}
		processed++
	}

	if err := bw.Flush(); err != nil {
		return processed, fmt.Errorf("error while flushing report: %w", err)
	}

	c.l.Infow(fmt.Sprintf("%d NAL units processed.", processed),
		"units", processed,
	)
	return processed, nil
}

func (c *ReportController) writeRecord(w io.Writer, r entities.ReportRecord) error {
	_, err := fmt.Fprintf(w, "%05d,   %05d,   %010.3f,   %36s\n", r.Index, r.Type, r.Timing, r.Name)
	if err != nil {
		return fmt.Errorf("error while writing report record %d: %w", r.Index, err)
	}
	return nil
}
