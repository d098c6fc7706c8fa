package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/flavioribeiro/nalscan/h264"
	"github.com/flavioribeiro/nalscan/internal/controllers"
	"github.com/flavioribeiro/nalscan/internal/entities"
)

type ReportHandler struct {
	c                *entities.Config
	reportController *controllers.ReportController
}

func NewReportHandler(c *entities.Config, reportController *controllers.ReportController) *ReportHandler {
	return &ReportHandler{
		c:                c,
		reportController: reportController,
	}
}

// ServeHTTP lists the NAL units of the configured input file as JSON.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return entities.ErrHTTPGetOnly
	}
	if h.c.InputPath == "" {
		return entities.ErrMissingInputPath
	}

	scanner, err := h264.Open(h.c.InputPath)
	if err != nil {
		return err
	}
	defer scanner.Close()

	records, err := h.reportController.Records(scanner)
	if err != nil {
		return err
	}

	SetSuccessJson(w)
	return json.NewEncoder(w).Encode(records)
}
