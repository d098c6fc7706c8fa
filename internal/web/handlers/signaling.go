package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/asticode/go-astikit"
	"github.com/flavioribeiro/nalscan/h264"
	"github.com/flavioribeiro/nalscan/internal/controllers"
	"github.com/flavioribeiro/nalscan/internal/entities"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

const streamID = "nalscan"

type SignalingHandler struct {
	c                   *entities.Config
	l                   *zap.SugaredLogger
	webRTCController    *controllers.WebRTCController
	streamingController *controllers.StreamingController
}

func NewSignalingHandler(
	c *entities.Config,
	log *zap.SugaredLogger,
	webRTCController *controllers.WebRTCController,
	streamingController *controllers.StreamingController,
) *SignalingHandler {
	return &SignalingHandler{
		c:                   c,
		l:                   log,
		webRTCController:    webRTCController,
		streamingController: streamingController,
	}
}

// ServeHTTP answers a WebRTC offer and streams the configured input file
// over an H.264 track.
func (h *SignalingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return entities.ErrHTTPPostOnly
	}

	params := entities.RequestParams{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		return err
	}
	if err := params.Valid(); err != nil {
		return err
	}
	if h.c.InputPath == "" {
		return entities.ErrMissingInputPath
	}

	// released here on failure, by the streaming goroutine otherwise
	closer := astikit.NewCloser()
	streaming := false
	defer func() {
		if !streaming {
			closer.Close()
		}
	}()

	scanner, err := h264.Open(h.c.InputPath)
	if err != nil {
		return err
	}
	closer.Add(func() { scanner.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	closer.Add(func() { cancel() })

	peer, err := h.webRTCController.CreatePeerConnection(cancel)
	if err != nil {
		return err
	}
	closer.Add(func() { peer.Close() })

	track, err := h.webRTCController.CreateH264Track(peer, "video", streamID)
	if err != nil {
		return err
	}

	localDescription, err := h.webRTCController.Answer(peer, params.Offer)
	if err != nil {
		return err
	}

	response, err := json.Marshal(localDescription)
	if err != nil {
		return err
	}

	streaming = true
	go h.stream(ctx, closer, scanner, track)

	SetSuccessJson(w)
	if _, err := w.Write(response); err != nil {
		h.l.Errorw("error responding the local web rtc answer description",
			"error", err,
		)
	}
	return nil
}

func (h *SignalingHandler) stream(ctx context.Context, closer *astikit.Closer, s *h264.Scanner, track *webrtc.TrackLocalStaticSample) {
	defer closer.Close()

	n, err := h.streamingController.StreamToTrack(ctx, s, track)
	if err != nil {
		h.l.Errorw("streaming has stopped due errors",
			"units", n,
			"error", err,
		)
		return
	}
	h.l.Infow("streaming done",
		"units", n,
	)
}
