package web

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/database"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"github.com/dbehnke/codeplug-nexus/pkg/transfer"
)

// RawFamily names archived images that carry no codeplug family
const RawFamily = "raw"

// transferTimeout bounds a single transfer started over the API
const transferTimeout = 10 * time.Minute

// Transferer is a radio the API can drive. *transfer.Radio implements it.
type Transferer interface {
	StartDownload(ctx context.Context) <-chan transfer.Result
	StartUploadImage(ctx context.Context, img *image.Image) <-chan transfer.Result
	Progress() *transfer.Broadcaster
}

// RadioLink connects a radio to the API
type RadioLink struct {
	Radio Transferer
	// Family is recorded on downloaded snapshots; empty means RawFamily
	Family string
	// ImageSize pads uploaded images; zero uploads snapshots as stored
	ImageSize int
}

type radioState struct {
	link RadioLink
	busy atomic.Bool
	hub  *WebSocketHub
}

// AttachRadio enables the transfer endpoints. Progress events are streamed to
// websocket clients and recorded by the metrics collector.
func (s *Server) AttachRadio(link RadioLink) {
	if link.Family == "" {
		link.Family = RawFamily
	}
	link.Radio.Progress().Subscribe(s.hub.BroadcastProgress)
	if s.api.collector != nil {
		link.Radio.Progress().Subscribe(s.api.collector.Progress)
	}
	s.api.radio = &radioState{link: link, hub: s.hub}
}

func (a *API) begin(w http.ResponseWriter, op string) bool {
	if a.radio == nil {
		a.writeError(w, http.StatusServiceUnavailable, "no radio attached")
		return false
	}
	if !a.radio.busy.CompareAndSwap(false, true) {
		a.writeError(w, http.StatusConflict, "transfer in progress")
		return false
	}
	if a.collector != nil {
		a.collector.TransferStarted(op)
	}
	return true
}

// finish records a transfer result. It runs on the transfer goroutine.
func (a *API) finish(res transfer.Result) {
	defer a.radio.busy.Store(false)

	n := 0
	if res.Image != nil && res.Err == nil {
		n = res.Image.Size()
	}
	if a.collector != nil {
		a.collector.TransferFinished(res.Operation, n, res.Err)
	}
	a.radio.hub.BroadcastResult(res)
	if res.Err != nil {
		a.logger.Warn("Transfer failed",
			logger.String("operation", res.Operation), logger.Error(res.Err))
		return
	}
	a.logger.Info("Transfer finished",
		logger.String("operation", res.Operation), logger.Int("bytes", n))

	if res.Operation != transfer.OpDownload || a.snapshots == nil {
		return
	}
	snap := &database.Snapshot{
		Family: a.radio.link.Family,
		Source: database.SourceDownload,
		Name:   time.Now().Format("download-20060102-150405"),
		Data:   res.Image.Flatten(),
	}
	if err := a.snapshots.Create(snap); err != nil {
		a.logger.Error("Failed to store snapshot", logger.Error(err))
		return
	}
	if a.collector != nil {
		a.collector.SnapshotStored()
	}
	a.radio.hub.BroadcastSnapshot(snap)
}

func (a *API) await(results <-chan transfer.Result, cancel context.CancelFunc) {
	defer cancel()
	for res := range results {
		a.finish(res)
	}
}

// HandleDownload starts reading the attached radio: POST /api/radio/download
func (a *API) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if !a.begin(w, transfer.OpDownload) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), transferTimeout)
	go a.await(a.radio.link.Radio.StartDownload(ctx), cancel)
	a.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "operation": transfer.OpDownload})
}

// HandleUpload writes an archived raw image to the radio:
// POST /api/codeplug/{id}/upload
func (a *API) HandleUpload(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.snapshot(w, r)
	if !ok {
		return
	}
	if a.radio == nil {
		a.writeError(w, http.StatusServiceUnavailable, "no radio attached")
		return
	}
	if snap.Family != a.radio.link.Family {
		a.writeError(w, http.StatusUnprocessableEntity, "snapshot family "+snap.Family+" does not match the radio")
		return
	}
	size := a.radio.link.ImageSize
	if size == 0 {
		size = len(snap.Data)
	}
	img, err := image.FromBytes("upload", 0xff, snap.Data, size)
	if err != nil {
		a.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !a.begin(w, transfer.OpUpload) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), transferTimeout)
	go a.await(a.radio.link.Radio.StartUploadImage(ctx, img), cancel)
	a.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "operation": transfer.OpUpload})
}
