package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/database"
	"github.com/dbehnke/codeplug-nexus/pkg/families"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"github.com/dbehnke/codeplug-nexus/pkg/metrics"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
	"gorm.io/gorm"
)

// SnapshotStore is the part of the snapshot archive the API uses
type SnapshotStore interface {
	List(page, perPage int) ([]database.Snapshot, int64, error)
	Get(id uint) (*database.Snapshot, error)
	Create(s *database.Snapshot) error
}

// API handles REST API endpoints
type API struct {
	logger    *logger.Logger
	snapshots SnapshotStore
	collector *metrics.Collector
	radio     *radioState
}

// NewAPI creates a new API instance. snapshots and collector may be nil.
func NewAPI(snapshots SnapshotStore, collector *metrics.Collector, log *logger.Logger) *API {
	return &API{
		logger:    log,
		snapshots: snapshots,
		collector: collector,
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("Failed to encode response", logger.Error(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}

// HandleStatus handles the /api/status endpoint
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":   "running",
		"service":  "codeplug-nexus",
		"build":    GetVersionInfo(),
		"families": families.Names(),
	}
	if a.collector != nil {
		st := a.collector.Stats()
		response["transfers_active"] = st.ActiveTransfers
		response["transfer_progress"] = st.Progress
		response["snapshots_stored"] = st.Snapshots
	}
	if a.radio != nil {
		response["radio_busy"] = a.radio.busy.Load()
	}
	a.writeJSON(w, http.StatusOK, response)
}

// HandleFamilies handles the /api/families endpoint
func (a *API) HandleFamilies(w http.ResponseWriter, r *http.Request) {
	type family struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		FileSize    int    `json:"file_size,omitempty"`
	}
	out := []family{}
	for _, f := range families.All() {
		entry := family{Name: f.Name, Description: f.Description}
		if f.File != nil {
			entry.FileSize = f.File.Size
		}
		out = append(out, entry)
	}
	a.writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}

// HandleSnapshots handles the /api/snapshots endpoint
func (a *API) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	if a.snapshots == nil {
		a.writeError(w, http.StatusServiceUnavailable, "snapshot archive disabled")
		return
	}
	page := queryInt(r, "page", 1)
	perPage := min(queryInt(r, "per_page", 25), 100)

	list, total, err := a.snapshots.List(page, perPage)
	if err != nil {
		a.logger.Error("Failed to list snapshots", logger.Error(err))
		a.writeError(w, http.StatusInternalServerError, "cannot list snapshots")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": list,
		"total":     total,
		"page":      page,
		"per_page":  perPage,
	})
}

func (a *API) snapshot(w http.ResponseWriter, r *http.Request) (*database.Snapshot, bool) {
	if a.snapshots == nil {
		a.writeError(w, http.StatusServiceUnavailable, "snapshot archive disabled")
		return nil, false
	}
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid snapshot id")
		return nil, false
	}
	snap, err := a.snapshots.Get(uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a.writeError(w, http.StatusNotFound, "snapshot not found")
		return nil, false
	}
	if err != nil {
		a.logger.Error("Failed to load snapshot", logger.Uint64("id", id), logger.Error(err))
		a.writeError(w, http.StatusInternalServerError, "cannot load snapshot")
		return nil, false
	}
	return snap, true
}

func (a *API) decode(w http.ResponseWriter, r *http.Request) (string, *model.Config, bool) {
	snap, ok := a.snapshot(w, r)
	if !ok {
		return "", nil, false
	}
	fam, img, err := families.Load(snap.Data, snap.Family)
	if err != nil {
		a.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return "", nil, false
	}
	cfg, err := codeplug.Load(fam, img, a.logger).Decode()
	if a.collector != nil {
		a.collector.Decoded(fam.Name, err)
	}
	if err != nil {
		a.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return "", nil, false
	}
	return fam.Name, cfg, true
}

// HandleCodeplug decodes a snapshot: /api/codeplug/{id}
func (a *API) HandleCodeplug(w http.ResponseWriter, r *http.Request) {
	family, cfg, ok := a.decode(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, http.StatusOK, NewConfigView(family, cfg))
}

// HandleChannel lists the properties of one decoded channel:
// /api/codeplug/{id}/channels/{index}
func (a *API) HandleChannel(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		a.writeError(w, http.StatusBadRequest, "invalid channel index")
		return
	}
	_, cfg, ok := a.decode(w, r)
	if !ok {
		return
	}
	if index >= len(cfg.Channels) {
		a.writeError(w, http.StatusNotFound, "channel not found")
		return
	}
	a.writeJSON(w, http.StatusOK, model.Describe(model.ChannelProperties, cfg.Channels[index]))
}

// HandleRaw serves the archived file: /api/codeplug/{id}/raw
func (a *API) HandleRaw(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.snapshot(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+snap.Family+"-"+strconv.FormatUint(uint64(snap.ID), 10)+".bin\"")
	w.Header().Set("X-Content-SHA256", snap.SHA256)
	_, _ = w.Write(snap.Data)
}
