package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/config"
	"github.com/dbehnke/codeplug-nexus/pkg/database"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/metrics"
	"github.com/dbehnke/codeplug-nexus/pkg/transfer"
)

// fakeRadio completes every operation once release is closed
type fakeRadio struct {
	events   *transfer.Broadcaster
	release  chan struct{}
	uploaded chan *image.Image
	err      error
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{
		events:   transfer.NewBroadcaster(),
		release:  make(chan struct{}),
		uploaded: make(chan *image.Image, 1),
	}
}

func (f *fakeRadio) Progress() *transfer.Broadcaster { return f.events }

func (f *fakeRadio) StartDownload(ctx context.Context) <-chan transfer.Result {
	out := make(chan transfer.Result, 1)
	go func() {
		defer close(out)
		<-f.release
		f.events.Publish(transfer.Progress{Operation: transfer.OpDownload, Block: 1, Blocks: 1, Fraction: 1})
		img, _ := image.FromBytes("radio", 0xff, []byte("CDR-300UV"), 16)
		out <- transfer.Result{Operation: transfer.OpDownload, Image: img, Err: f.err}
	}()
	return out
}

func (f *fakeRadio) StartUploadImage(ctx context.Context, img *image.Image) <-chan transfer.Result {
	out := make(chan transfer.Result, 1)
	go func() {
		defer close(out)
		<-f.release
		f.uploaded <- img
		out <- transfer.Result{Operation: transfer.OpUpload, Image: img, Err: f.err}
	}()
	return out
}

func post(srv *Server, path string) int {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	return w.Code
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTransfer_NoRadio(t *testing.T) {
	srv := NewServer(config.WebConfig{}, NewAPI(&fakeStore{}, nil, testLogger()), testLogger())
	if code := post(srv, "/api/radio/download"); code != http.StatusServiceUnavailable {
		t.Errorf("download without radio = %d, want 503", code)
	}
}

func TestTransfer_DownloadStoresSnapshot(t *testing.T) {
	store := &fakeStore{}
	collector := metrics.NewCollector()
	srv := NewServer(config.WebConfig{}, NewAPI(store, collector, testLogger()), testLogger())
	radio := newFakeRadio()
	srv.AttachRadio(RadioLink{Radio: radio})

	if code := post(srv, "/api/radio/download"); code != http.StatusAccepted {
		t.Fatalf("download = %d, want 202", code)
	}
	if code := post(srv, "/api/radio/download"); code != http.StatusConflict {
		t.Errorf("second download = %d, want 409", code)
	}
	close(radio.release)

	waitFor(t, func() bool { return store.count() == 1 })
	snap, _ := store.Get(1)
	if snap.Family != RawFamily || snap.Source != database.SourceDownload {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if len(snap.Data) != 16 || string(snap.Data[:9]) != "CDR-300UV" {
		t.Errorf("unexpected snapshot data % x", snap.Data)
	}

	waitFor(t, func() bool { return collector.Stats().Snapshots == 1 })
	st := collector.Stats()
	if st.Progress != 1 || metrics.Total(st.TransfersComplete) != 1 || metrics.Total(st.BytesTransferred) != 16 {
		t.Errorf("unexpected stats %+v", st)
	}
	waitFor(t, func() bool { return !srv.api.radio.busy.Load() })
}

func TestTransfer_FailedDownload(t *testing.T) {
	store := &fakeStore{}
	collector := metrics.NewCollector()
	srv := NewServer(config.WebConfig{}, NewAPI(store, collector, testLogger()), testLogger())
	radio := newFakeRadio()
	radio.err = errors.New("no answer")
	close(radio.release)
	srv.AttachRadio(RadioLink{Radio: radio})

	if code := post(srv, "/api/radio/download"); code != http.StatusAccepted {
		t.Fatalf("download = %d, want 202", code)
	}
	waitFor(t, func() bool { return metrics.Total(collector.Stats().TransfersFailed) == 1 })
	if store.count() != 0 {
		t.Error("failed download must not be archived")
	}
}

func TestTransfer_Upload(t *testing.T) {
	store := &fakeStore{snaps: map[uint]*database.Snapshot{
		1: {ID: 1, Family: RawFamily, Data: []byte{1, 2, 3}},
		2: {ID: 2, Family: "rd5r", Data: []byte{1}},
		3: {ID: 3, Family: RawFamily, Data: make([]byte, 64)},
	}}
	srv := NewServer(config.WebConfig{}, NewAPI(store, nil, testLogger()), testLogger())
	radio := newFakeRadio()
	close(radio.release)
	srv.AttachRadio(RadioLink{Radio: radio, ImageSize: 8})

	if code := post(srv, "/api/codeplug/2/upload"); code != http.StatusUnprocessableEntity {
		t.Errorf("family mismatch = %d, want 422", code)
	}
	if code := post(srv, "/api/codeplug/3/upload"); code != http.StatusUnprocessableEntity {
		t.Errorf("oversized image = %d, want 422", code)
	}
	if code := post(srv, "/api/codeplug/1/upload"); code != http.StatusAccepted {
		t.Fatalf("upload = %d, want 202", code)
	}

	select {
	case img := <-radio.uploaded:
		want := []byte{1, 2, 3, 0xff, 0xff, 0xff, 0xff, 0xff}
		if string(img.Flatten()) != string(want) {
			t.Errorf("uploaded % x, want % x", img.Flatten(), want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("upload did not reach the radio")
	}
}
