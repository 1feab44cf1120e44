package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

func writeHeader(out *strings.Builder, name, kind, help string) {
	fmt.Fprintf(out, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func writeLabeled(out *strings.Builder, name, label, help string, samples []Labeled) {
	writeHeader(out, name, "counter", help)
	for _, s := range samples {
		fmt.Fprintf(out, "%s{%s=%q} %d\n", name, label, s.Label, s.Value)
	}
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	st := h.collector.Stats()

	var out strings.Builder

	writeLabeled(&out, "codeplug_transfers_started_total", "operation", "Transfers started", st.TransfersStarted)
	writeLabeled(&out, "codeplug_transfers_completed_total", "operation", "Transfers completed", st.TransfersComplete)
	writeLabeled(&out, "codeplug_transfers_failed_total", "operation", "Transfers failed or cancelled", st.TransfersFailed)
	writeLabeled(&out, "codeplug_transfer_bytes_total", "operation", "Bytes moved by completed transfers", st.BytesTransferred)

	writeHeader(&out, "codeplug_transfers_active", "gauge", "Transfers in progress")
	fmt.Fprintf(&out, "codeplug_transfers_active %d\n", st.ActiveTransfers)
	writeHeader(&out, "codeplug_transfer_progress_ratio", "gauge", "Progress of the running transfer")
	fmt.Fprintf(&out, "codeplug_transfer_progress_ratio %g\n", st.Progress)

	writeLabeled(&out, "codeplug_decodes_total", "family", "Images decoded", st.Decodes)
	writeLabeled(&out, "codeplug_encodes_total", "family", "Configurations encoded", st.Encodes)
	writeLabeled(&out, "codeplug_codec_errors_total", "family", "Failed decodes and encodes", st.CodecErrors)

	writeHeader(&out, "codeplug_snapshots_total", "counter", "Images archived")
	fmt.Fprintf(&out, "codeplug_snapshots_total %d\n", st.Snapshots)
	writeHeader(&out, "codeplug_radioid_users", "gauge", "Users in the DMR user table")
	fmt.Fprintf(&out, "codeplug_radioid_users %d\n", st.RadioIDUsers)

	_, _ = w.Write([]byte(out.String()))
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start serves metrics until ctx is done
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, NewPrometheusHandler(s.collector))

	// Use a listener to get the actual port (useful for testing with port 0)
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", listener.Addr().(*net.TCPAddr).Port),
		logger.String("path", s.config.Path))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop stops the Prometheus metrics server
func (s *PrometheusServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}
