// Package radioid keeps the local DMR user table in step with the RadioID
// CSV export. The table is the source of the call-sign database image.
package radioid

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/database"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
)

const (
	// DefaultURL is the RadioID user export
	DefaultURL = "https://radioid.net/static/user.csv"
	// DefaultInterval is how often Start syncs
	DefaultInterval = 24 * time.Hour
	// BatchSize for database upserts
	BatchSize = 1000
)

// Config holds syncer settings; zero values select the defaults
type Config struct {
	URL      string
	Interval time.Duration
	// OnSync receives the user count after every successful sync
	OnSync func(users int64)
}

// Syncer handles syncing the RadioID database
type Syncer struct {
	repo     *database.DMRUserRepository
	logger   *logger.Logger
	client   *http.Client
	url      string
	interval time.Duration
	onSync   func(int64)
}

// NewSyncer creates a new RadioID syncer
func NewSyncer(repo *database.DMRUserRepository, cfg Config, log *logger.Logger) *Syncer {
	s := &Syncer{
		repo:     repo,
		logger:   log.WithComponent("radioid"),
		client:   &http.Client{Timeout: 5 * time.Minute},
		url:      cfg.URL,
		interval: cfg.Interval,
		onSync:   cfg.OnSync,
	}
	if s.url == "" {
		s.url = DefaultURL
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	return s
}

// Start syncs immediately and then every interval until ctx is done
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting RadioID database sync", logger.Duration("interval", s.interval))
	if _, err := s.Sync(ctx); err != nil {
		s.logger.Error("Failed to sync RadioID database on startup", logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("RadioID syncer stopped")
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil {
				s.logger.Error("Failed to sync RadioID database", logger.Error(err))
			}
		}
	}
}

// Sync downloads the export and upserts it. It returns the number of
// users stored afterwards.
func (s *Syncer) Sync(ctx context.Context) (int64, error) {
	start := time.Now()
	s.logger.Info("Downloading RadioID database", logger.String("url", s.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download database: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("Failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	users, skipped, err := ParseCSV(resp.Body, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to parse CSV: %w", err)
	}
	s.logger.Info("Parsed RadioID database", logger.Int("users", len(users)), logger.Int("skipped", skipped))

	if err := s.repo.UpsertBatch(users, BatchSize); err != nil {
		return 0, fmt.Errorf("failed to save users: %w", err)
	}
	if len(users) > 0 {
		pruned, err := s.repo.Prune(start)
		if err != nil {
			return 0, fmt.Errorf("failed to prune stale users: %w", err)
		}
		if pruned > 0 {
			s.logger.Info("Removed users missing from the export", logger.Int64("users", pruned))
		}
	}

	count, err := s.repo.Count()
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	s.logger.Info("RadioID database sync complete",
		logger.Int64("total_users", count),
		logger.Duration("duration", time.Since(start)))
	if s.onSync != nil {
		s.onSync(count)
	}
	return count, nil
}

// ParseCSV parses the RadioID export
// RADIO_ID,CALLSIGN,FIRST_NAME,LAST_NAME,CITY,STATE,COUNTRY[,...]. Rows
// that are short or carry an invalid radio ID are skipped and counted.
func ParseCSV(r io.Reader, now time.Time) ([]database.DMRUser, int, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	var users []database.DMRUser
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < 7 {
			skipped++
			continue
		}

		radioID, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 32)
		if err != nil || radioID == 0 || radioID > 0xffffff {
			skipped++
			continue
		}

		users = append(users, database.DMRUser{
			RadioID:   uint32(radioID),
			Callsign:  strings.ToUpper(strings.TrimSpace(record[1])),
			FirstName: strings.TrimSpace(record[2]),
			LastName:  strings.TrimSpace(record[3]),
			City:      record[4],
			State:     record[5],
			Country:   record[6],
			UpdatedAt: now,
		})
	}
	return users, skipped, nil
}
