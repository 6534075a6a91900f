package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/encore/internal/shared"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const scheduleCacheTTL = 5 * time.Minute

// Schedule is the class timetable read from a spreadsheet: the first row is the header.
type Schedule struct {
	Headers   []string
	Rows      [][]string
	FetchedAt time.Time
}

// Empty reports whether the sheet had no data rows.
func (s *Schedule) Empty() bool { return s == nil || len(s.Rows) == 0 }

// ScheduleSource reads the timetable from Google Sheets and caches it briefly.
type ScheduleSource struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
	ttl           time.Duration

	mu     sync.Mutex
	cached *Schedule
}

// NewScheduleSource creates a Sheets client for cfg. Extra options (endpoint, HTTP client) are appended
// after the credentials file option.
func NewScheduleSource(ctx context.Context, cfg shared.ScheduleConfig, opts ...option.ClientOption) (*ScheduleSource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("%w: schedule spreadsheet_id", shared.ErrMissingConfig)
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	readRange := cfg.Range
	if readRange == "" {
		readRange = "A:Z"
	}

	return &ScheduleSource{service: service, spreadsheetID: cfg.SpreadsheetID, readRange: readRange, ttl: scheduleCacheTTL}, nil
}

// Fetch returns the timetable, serving a cached copy younger than the cache TTL.
func (s *ScheduleSource) Fetch(ctx context.Context) (*Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.cached.FetchedAt) < s.ttl {
		return s.cached, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: sheets: %v", shared.ErrServiceUnavailable, err)
	}

	schedule := toSchedule(resp.Values)
	schedule.FetchedAt = time.Now()
	s.cached = schedule
	return schedule, nil
}

// toSchedule converts raw cell values into a header row plus data rows padded to the header width.
// Blank rows are dropped.
func toSchedule(values [][]any) *Schedule {
	schedule := &Schedule{}
	for _, raw := range values {
		row := make([]string, len(raw))
		blank := true
		for i, cell := range raw {
			row[i] = strings.TrimSpace(fmt.Sprint(cell))
			if row[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}

		if schedule.Headers == nil {
			schedule.Headers = row
			continue
		}

		for len(row) < len(schedule.Headers) {
			row = append(row, "")
		}
		schedule.Rows = append(schedule.Rows, row)
	}
	return schedule
}
