// Package ingest walks the spreadsheet tab by tab and collects the raw rows that the
// scoring engine consumes.
package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/abrezinsky/moherun/internal/columns"
	"github.com/abrezinsky/moherun/internal/errors"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/models"
)

// Fetcher reads one tab by name. A nil tab with a nil error means the tab does not exist.
type Fetcher interface {
	FetchTab(ctx context.Context, name string) (*models.Tab, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, name string) (*models.Tab, error)

func (f FetcherFunc) FetchTab(ctx context.Context, name string) (*models.Tab, error) {
	return f(ctx, name)
}

// StopReason says why the weekly loop ended.
type StopReason string

const (
	StopAbsent         StopReason = "absent"
	StopDuplicate      StopReason = "duplicate_of_first_week"
	StopMediaLike      StopReason = "media_like_headers"
	StopMediaDuplicate StopReason = "same_as_media_tab"
	StopCeiling        StopReason = "ceiling"
)

// Options controls tab discovery.
type Options struct {
	// MediaTabs lists the gallery tab name followed by legacy fallbacks.
	MediaTabs []string
	// MaxWeeks is the runaway ceiling on W1..Wn.
	MaxWeeks int
}

// Report describes one ingestion pass.
type Report struct {
	Weeks     []string
	MediaTab  string
	StoppedAt string
	Reason    StopReason
	MediaErr  error
}

// WeekTab returns the tab name of week n.
func WeekTab(n int) string {
	return fmt.Sprintf("W%d", n)
}

// Ingest fetches the media tab, then W1, W2, ... until a stop condition holds.
// It fails only when no tab at all could be read.
func Ingest(ctx context.Context, f Fetcher, opts Options, log logger.Logger) (*models.Sheets, Report, error) {
	sheets := &models.Sheets{Weeks: make(map[string][]models.RawRow)}
	var report Report

	for _, name := range opts.MediaTabs {
		tab, err := f.FetchTab(ctx, name)
		if err != nil {
			report.MediaErr = err
			log.Debug("Media tab fetch failed", "tab", name, "error", err)
			continue
		}
		if tab == nil || len(tab.Rows) == 0 {
			continue
		}
		sheets.Media = tab.Rows
		sheets.MediaTab = name
		report.MediaTab = name
		report.MediaErr = nil
		break
	}

	var firstRaw []byte
	var lastErr error
	maxWeeks := opts.MaxWeeks
	if maxWeeks <= 0 {
		maxWeeks = 52
	}

	for n := 1; ; n++ {
		name := WeekTab(n)
		if n > maxWeeks {
			report.StoppedAt, report.Reason = name, StopCeiling
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		tab, err := f.FetchTab(ctx, name)
		if err != nil {
			lastErr = err
		}
		if err != nil || tab == nil || len(tab.Rows) == 0 {
			report.StoppedAt, report.Reason = name, StopAbsent
			break
		}
		if n == 1 {
			firstRaw = tab.Raw
		} else if len(firstRaw) > 0 && bytes.Equal(tab.Raw, firstRaw) {
			report.StoppedAt, report.Reason = name, StopDuplicate
			break
		}
		if columns.LooksLikeMedia(tab.Rows[0].Headers) {
			report.StoppedAt, report.Reason = name, StopMediaLike
			break
		}
		if len(sheets.Media) > 0 && tab.Rows[0].Equal(sheets.Media[0]) {
			report.StoppedAt, report.Reason = name, StopMediaDuplicate
			break
		}

		sheets.Weeks[name] = tab.Rows
		report.Weeks = append(report.Weeks, name)
		log.Debug("Week tab read", "tab", name, "rows", len(tab.Rows), "columns", columns.Classify(tab.Rows[0].Headers))
	}

	log.Debug("Ingestion finished",
		"weeks", len(report.Weeks), "stopped_at", report.StoppedAt, "reason", report.Reason, "media_tab", report.MediaTab)

	if len(report.Weeks) == 0 && len(sheets.Media) == 0 {
		cause := lastErr
		if cause == nil {
			cause = report.MediaErr
		}
		return nil, report, errors.Unavailable(cause, "no spreadsheet tabs could be read")
	}
	return sheets, report, nil
}
