package services

import (
	"bytes"
	"context"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/abrezinsky/moherun/internal/errors"
	"github.com/abrezinsky/moherun/internal/logger"
)

// ChartService renders PNG charts from the current snapshot
type ChartService struct {
	log       logger.Logger
	dashboard SnapshotSource
}

// NewChartService creates a new ChartService
func NewChartService(log logger.Logger, dashboard SnapshotSource) *ChartService {
	return &ChartService{log: log, dashboard: dashboard}
}

// WeeklyChart draws the team distance of every week, earliest first
func (s *ChartService) WeeklyChart(ctx context.Context) ([]byte, error) {
	snap, err := s.dashboard.Snapshot()
	if err != nil {
		return nil, err
	}

	var bars []chart.Value
	top := 0.0
	// Periods run Total, latest, ..., earliest
	for i := len(snap.Periods) - 1; i >= 0; i-- {
		p := snap.Periods[i]
		if p.IsAggregate() {
			continue
		}
		km := 0.0
		for _, r := range p.Runners {
			km += r.Distance
		}
		top = math.Max(top, km)
		bars = append(bars, chart.Value{Value: km, Label: p.WeekID})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Title: "Team distance per week (km)",
		Background: chart.Style{
			FillColor:   drawing.ColorWhite,
			StrokeColor: drawing.ColorFromHex("efefef"),
			StrokeWidth: 1,
		},
		Height:   512,
		Width:    960,
		BarWidth: 40,
		Bars:     bars,
		YAxis: chart.YAxis{
			Name:  "km",
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(top*1.1, 1)},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		s.log.Error("Failed to render weekly chart", "error", err)
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render weekly chart")
	}
	return buffer.Bytes(), nil
}
