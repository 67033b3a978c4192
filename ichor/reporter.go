package ichor

import (
	"context"
	"fmt"
	"time"

	"ichor/ichor/defs"
	"ichor/ichor/pkg/mage"
	"ichor/ichor/pkg/mg"
	"ichor/ichor/pkg/stats"

	"go.uber.org/zap"
)

type ReporterStore interface {
	mg.GlucoseStore
	mg.ReportStore
}

// Reporter periodically summarises the lookback window into a variability report.
type Reporter struct {
	Store ReporterStore

	Logger        *zap.Logger
	Location      *time.Location
	GlucoseConfig defs.GlucoseConfig
	MageOptions   mage.Options

	// Now defaults to time.Now.
	Now func() time.Time
}

func (r *Reporter) Report(ctx context.Context) (*defs.VariabilityReport, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	end := now().In(loc)
	start := end.Add(defs.LookbackInterval)

	glucose, err := r.Store.ReadGlucose(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("unable to read glucose: %w", err)
	}

	report := stats.Variability(glucose, r.GlucoseConfig, r.MageOptions)
	report.Start, report.End = start, end

	if _, err := r.Store.WriteReport(ctx, &report); err != nil {
		return nil, fmt.Errorf("unable to write report: %w", err)
	}

	fields := []zap.Field{
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("readings", report.Summary.Count),
		zap.Float64("average", report.Summary.Average),
		zap.Float64("inRange", report.Range.InRange),
		zap.String("mageOutcome", report.Mage.Outcome),
	}
	if report.Mage.Value != nil {
		fields = append(fields, zap.Float64("mage", *report.Mage.Value))
	}
	r.Logger.Info("generated variability report", fields...)

	return &report, nil
}
