package ichor

import (
	"context"
	"fmt"

	"ichor/ichor/defs"
	"ichor/ichor/pkg/dexcom"
	"ichor/ichor/pkg/mg"

	"go.uber.org/zap"
)

type ReadingSource interface {
	Readings(ctx context.Context, minutes, maxCount int) ([]defs.TransformedReading, error)
}

type FetcherStore interface {
	mg.GlucoseStore
}

type Fetcher struct {
	Source ReadingSource
	Store  FetcherStore

	Logger *zap.Logger
}

// FetchAndLoad stores the latest readings, newest first, stopping at the
// first one already present. It returns the number of readings inserted.
func (f *Fetcher) FetchAndLoad(ctx context.Context) (int, error) {
	trs, err := f.Source.Readings(ctx, dexcom.MinuteLimit, dexcom.CountLimit)
	if err != nil {
		return 0, fmt.Errorf("unable to fetch readings: %w", err)
	}

	inserted := 0
	for i := len(trs) - 1; i >= 0; i-- {
		res, err := f.Store.WriteGlucose(ctx, &trs[i])
		if err != nil {
			return inserted, fmt.Errorf("unable to write glucose to store: %w", err)
		}
		if res.MatchedCount > 0 {
			break
		}
		inserted++
	}

	f.Logger.Debug("loaded readings",
		zap.Int("fetched", len(trs)),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}
