package ichor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ichor/ichor/defs"
	"ichor/ichor/pkg/dexcom"
	ihttp "ichor/ichor/pkg/http"
	"ichor/ichor/pkg/mg"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Fetcher  *Fetcher
	Reporter *Reporter
	HTTP     *ihttp.HttpServer
	Store    *mg.MongoStore

	Logger *zap.Logger
	Addr   string
}

func New(ctx context.Context, config defs.Config) (*Server, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, defs.TimeoutInterval)
	defer cancel()

	ms, err := mg.New(connectCtx, config.Mongo, config.Logger)
	if err != nil {
		return nil, err
	}

	dc := dexcom.New(config.Dexcom, config.Logger)

	config.Logger.Debug("finished server setup",
		zap.String("database", ms.DBName),
		zap.String("addr", config.HTTP.Addr),
		zap.Any("glucose", config.Glucose),
		zap.Any("mage", config.Mage),
	)

	return &Server{
		Fetcher: &Fetcher{Source: dc, Store: ms, Logger: config.Logger},
		Reporter: &Reporter{
			Store:         ms,
			Logger:        config.Logger,
			Location:      config.Location(),
			GlucoseConfig: config.Glucose,
			MageOptions:   config.Mage,
		},
		HTTP:   ihttp.New(ms, config.Glucose, config.Mage, config.Logger),
		Store:  ms,
		Logger: config.Logger,
		Addr:   config.HTTP.Addr,
	}, nil
}

// Start runs the periodic tasks and the HTTP server until ctx is cancelled
// or one of them fails.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ExecuteTask(ctx, defs.DownloaderInterval, s.Logger, "fetch", func(ctx context.Context) error {
			_, err := s.Fetcher.FetchAndLoad(ctx)
			return err
		})
		return nil
	})
	g.Go(func() error {
		ExecuteTask(ctx, defs.ReporterInterval, s.Logger, "report", func(ctx context.Context) error {
			_, err := s.Reporter.Report(ctx)
			return err
		})
		return nil
	})
	g.Go(func() error {
		return s.HTTP.Serve(ctx, s.Addr)
	})

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), defs.TimeoutInterval)
	defer cancel()
	if cerr := s.Store.Close(closeCtx); cerr != nil {
		s.Logger.Debug("unable to close store", zap.Error(cerr))
	}
	return err
}

// ExecuteTask runs task immediately and then on every tick until ctx is done.
// Task failures are logged and do not stop the loop.
func ExecuteTask(ctx context.Context, interval time.Duration, logger *zap.Logger, name string, task func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		taskCtx, cancel := context.WithTimeout(ctx, interval)
		if err := task(taskCtx); err != nil {
			logger.Debug("task failed", zap.String("task", name), zap.Error(err))
		}
		cancel()
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Run blocks until the process receives SIGINT or SIGTERM.
func Run(config defs.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := New(ctx, config)
	if err != nil {
		return err
	}
	return s.Start(ctx)
}
