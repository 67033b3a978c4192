package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ichor/ichor/defs"
	"ichor/ichor/pkg/mage"
	"ichor/ichor/pkg/mg"
	"ichor/ichor/pkg/stats"
	"ichor/ichor/pkg/units"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpStore interface {
	mg.GlucoseStore
}

type HttpServer struct {
	Store  httpStore
	Logger *zap.Logger

	GlucoseConfig defs.GlucoseConfig
	MageOptions   mage.Options

	router *gin.Engine
}

func New(s httpStore, gcfg defs.GlucoseConfig, opts mage.Options, logger *zap.Logger) *HttpServer {
	hs := &HttpServer{
		Store:         s,
		Logger:        logger,
		GlucoseConfig: gcfg,
		MageOptions:   opts,
	}
	hs.routes()
	return hs
}

func (s *HttpServer) Handler() http.Handler {
	return s.router
}

// Serve blocks until the server stops or ctx is cancelled.
func (s *HttpServer) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("serving http", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("unable to serve http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *HttpServer) routes() {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/glucose", s.glucose)
	r.GET("/variability", s.variability)
	r.POST("/mage", s.computeMage)

	s.router = r
}

func (s *HttpServer) glucose(c *gin.Context) {
	start, end, ok := timeRange(c)
	if !ok {
		return
	}

	glucose, err := s.readGlucose(c, start, end)
	if err != nil {
		return
	}

	c.JSON(http.StatusOK, glucose)
}

func (s *HttpServer) variability(c *gin.Context) {
	start, end, ok := timeRange(c)
	if !ok {
		return
	}

	opts, err := s.queryOptions(c)
	if err != nil {
		c.String(http.StatusBadRequest, "%v", err)
		return
	}

	glucose, err := s.readGlucose(c, start, end)
	if err != nil {
		return
	}

	report := stats.Variability(glucose, s.GlucoseConfig, opts)
	report.Start, report.End = start, end

	c.JSON(http.StatusOK, report)
}

// Limits on POST /mage. A week of one-minute readings fits comfortably.
const (
	maxMageBody     = 1 << 20
	maxMageReadings = 7 * 24 * 60
)

type mageRequest struct {
	Readings    []float64      `json:"readings"`
	Unit        string         `json:"unit"`
	Direction   mage.Direction `json:"direction"`
	ShortWindow int            `json:"shortWindow"`
	LongWindow  int            `json:"longWindow"`
}

func (s *HttpServer) computeMage(c *gin.Context) {
	req := mageRequest{
		Direction:   s.MageOptions.Direction,
		ShortWindow: s.MageOptions.ShortWindow,
		LongWindow:  s.MageOptions.LongWindow,
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMageBody)
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "malformed request: %v", err)
		return
	}
	if len(req.Readings) > maxMageReadings {
		c.String(http.StatusBadRequest, "too many readings: %d, at most %d", len(req.Readings), maxMageReadings)
		return
	}

	if req.Unit != "" {
		unit, err := units.ParseUnit(req.Unit)
		if err != nil {
			c.String(http.StatusBadRequest, "%v", err)
			return
		}
		for i, r := range req.Readings {
			if !units.IsValid(r, unit) {
				c.String(http.StatusBadRequest, "reading %d: %v", i, fmt.Errorf("%w: %v %s", units.ErrInvalidGlucose, r, unit))
				return
			}
		}
	}

	opts := mage.Options{ShortWindow: req.ShortWindow, LongWindow: req.LongWindow, Direction: req.Direction}
	res := mage.Compute(req.Readings, opts)

	s.Logger.Debug("computed mage",
		zap.Int("readings", len(req.Readings)),
		zap.Stringer("outcome", res.Outcome),
		zap.Bool("fallback", res.Fallback),
	)

	c.JSON(http.StatusOK, stats.Summarize(res, opts.Direction))
}

func (s *HttpServer) readGlucose(c *gin.Context, start, end time.Time) ([]defs.TransformedReading, error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), defs.TimeoutInterval)
	defer cancel()

	glucose, err := s.Store.ReadGlucose(ctx, start, end)
	if err != nil {
		s.Logger.Debug("unable to read glucose", zap.Error(err))
		c.String(http.StatusInternalServerError, "something went wrong reading glucose: %v", err)
		return nil, err
	}
	if glucose == nil {
		glucose = []defs.TransformedReading{}
	}
	return glucose, nil
}

func (s *HttpServer) queryOptions(c *gin.Context) (mage.Options, error) {
	opts := s.MageOptions

	if d, ok := c.GetQuery("direction"); ok {
		dir, err := mage.ParseDirection(d)
		if err != nil {
			return opts, err
		}
		opts.Direction = dir
	}

	for key, dst := range map[string]*int{"shortWindow": &opts.ShortWindow, "longWindow": &opts.LongWindow} {
		v, ok := c.GetQuery(key)
		if !ok {
			continue
		}
		w, err := strconv.Atoi(v)
		if err != nil || w < 0 {
			return opts, fmt.Errorf("expected non-negative integer for %s", key)
		}
		*dst = w
	}

	return opts, nil
}

func timeRange(c *gin.Context) (time.Time, time.Time, bool) {
	endUnix, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "expected unix timestamp for end")
		return time.Time{}, time.Time{}, false
	}

	startUnix, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "expected unix timestamp for start")
		return time.Time{}, time.Time{}, false
	}

	start, end := time.Unix(startUnix, 0), time.Unix(endUnix, 0)
	if end.Before(start) {
		c.String(http.StatusBadRequest, "end must not precede start")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
