package mockserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"trading-platform-client/config"
	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/logger"
	pkgMiddleware "trading-platform-client/pkg/middleware"
	"trading-platform-client/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
)

// Server is a self-contained stand-in for the analysis backend, useful for
// local development and end-to-end tests of the terminal client.
type Server struct {
	log       *logger.Logger
	cfg       config.MockServer
	echo      *echo.Echo
	validator *goValidator.Validate
	jobs      *jobStore
	cron      *cron.Cron
}

func NewServer(cfg config.MockServer, log *logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(pkgMiddleware.NewRateLimiterMiddleware(25))

	s := &Server{
		log:       log,
		cfg:       cfg,
		echo:      e,
		validator: goValidator.New(),
		jobs:      newJobStore(cfg.ProgressPerTick, cfg.TickInterval),
		cron:      cron.New(),
	}
	s.setupRoutes()
	return s
}

// Routes live at the root, matching the paths the client resolves against
// backend.base_url.
func (s *Server) setupRoutes() {
	base := s.echo.Group("")
	base.GET("/strategies/available", s.getStrategies)
	base.GET("/symbols/:exchange", s.getSymbols)
	base.POST("/chart_data_with_strategy", s.getChartData)
	base.POST("/backtest/run", s.runBacktest)

	optimize := base.Group("/optimize")
	optimize.POST("/start", s.startOptimization)
	optimize.GET("/status/:jobID", s.getOptimizationStatus)
	optimize.GET("/results/:jobID", s.getOptimizationResults)
	optimize.GET("/results/:jobID/download", s.downloadOptimizationResults)
	optimize.POST("/cancel/:jobID", s.cancelOptimization)
}

// Start runs the listener until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.cfg.JobTTL)
	if _, err := s.cron.AddFunc(spec, func() {
		if removed := s.jobs.sweep(s.cfg.JobTTL); removed > 0 {
			s.log.InfoContext(ctx, "purged expired optimization jobs", logger.IntField("count", removed))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule job sweep: %w", err)
	}
	s.cron.Start()

	errCh := make(chan error, 1)
	utils.GoSafe(func() {
		errCh <- s.echo.Start(fmt.Sprintf(":%d", s.cfg.Port))
	})

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (s *Server) Stop() error {
	s.cron.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// Handler exposes the route tree for httptest-driven tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) getStrategies(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.StrategiesResponse{Strategies: strategyCatalog()})
}

func (s *Server) getSymbols(c echo.Context) error {
	symbols := symbolCatalog(c.Param("exchange"))
	if symbols == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "unknown exchange"})
	}
	return c.JSON(http.StatusOK, symbols)
}

func (s *Server) getChartData(c echo.Context) error {
	req := new(dto.ChartDataRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	if err := s.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": err.Error()})
	}

	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": err.Error()})
	}

	bars := syntheticOHLC(req.Token, req.Timeframe, start, end)
	resp := dto.ChartDataResponse{
		OHLCData: bars,
		ChartHeaderInfo: map[string]interface{}{
			"exchange":  req.Exchange,
			"token":     req.Token,
			"timeframe": req.Timeframe,
		},
	}
	if req.StrategyID != nil && *req.StrategyID != "" {
		resp.IndicatorData = map[string][]dto.IndicatorPoint{
			"fast": rollingMean(bars, 10),
			"slow": rollingMean(bars, 30),
		}
		resp.TradeMarkers = syntheticMarkers(bars)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) runBacktest(c echo.Context) error {
	req := new(dto.BacktestRunRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	if err := s.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": err.Error()})
	}

	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": err.Error()})
	}
	return c.JSON(http.StatusOK, syntheticBacktest(*req, start, end))
}

func (s *Server) startOptimization(c echo.Context) error {
	req := new(dto.OptimizationStartRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	if err := s.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": err.Error()})
	}
	for _, r := range req.ParameterRanges {
		if r.Step <= 0 || r.EndValue < r.StartValue {
			detail := fmt.Sprintf("invalid range for parameter %s", r.Name)
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": detail})
		}
	}
	return c.JSON(http.StatusOK, s.jobs.create(*req))
}

func (s *Server) getOptimizationStatus(c echo.Context) error {
	status, ok := s.jobs.status(c.Param("jobID"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "job not found"})
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) getOptimizationResults(c echo.Context) error {
	results, found, ready := s.jobs.results(c.Param("jobID"))
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "job not found"})
	}
	if !ready {
		return c.JSON(http.StatusConflict, map[string]string{"detail": "results not available yet"})
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) downloadOptimizationResults(c echo.Context) error {
	data, found, ready := s.jobs.csv(c.Param("jobID"))
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "job not found"})
	}
	if !ready {
		return c.JSON(http.StatusConflict, map[string]string{"detail": "results not available yet"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=optimization_results.csv")
	return c.Blob(http.StatusOK, "text/csv", data)
}

func (s *Server) cancelOptimization(c echo.Context) error {
	return c.JSON(http.StatusOK, s.jobs.cancel(c.Param("jobID")))
}

func parseWindow(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(utils.DateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse(utils.DateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date precedes start_date")
	}
	return start, end, nil
}
