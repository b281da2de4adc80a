package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"trading-platform-client/config"
	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/cache"
	"trading-platform-client/pkg/common"
	"trading-platform-client/pkg/httpclient"
	"trading-platform-client/pkg/logger"
	"trading-platform-client/pkg/ratelimit"
)

// Client is the typed surface over the backtesting/optimization backend.
// Every call is stateless and idempotent; retries are the caller's business.
type Client interface {
	GetAvailableStrategies(ctx context.Context) ([]dto.StrategyDescriptor, error)
	GetSymbols(ctx context.Context, exchange string) ([]dto.SymbolEntry, error)
	GetChartData(ctx context.Context, req *dto.ChartDataRequest) (*dto.ChartDataResponse, error)
	RunBacktest(ctx context.Context, req *dto.BacktestRunRequest) (*dto.BacktestRunResponse, error)
	StartOptimization(ctx context.Context, req *dto.OptimizationStartRequest) (*dto.OptimizationStartResponse, error)
	GetOptimizationStatus(ctx context.Context, jobID string) (*dto.OptimizationStatusResponse, error)
	GetOptimizationResults(ctx context.Context, jobID string) (*dto.OptimizationResultsResponse, error)
	DownloadOptimizationResults(ctx context.Context, jobID string) ([]byte, error)
	CancelOptimization(ctx context.Context, jobID string) (*dto.CancelResponse, error)
}

type client struct {
	httpClient     httpclient.HTTPClient
	log            *logger.Logger
	cache          cache.Cache
	catalogTTL     time.Duration
	requestLimiter *ratelimit.TokenLimiter
}

func NewClient(cfg *config.Config, log *logger.Logger, inmemoryCache cache.Cache) Client {
	return &client{
		httpClient:     httpclient.New(log, cfg.Backend.BaseURL, cfg.Backend.Timeout, cfg.Backend.BearerToken),
		log:            log,
		cache:          inmemoryCache,
		catalogTTL:     cfg.Cache.CatalogTTL,
		requestLimiter: ratelimit.NewTokenLimiter(cfg.Backend.MaxRequestPerMinute),
	}
}

// NewClientWithHTTP wires a prebuilt transport, used by tests. The request
// budget is effectively unlimited.
func NewClientWithHTTP(httpClient httpclient.HTTPClient, log *logger.Logger, inmemoryCache cache.Cache, catalogTTL time.Duration) Client {
	return &client{
		httpClient:     httpClient,
		log:            log,
		cache:          inmemoryCache,
		catalogTTL:     catalogTTL,
		requestLimiter: ratelimit.NewTokenLimiter(1_000_000),
	}
}

func (c *client) wait(ctx context.Context) error {
	return c.requestLimiter.Wait(ctx, 1)
}

func ok(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

func (c *client) GetAvailableStrategies(ctx context.Context) ([]dto.StrategyDescriptor, error) {
	if cached, found := cache.GetTyped[[]dto.StrategyDescriptor](c.cache, common.KEY_STRATEGY_CATALOG); found {
		return cached, nil
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var result dto.StrategiesResponse
	resp, err := c.httpClient.Get(ctx, "/strategies/available", nil, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("fetch available strategies: %w", err)
	}
	if !ok(resp.StatusCode) {
		return nil, newAPIError("strategies/available", resp.StatusCode, resp.Body)
	}

	c.cache.Set(common.KEY_STRATEGY_CATALOG, result.Strategies, c.catalogTTL)
	return result.Strategies, nil
}

func (c *client) GetSymbols(ctx context.Context, exchange string) ([]dto.SymbolEntry, error) {
	key := fmt.Sprintf(common.KEY_SYMBOL_CATALOG, exchange)
	if cached, found := cache.GetTyped[[]dto.SymbolEntry](c.cache, key); found {
		return cached, nil
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var result dto.SymbolsResponse
	resp, err := c.httpClient.Get(ctx, "/symbols/"+exchange, nil, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("fetch symbols for %s: %w", exchange, err)
	}
	if !ok(resp.StatusCode) {
		return nil, newAPIError("symbols/"+exchange, resp.StatusCode, resp.Body)
	}

	c.cache.Set(key, result.Symbols, c.catalogTTL)
	return result.Symbols, nil
}

func (c *client) GetChartData(ctx context.Context, req *dto.ChartDataRequest) (*dto.ChartDataResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var result dto.ChartDataResponse
	resp, err := c.httpClient.Post(ctx, "/chart_data_with_strategy", req, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("fetch chart data: %w", err)
	}
	if !ok(resp.StatusCode) {
		return nil, newAPIError("chart_data_with_strategy", resp.StatusCode, resp.Body)
	}
	return &result, nil
}

func (c *client) RunBacktest(ctx context.Context, req *dto.BacktestRunRequest) (*dto.BacktestRunResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var result dto.BacktestRunResponse
	resp, err := c.httpClient.Post(ctx, "/backtest/run", req, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("run backtest: %w", err)
	}
	if !ok(resp.StatusCode) {
		return nil, newAPIError("backtest/run", resp.StatusCode, resp.Body)
	}
	return &result, nil
}

func (c *client) StartOptimization(ctx context.Context, req *dto.OptimizationStartRequest) (*dto.OptimizationStartResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var result dto.OptimizationStartResponse
	resp, err := c.httpClient.Post(ctx, "/optimize/start", req, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("start optimization: %w", err)
	}
	if !ok(resp.StatusCode) {
		return nil, newAPIError("optimize/start", resp.StatusCode, resp.Body)
	}
	return &result, nil
}

func (c *client) GetOptimizationStatus(ctx context.Context, jobID string) (*dto.OptimizationStatusResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var result dto.OptimizationStatusResponse
	resp, err := c.httpClient.Get(ctx, "/optimize/status/"+jobID, nil, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("fetch optimization status: %w", err)
	}
	if !ok(resp.StatusCode) {
		return nil, newAPIError("optimize/status", resp.StatusCode, resp.Body)
	}
	return &result, nil
}

func (c *client) GetOptimizationResults(ctx context.Context, jobID string) (*dto.OptimizationResultsResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var result dto.OptimizationResultsResponse
	resp, err := c.httpClient.Get(ctx, "/optimize/results/"+jobID, nil, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("fetch optimization results: %w", err)
	}
	if !ok(resp.StatusCode) {
		return nil, newAPIError("optimize/results", resp.StatusCode, resp.Body)
	}
	return &result, nil
}

func (c *client) DownloadOptimizationResults(ctx context.Context, jobID string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Download(ctx, "/optimize/results/"+jobID+"/download", nil)
	if err != nil {
		return nil, fmt.Errorf("download optimization results: %w", err)
	}
	if !ok(resp.StatusCode) {
		return nil, newAPIError("optimize/results/download", resp.StatusCode, resp.Body)
	}
	return resp.Body, nil
}

func (c *client) CancelOptimization(ctx context.Context, jobID string) (*dto.CancelResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var result dto.CancelResponse
	resp, err := c.httpClient.Post(ctx, "/optimize/cancel/"+jobID, nil, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("cancel optimization: %w", err)
	}
	if !ok(resp.StatusCode) {
		return nil, newAPIError("optimize/cancel", resp.StatusCode, resp.Body)
	}
	return &result, nil
}
