package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"portfolioquotes/internal/aggregate"
	"portfolioquotes/internal/portfolio"
	"portfolioquotes/internal/pricing"
	"portfolioquotes/internal/provider"
	"portfolioquotes/internal/ticker"
)

// Pricer is the subset of *pricing.Service the API serves.
type Pricer interface {
	GetPrice(ctx context.Context, ticker string) (provider.Quote, error)
	GetPricesBatch(ctx context.Context, tickers []string) map[string]pricing.Result
	GetPriceConsensus(ctx context.Context, ticker string) aggregate.Consensus
	ValidateProviders(ctx context.Context) map[string]string
}

type api struct {
	prices         Pricer
	refresher      *portfolio.Refresher
	repo           portfolio.Repository
	maxTickers     int
	maxConcurrency int
	timeout        time.Duration
	log            *zap.Logger
}

func newRouter(a *api) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(a.log), withCORS(), withGzip(), limitBody())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	g := r.Group("/api")
	g.GET("/prices/:ticker", a.getPrice)
	g.POST("/prices", a.postPrices)
	g.GET("/consensus/:ticker", a.getConsensus)
	g.GET("/providers", a.getProviders)
	g.GET("/tickers/validate/:ticker", a.validateTicker)
	g.POST("/portfolios/:id/refresh", a.refreshPortfolio)
	g.POST("/suggest-quantity", a.suggestQuantity)
	g.POST("/imports/preview", a.previewImport)
	return r
}

func (a *api) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), a.timeout)
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (a *api) getPrice(c *gin.Context) {
	ctx, cancel := a.context(c)
	defer cancel()

	q, err := a.prices.GetPrice(ctx, c.Param("ticker"))
	var npe *pricing.NoPriceError
	if errors.As(err, &npe) && npe.Category == ticker.Unknown {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		c.JSON(http.StatusOK, pricing.Result{Price: decimal.Zero, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, pricing.Result{Price: q.Price, Source: string(q.Source)})
}

type pricesRequest struct {
	Tickers []string `json:"tickers"`
}

type pricesResponse struct {
	Prices map[string]pricing.Result `json:"prices"`
}

func (a *api) postPrices(c *gin.Context) {
	var body pricesRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Tickers) == 0 {
		fail(c, http.StatusBadRequest, "tickers cannot be empty")
		return
	}
	if a.maxTickers > 0 && len(body.Tickers) > a.maxTickers {
		fail(c, http.StatusBadRequest, fmt.Sprintf("too many tickers (max %d)", a.maxTickers))
		return
	}

	ctx, cancel := a.context(c)
	defer cancel()
	c.JSON(http.StatusOK, pricesResponse{Prices: a.prices.GetPricesBatch(ctx, body.Tickers)})
}

func (a *api) getConsensus(c *gin.Context) {
	ctx, cancel := a.context(c)
	defer cancel()
	c.JSON(http.StatusOK, a.prices.GetPriceConsensus(ctx, c.Param("ticker")))
}

func (a *api) getProviders(c *gin.Context) {
	ctx, cancel := a.context(c)
	defer cancel()
	c.JSON(http.StatusOK, a.prices.ValidateProviders(ctx))
}

func (a *api) validateTicker(c *gin.Context) {
	c.JSON(http.StatusOK, ticker.Validate(c.Param("ticker")))
}

func (a *api) refreshPortfolio(c *gin.Context) {
	if a.refresher == nil {
		fail(c, http.StatusServiceUnavailable, "database not configured")
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	ctx, cancel := a.context(c)
	defer cancel()
	summary, err := a.refresher.Refresh(ctx, id)
	switch {
	case errors.Is(err, portfolio.ErrNotFound):
		fail(c, http.StatusNotFound, "portfolio not found")
	case err != nil:
		a.log.Error("refresh failed", zap.Int64("portfolio_id", id), zap.Error(err))
		fail(c, http.StatusInternalServerError, "refresh failed")
	default:
		c.JSON(http.StatusOK, summary)
	}
}

type suggestRequest struct {
	Ticker         string          `json:"ticker"`
	TargetPctClass decimal.Decimal `json:"target_pct_class"`
	// Either both ids, resolved through the database,
	PortfolioID  int64 `json:"portfolio_id"`
	AssetClassID int64 `json:"asset_class_id"`
	// or the values themselves.
	PortfolioTotal decimal.Decimal `json:"portfolio_total_value"`
	ClassTargetPct decimal.Decimal `json:"class_target_percentage"`
}

func (a *api) suggestQuantity(c *gin.Context) {
	var body suggestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t := ticker.Normalize(body.Ticker)
	if t == "" || !body.TargetPctClass.IsPositive() {
		fail(c, http.StatusBadRequest, "ticker and a positive target_pct_class are required")
		return
	}

	ctx, cancel := a.context(c)
	defer cancel()

	in := portfolio.SuggestionInput{
		Ticker:         t,
		PortfolioTotal: body.PortfolioTotal,
		ClassPct:       body.ClassTargetPct,
		AssetPct:       body.TargetPctClass,
	}
	if body.PortfolioID > 0 || body.AssetClassID > 0 {
		if a.repo == nil {
			fail(c, http.StatusServiceUnavailable, "database not configured")
			return
		}
		targets, err := a.repo.Targets(ctx, body.PortfolioID, body.AssetClassID)
		if errors.Is(err, portfolio.ErrNotFound) {
			fail(c, http.StatusNotFound, "portfolio or asset class not found")
			return
		}
		if err != nil {
			a.log.Error("loading targets failed", zap.Int64("portfolio_id", body.PortfolioID), zap.Error(err))
			fail(c, http.StatusInternalServerError, "loading targets failed")
			return
		}
		in.PortfolioTotal, in.ClassPct = targets.PortfolioTotal, targets.ClassPct
	}
	c.JSON(http.StatusOK, portfolio.SuggestQuantity(ctx, a.prices, in))
}

type previewRequest struct {
	Positions []portfolio.Position `json:"positions"`
}

type previewResponse struct {
	Items []portfolio.PreviewItem `json:"items"`
}

func (a *api) previewImport(c *gin.Context) {
	var body previewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Positions) == 0 {
		fail(c, http.StatusBadRequest, "positions cannot be empty")
		return
	}
	if a.maxTickers > 0 && len(body.Positions) > a.maxTickers {
		fail(c, http.StatusBadRequest, fmt.Sprintf("too many positions (max %d)", a.maxTickers))
		return
	}

	ctx, cancel := a.context(c)
	defer cancel()
	items := portfolio.PreviewImport(ctx, a.prices, body.Positions, a.maxConcurrency)
	c.JSON(http.StatusOK, previewResponse{Items: items})
}
