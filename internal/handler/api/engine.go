package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"T0Pilot/internal/engine"
	"T0Pilot/internal/marketdata"
	"T0Pilot/internal/usecase"
	"T0Pilot/pkg/cache"
	xhttp "T0Pilot/pkg/http"
	"T0Pilot/pkg/http/middleware"
	xlogger "T0Pilot/pkg/logger"
	"T0Pilot/pkg/util"
)

const summaryCacheTTL = 2 * time.Second

// EngineHandler exposes the dashboard API: engine summary, per-symbol
// position and regime views, cached quotes, and watchlist management.
type EngineHandler struct {
	logger *xlogger.Logger
	eng    *engine.Engine
	poller *usecase.Poller
	quotes *marketdata.Cache
	cache  cache.Service
}

func NewEngineHandler(
	logger *xlogger.Logger,
	eng *engine.Engine,
	poller *usecase.Poller,
	quotes *marketdata.Cache,
	c cache.Service,
) *EngineHandler {
	return &EngineHandler{logger: logger, eng: eng, poller: poller, quotes: quotes, cache: c}
}

func (h *EngineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/engine/summary", h.Summary)
	g.GET("/engine/:symbol/position", h.Position)
	g.GET("/engine/:symbol/regime", h.Regime)
	g.GET("/engine/:symbol/signal", h.Signal)
	g.GET("/quotes", h.Quotes)
	g.GET("/quotes/:symbol", h.Quote)
	g.GET("/watchlist", h.Watchlist)
	// watchlist mutations touch the feed subscription, keep them slow
	rl := middleware.RateLimit(5, 1)
	g.POST("/watchlist", h.Watch, rl)
	g.DELETE("/watchlist/:symbol", h.Unwatch, rl)
	g.GET("/logs/recent", h.RecentLogs)
	e.GET("/health", h.Health)
}

// Summary returns the full dashboard view, cached briefly: the dashboard
// polls faster than the state meaningfully changes.
func (h *EngineHandler) Summary(c echo.Context) error {
	ctx := c.Request().Context()

	var cached engine.Summary
	if err := h.cache.Get(ctx, "engine:summary", &cached); err == nil {
		return xhttp.SuccessResponse(c, cached)
	}

	sum := h.eng.Summarize()
	if err := h.cache.Set(ctx, "engine:summary", sum, summaryCacheTTL); err != nil {
		h.logger.Warn("summary cache set failed", xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *EngineHandler) Position(c echo.Context) error {
	symbol := c.Param("symbol")
	var price float64
	if q, ok := h.quotes.GetQuote(symbol); ok {
		price = q.Price
	}
	snap, ok := h.eng.StateSnapshot(symbol, price)
	if !ok {
		return xhttp.NotFoundResponse(c, "symbol not tracked: "+symbol)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *EngineHandler) Regime(c echo.Context) error {
	symbol := c.Param("symbol")
	return xhttp.SuccessResponse(c, map[string]any{
		"symbol": symbol,
		"regime": h.eng.Regime(symbol),
	})
}

func (h *EngineHandler) Signal(c echo.Context) error {
	symbol := c.Param("symbol")
	sig, ok := h.eng.LastSignal(symbol)
	if !ok {
		return xhttp.NotFoundResponse(c, "no signal yet for "+symbol)
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *EngineHandler) Quotes(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.quotes.GetAllQuotes())
}

func (h *EngineHandler) Quote(c echo.Context) error {
	symbol := c.Param("symbol")
	q, ok := h.quotes.GetQuote(symbol)
	if !ok {
		return xhttp.NotFoundResponse(c, "no quote for "+symbol)
	}
	return xhttp.SuccessResponse(c, q)
}

func (h *EngineHandler) Watchlist(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.poller.Watched())
}

// WatchRequest is the add-to-watchlist payload.
type WatchRequest struct {
	Symbol string `json:"symbol" validate:"required,min=1,max=12"`
}

func (h *EngineHandler) Watch(c echo.Context) error {
	req := &WatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.poller.Watch(c.Request().Context(), req.Symbol); err != nil {
		h.logger.Error("watch failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, map[string]string{"symbol": req.Symbol})
}

func (h *EngineHandler) Unwatch(c echo.Context) error {
	symbol := c.Param("symbol")
	if err := h.poller.Unwatch(symbol); err != nil {
		h.logger.Error("unwatch failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *EngineHandler) RecentLogs(c echo.Context) error {
	buf := h.logger.Recent()
	if buf == nil {
		return xhttp.SuccessResponse(c, []xlogger.RecentEntry{})
	}
	entries := buf.Snapshot()
	limit := util.ParseIntDefault(c.QueryParam("limit"), len(entries))
	if limit >= 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}
	return xhttp.SuccessResponse(c, entries)
}

func (h *EngineHandler) Health(c echo.Context) error {
	status := "ok"
	if !h.quotes.IsConnected() {
		status = "degraded"
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": status})
}
