package api

import (
	"context"
	"time"

	"SignalRelay/internal/domain/models"
	"SignalRelay/internal/service/cache"
	"SignalRelay/internal/usecase"
	xhttp "SignalRelay/pkg/http"
	xlogger "SignalRelay/pkg/logger"
	"SignalRelay/pkg/util"

	"github.com/labstack/echo/v4"
)

const defaultListLimit = 100

// StateAdmin is the dispatcher surface the admin endpoints read and reset.
type StateAdmin interface {
	Stats() usecase.Stats
	OpenTrades() []models.TradeRecord
	Clusters() []models.ClusterRecord
	Reset() (trades, clusters int)
}

type RiskCache interface {
	Stats() cache.Stats
	ClearCache(ctx context.Context)
}

type ConfluenceCache interface {
	Stats() cache.Stats
	ClearCache()
}

// AdminEchoHandler serves health and operator endpoints.
type AdminEchoHandler struct {
	logger     *xlogger.Logger
	state      StateAdmin
	risk       RiskCache
	confluence ConfluenceCache
	started    time.Time
	now        func() time.Time
}

func NewAdminEchoHandler(logger *xlogger.Logger, state StateAdmin, risk RiskCache, confluence ConfluenceCache) *AdminEchoHandler {
	return &AdminEchoHandler{
		logger:     logger,
		state:      state,
		risk:       risk,
		confluence: confluence,
		started:    time.Now(),
		now:        time.Now,
	}
}

func (h *AdminEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/admin")
	g.GET("/stats", h.Stats)
	g.GET("/trades", h.ListTrades)
	g.GET("/clusters", h.ListClusters)
	g.POST("/cache/clear", h.ClearCache)
	g.POST("/trades/clear", h.ClearTrades)
}

type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Health GET /health
func (h *AdminEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
	})
}

type StatsResponse struct {
	RiskCache       cache.Stats `json:"risk_cache"`
	ConfluenceCache cache.Stats `json:"confluence_cache"`
	OpenTrades      int         `json:"open_trades"`
	TrackedClusters int         `json:"tracked_clusters"`
}

// Stats GET /admin/stats
func (h *AdminEchoHandler) Stats(c echo.Context) error {
	st := h.state.Stats()
	return xhttp.SuccessResponse(c, StatsResponse{
		RiskCache:       h.risk.Stats(),
		ConfluenceCache: h.confluence.Stats(),
		OpenTrades:      st.OpenTrades,
		TrackedClusters: st.TrackedClusters,
	})
}

// ListTrades GET /admin/trades?limit=N
func (h *AdminEchoHandler) ListTrades(c echo.Context) error {
	rows := h.state.OpenTrades()
	total := len(rows)
	if n := listLimit(c); n < len(rows) {
		rows = rows[:n]
	}
	return xhttp.ListResponse(c, rows, int64(total))
}

// ListClusters GET /admin/clusters?limit=N
func (h *AdminEchoHandler) ListClusters(c echo.Context) error {
	rows := h.state.Clusters()
	total := len(rows)
	if n := listLimit(c); n < len(rows) {
		rows = rows[:n]
	}
	return xhttp.ListResponse(c, rows, int64(total))
}

func listLimit(c echo.Context) int {
	n := util.ParseIntDefault(c.QueryParam("limit"), defaultListLimit)
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

type ClearCacheRequest struct {
	Target string `json:"target" default:"all" validate:"oneof=all risk confluence"`
}

type ClearCacheResponse struct {
	Cleared []string `json:"cleared"`
}

// ClearCache POST /admin/cache/clear
func (h *AdminEchoHandler) ClearCache(c echo.Context) error {
	var req ClearCacheRequest
	if verrs := xhttp.ReadAndValidateRequest(c, &req); verrs != nil {
		return xhttp.BadRequestResponse(c, verrs)
	}

	var cleared []string
	if req.Target == "all" || req.Target == "risk" {
		h.risk.ClearCache(c.Request().Context())
		cleared = append(cleared, "risk")
	}
	if req.Target == "all" || req.Target == "confluence" {
		h.confluence.ClearCache()
		cleared = append(cleared, "confluence")
	}
	h.logger.Info("caches cleared", xlogger.Strings("targets", cleared))
	return xhttp.SuccessResponse(c, ClearCacheResponse{Cleared: cleared})
}

type ClearTradesResponse struct {
	Trades   int `json:"trades"`
	Clusters int `json:"clusters"`
}

// ClearTrades POST /admin/trades/clear
func (h *AdminEchoHandler) ClearTrades(c echo.Context) error {
	trades, clusters := h.state.Reset()
	h.logger.Info("state reset", xlogger.Int("trades", trades), xlogger.Int("clusters", clusters))
	return xhttp.SuccessResponse(c, ClearTradesResponse{Trades: trades, Clusters: clusters})
}
