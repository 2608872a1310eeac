package api

import (
	"encoding/json"
	"time"

	models "SpikeWatch/internal/domain/models"
	domrepo "SpikeWatch/internal/domain/repository"
	"SpikeWatch/internal/engine"
	"SpikeWatch/internal/usecase"
	"SpikeWatch/pkg/cache"
	xhttp "SpikeWatch/pkg/http"
	xlogger "SpikeWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

const alertsCacheTTL = 5 * time.Second

// AlertsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type AlertsEchoHandler struct {
	logger    *xlogger.Logger
	store     domrepo.AlertStore
	baselines domrepo.BaselineStore
	scanner   *usecase.Scanner
	cache     cache.Service
	loc       *time.Location
	started   time.Time
}

func NewAlertsEchoHandler(logger *xlogger.Logger, store domrepo.AlertStore, baselines domrepo.BaselineStore, scanner *usecase.Scanner, cacheSvc cache.Service) *AlertsEchoHandler {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &AlertsEchoHandler{
		logger:    logger,
		store:     store,
		baselines: baselines,
		scanner:   scanner,
		cache:     cacheSvc,
		loc:       loc,
		started:   time.Now(),
	}
}

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1")
	g.GET("/alerts", h.Alerts)
	g.GET("/status", h.Status)
}

func (h *AlertsEchoHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.store == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("alert storage is not enabled"))
	}
	ctx := c.Request().Context()

	key := cache.Key("alerts:recent", req.Limit)
	if h.cache != nil {
		var raw string
		if err := h.cache.Get(ctx, key, &raw); err == nil {
			var rows []*models.AlertEvent
			if json.Unmarshal([]byte(raw), &rows) == nil {
				c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
				return xhttp.ListResponse(c, rows, int64(len(rows)))
			}
		}
	}

	rows, err := h.store.Recent(ctx, req.Limit)
	if err != nil {
		h.logger.Error("recent alerts query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if h.cache != nil {
		if b, err := json.Marshal(rows); err == nil {
			_ = h.cache.Set(ctx, key, string(b), alertsCacheTTL)
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *AlertsEchoHandler) Status(c echo.Context) error {
	res := &models.StatusResponse{
		Session:       string(engine.ResolveSession(time.Now().In(h.loc))),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if h.scanner != nil {
		res.StreamConnected = h.scanner.IsConnected()
	}
	if h.baselines != nil {
		res.Baselines = h.baselines.Len()
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AlertsEchoHandler) Health(c echo.Context) error {
	res := &models.HealthResponse{Status: "ok"}
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			h.logger.Error("alert store health check failed", xlogger.Error(err))
			res.Status = "degraded"
			res.Storage = err.Error()
		}
	}
	return xhttp.SuccessResponse(c, res)
}
