package api

import (
	"context"
	"io"
	"time"

	"SignalRelay/internal/domain/models"
	xhttp "SignalRelay/pkg/http"
	xlogger "SignalRelay/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	defaultDispatchTimeout = 60 * time.Second
	maxPayloadBytes        = 64 << 10
)

// EventDispatcher applies one decoded event.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev *models.Event) (models.DispatchResult, error)
}

// WebhookEchoHandler receives alert payloads.
type WebhookEchoHandler struct {
	logger     *xlogger.Logger
	dispatcher EventDispatcher
	path       string
	timeout    time.Duration
	mw         []echo.MiddlewareFunc
}

// NewWebhookEchoHandler mounts the receiver at path. Dispatch runs on a context
// detached from the request so a sender hanging up does not abort enrichment
// or notification; timeout bounds it instead.
func NewWebhookEchoHandler(logger *xlogger.Logger, d EventDispatcher, path string, timeout time.Duration, mw ...echo.MiddlewareFunc) *WebhookEchoHandler {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	if path == "" {
		path = "/webhook"
	}
	return &WebhookEchoHandler{logger: logger, dispatcher: d, path: path, timeout: timeout, mw: mw}
}

func (h *WebhookEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.POST(h.path, h.Receive, h.mw...)
}

// Receive POST /webhook
func (h *WebhookEchoHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unreadable body: %v", err))
	}

	ev := DecodeEvent(body)
	h.logger.Debug("webhook received",
		xlogger.String("kind", string(ev.Kind)),
		xlogger.String("ticker", ev.Ticker),
	)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), h.timeout)
	defer cancel()

	res, err := h.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		h.logger.Error("dispatch failed",
			xlogger.String("kind", string(ev.Kind)),
			xlogger.String("ticker", ev.Ticker),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, xhttp.InternalError("dispatch failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
