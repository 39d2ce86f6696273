package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/service"
)

// Error types reported in response bodies.
const (
	TypeInvalidArgument = "InvalidArgument"
	TypeNotReady        = "NotReady"
	TypeNotFound        = "NotFound"
	TypeTimeout         = "Timeout"
	TypeInternal        = "Internal"
)

// Matcher is the service surface the handlers depend on.
type Matcher interface {
	Match(ctx context.Context, req model.MatchRequest) (*model.MatchResponse, error)
	Health(ctx context.Context) model.HealthResponse
	Listing(id string) (*model.ListingMetadata, error)
}

// MatchHandler serves the matching API.
type MatchHandler struct {
	matcher Matcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewMatchHandler creates a handler that bounds each match by timeout.
func NewMatchHandler(matcher Matcher, timeout time.Duration, logger *slog.Logger) *MatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchHandler{
		matcher: matcher,
		timeout: timeout,
		logger:  logger.With("component", "http"),
	}
}

// Register mounts the handler's routes.
func (h *MatchHandler) Register(r gin.IRouter) {
	r.POST("/match", h.Match)
	r.GET("/health", h.Health)
	r.GET("/listings/:id", h.GetListing)
}

// Match handles POST /match
func (h *MatchHandler) Match(c *gin.Context) {
	var req model.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error: "Invalid request: " + err.Error(),
			Type:  TypeInvalidArgument,
		})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.matcher.Match(ctx, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /health
func (h *MatchHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.matcher.Health(c.Request.Context()))
}

// GetListing handles GET /listings/:id
func (h *MatchHandler) GetListing(c *gin.Context) {
	listing, err := h.matcher.Listing(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// writeError maps a service error onto a status code. Internal details stay in the log.
func (h *MatchHandler) writeError(c *gin.Context, err error) {
	status, kind, msg := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "type", kind, "error", err)
	} else {
		h.logger.Debug("request rejected", "path", c.FullPath(), "type", kind, "error", err)
	}
	c.JSON(status, model.ErrorResponse{Error: msg, Type: kind})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, TypeInvalidArgument, err.Error()
	case errors.Is(err, service.ErrNotReady):
		return http.StatusServiceUnavailable, TypeNotReady, "Model or index is still loading, retry shortly"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, TypeNotFound, "Listing not found"
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout, TypeTimeout, "Request deadline exceeded"
	default:
		return http.StatusInternalServerError, TypeInternal, "Internal error"
	}
}
