package api

import (
	"context"
	"crypto/rand"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/geo"
	"github.com/gingerhendrix/my-nat/internal/geolocation"
	"github.com/gingerhendrix/my-nat/internal/inaturalist"
	"github.com/gingerhendrix/my-nat/internal/logger"
	"github.com/gingerhendrix/my-nat/internal/observability/metrics"
	"github.com/gingerhendrix/my-nat/internal/observation"
	"github.com/gingerhendrix/my-nat/internal/search"
)

// Controller manages the search session routes and handlers
type Controller struct {
	Group      *echo.Group
	sessions   *SessionStore
	newSession SessionFactory
	locator    geolocation.Locator
	radius     float64
	log        logger.Logger
	metrics    *metrics.HTTPMetrics
}

// NewController registers the /api/v1 routes on e.
func NewController(e *echo.Echo, store *SessionStore, factory SessionFactory,
	locator geolocation.Locator, defaultRadius float64, log logger.Logger, m *metrics.HTTPMetrics) *Controller {
	if log == nil {
		log = GetLogger()
	}
	if defaultRadius <= 0 {
		defaultRadius = search.DefaultRadius
	}

	c := &Controller{
		Group:      e.Group("/api/v1"),
		sessions:   store,
		newSession: factory,
		locator:    locator,
		radius:     defaultRadius,
		log:        log,
		metrics:    m,
	}
	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.POST("/sessions", c.CreateSession)
	c.Group.GET("/sessions/:id", c.GetSession)
	c.Group.GET("/sessions/:id/pages/:page", c.GetPage)
	c.Group.DELETE("/sessions/:id", c.DeleteSession)
	c.Group.GET("/location", c.GetLocation)
}

// SearchRequest is the body of POST /sessions. Latitude and longitude must
// be given together.
type SearchRequest struct {
	Username  string   `json:"username"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    float64  `json:"radius"`
}

// ObservationResponse adds display fields to an observation
type ObservationResponse struct {
	observation.Observation
	Distance         string `json:"distance,omitempty"`
	QualityLabel     string `json:"quality_label"`
	PlainDescription string `json:"plain_description,omitempty"`
}

// ResultResponse is one page of a session
type ResultResponse struct {
	Observations    []ObservationResponse `json:"observations"`
	TotalMatchCount int                   `json:"total_match_count"`
	CurrentPage     int                   `json:"current_page"`
	TotalPages      int                   `json:"total_pages"`
	PageSize        int                   `json:"page_size"`
	HasNext         bool                  `json:"has_next"`
	HasPrev         bool                  `json:"has_prev"`
	Filter          search.Filter         `json:"filter"`
}

// SessionResponse is returned by the session endpoints
type SessionResponse struct {
	SessionID string          `json:"session_id"`
	Result    *ResultResponse `json:"result,omitempty"`
}

// LocationResponse is returned by GET /location
type LocationResponse struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Located       bool    `json:"located"`
	DefaultRadius float64 `json:"default_radius"`
}

func newResultResponse(r *search.Result) *ResultResponse {
	out := &ResultResponse{
		Observations:    make([]ObservationResponse, 0, len(r.Observations)),
		TotalMatchCount: r.TotalMatchCount,
		CurrentPage:     r.CurrentPage,
		TotalPages:      r.TotalPages,
		PageSize:        r.PageSize,
		HasNext:         r.HasNext(),
		HasPrev:         r.HasPrev(),
		Filter:          r.Filter,
	}
	for i := range r.Observations {
		o := &r.Observations[i]
		out.Observations = append(out.Observations, ObservationResponse{
			Observation:      *o,
			Distance:         o.FormattedDistance(),
			QualityLabel:     o.QualityGrade.Label(),
			PlainDescription: o.PlainDescription(),
		})
	}
	return out
}

// CreateSession handles POST /api/v1/sessions
func (c *Controller) CreateSession(ctx echo.Context) error {
	var req SearchRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	filter := search.Filter{Username: req.Username, RadiusMeters: req.Radius}
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		filter.Location = &geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	case req.Latitude != nil || req.Longitude != nil:
		return c.HandleError(ctx, search.ErrInvalidFilter, "Latitude and longitude must be given together", http.StatusBadRequest)
	}

	session := c.newSession()
	result, err := session.Search(ctx.Request().Context(), filter)
	if err != nil {
		return c.handleSearchError(ctx, err)
	}

	id := c.sessions.Add(session)
	c.log.Debug("session created",
		logger.String("session_id", id),
		logger.Int("total", result.TotalMatchCount))

	return ctx.JSON(http.StatusCreated, SessionResponse{
		SessionID: id,
		Result:    newResultResponse(result),
	})
}

// GetSession handles GET /api/v1/sessions/:id
func (c *Controller) GetSession(ctx echo.Context) error {
	id := ctx.Param("id")
	session, err := c.sessions.Get(id)
	if err != nil {
		return c.handleSearchError(ctx, err)
	}

	resp := SessionResponse{SessionID: id}
	if result, active := session.Snapshot(); active {
		resp.Result = newResultResponse(result)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetPage handles GET /api/v1/sessions/:id/pages/:page
func (c *Controller) GetPage(ctx echo.Context) error {
	id := ctx.Param("id")
	session, err := c.sessions.Get(id)
	if err != nil {
		return c.handleSearchError(ctx, err)
	}

	page, err := strconv.Atoi(ctx.Param("page"))
	if err != nil {
		return c.HandleError(ctx, err, "Page must be an integer", http.StatusBadRequest)
	}

	result, err := session.GoToPage(ctx.Request().Context(), page)
	if err != nil {
		return c.handleSearchError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, SessionResponse{
		SessionID: id,
		Result:    newResultResponse(result),
	})
}

// DeleteSession handles DELETE /api/v1/sessions/:id
func (c *Controller) DeleteSession(ctx echo.Context) error {
	if err := c.sessions.Delete(ctx.Param("id")); err != nil {
		return c.handleSearchError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetLocation handles GET /api/v1/location
func (c *Controller) GetLocation(ctx echo.Context) error {
	coord, located := geolocation.ResolveOrDefault(ctx.Request().Context(), c.locator, c.log)
	return ctx.JSON(http.StatusOK, LocationResponse{
		Latitude:      coord.Latitude,
		Longitude:     coord.Longitude,
		Located:       located,
		DefaultRadius: c.radius,
	})
}

// handleSearchError maps session and client errors to HTTP statuses
func (c *Controller) handleSearchError(ctx echo.Context, err error) error {
	code, message := errorStatus(err)
	return c.HandleError(ctx, err, message, code)
}

func errorStatus(err error) (code int, message string) {
	var remoteErr *inaturalist.RemoteError
	var parseErr *inaturalist.ParseError

	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, search.ErrInvalidFilter):
		return http.StatusBadRequest, "Invalid search filter"
	case errors.Is(err, search.ErrPageOutOfRange):
		return http.StatusBadRequest, "Page out of range"
	case errors.Is(err, search.ErrNoActiveSearch):
		return http.StatusConflict, "No active search"
	case errors.Is(err, search.ErrSuperseded):
		return http.StatusConflict, "Request superseded by a newer one"
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway, "Observation service returned an error"
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, "Observation service returned an unreadable response"
	case errors.Is(err, context.DeadlineExceeded), errors.IsCategory(err, errors.CategoryTimeout):
		return http.StatusGatewayTimeout, "Observation service timed out"
	case errors.IsCategory(err, errors.CategoryNetwork):
		return http.StatusBadGateway, "Observation service unreachable"
	default:
		return http.StatusInternalServerError, "Search failed"
	}
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for matching
// error replies with log lines
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and replies with an ErrorResponse
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	level := logger.LogLevelWarn
	if code >= http.StatusInternalServerError {
		level = logger.LogLevelError
	}
	c.log.Log(level, "API error",
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Error(err),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()))

	errorType := "client"
	if code >= http.StatusInternalServerError {
		errorType = "server"
	}
	c.metrics.RecordHTTPRequestError(ctx.Request().Method, ctx.Path(), errorType)

	return ctx.JSON(code, errorResp)
}
