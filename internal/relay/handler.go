package relay

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"wxrelay/internal/auth"
	"wxrelay/internal/constants"
	"wxrelay/internal/logger"
	"wxrelay/internal/params"
	"wxrelay/pkg/errors"
	"wxrelay/pkg/metrics"
)

type Handler struct {
	service       *Service
	extractor     *params.Extractor
	authenticator *auth.Authenticator
	logger        logger.Logger
}

func NewHandler(service *Service, extractor *params.Extractor, authenticator *auth.Authenticator, log logger.Logger) *Handler {
	return &Handler{
		service:       service,
		extractor:     extractor,
		authenticator: authenticator,
		logger:        log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/wxsend", h.Send)

	// The test page lives at GET /<token>, a wildcard the router cannot
	// carry next to the static routes; unmatched paths land here.
	router.NoRoute(h.TestPage)
}

// Send relays one message request to every recipient.
func (h *Handler) Send(c *gin.Context) {
	bag := h.extractor.Extract(c.Request)

	sent, err := h.service.Relay(c.Request.Context(), bag, c.Request.Header)
	if err != nil {
		h.respondError(c, err)
		return
	}

	metrics.RelayRequestsTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	c.String(http.StatusOK, "Successfully sent messages to %d user(s). First response: ok", sent)
}

// TestPage serves the manual test form for GET /<token> when the path token
// matches the configured secret. Reserved single-segment paths and anything
// deeper fall through to 404.
func (h *Handler) TestPage(c *gin.Context) {
	segment, ok := singlePathSegment(c.Request.URL.Path)
	if !ok || c.Request.Method != http.MethodGet {
		c.String(http.StatusNotFound, "Not Found")
		return
	}

	if _, reserved := constants.ReservedPaths[segment]; reserved {
		c.String(http.StatusNotFound, "Not Found")
		return
	}

	if err := h.authenticator.Authenticate(segment); err != nil {
		h.respondError(c, err)
		return
	}

	html, err := renderTestPage(segment)
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Failed to render test page", "error", err)
		h.respondError(c, errors.ErrInternal.WithCause(err))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error",
		"error", err,
		"path", c.Request.URL.Path,
	)

	status := errors.ToHTTPStatus(err)
	metrics.RelayRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()

	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(status, errors.ToErrorResponse(err))
		return
	}

	c.String(status, errorText(err))
}

func errorText(err error) string {
	if errors.IsForbidden(err) {
		return "Invalid token"
	}
	return errors.Message(err)
}

// singlePathSegment reports whether the path is exactly one segment, with an
// optional trailing slash.
func singlePathSegment(path string) (string, bool) {
	trimmed := strings.TrimPrefix(path, "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", false
	}
	return trimmed, true
}
