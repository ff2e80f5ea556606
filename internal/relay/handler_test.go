package relay

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxrelay/internal/auth"
	"wxrelay/internal/logger"
	"wxrelay/internal/params"
	"wxrelay/internal/wechat"
)

func newTestRouter(p *fakeProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NopLogger()

	authenticator := auth.NewAuthenticator("s3cret")
	client := wechat.NewClient(p.srv.URL, time.Second, log)
	svc := NewService(fullConfig(), authenticator, client, NewDispatcher(log), log)
	handler := NewHandler(svc, params.NewExtractor(log), authenticator, log)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, target, contentType, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSendSuccess(t *testing.T) {
	p := newFakeProvider(t)
	router := newTestRouter(p)

	w := doRequest(router, http.MethodPost, "/wxsend", "application/json",
		`{"content":"hello","title1":"greeting","token":"s3cret"}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Successfully sent messages to 3 user(s). First response: ok", w.Body.String())
}

func TestSendAcceptsQueryParameters(t *testing.T) {
	p := newFakeProvider(t)
	router := newTestRouter(p)

	w := doRequest(router, http.MethodPost,
		"/wxsend?content=hello&title1=greeting&token=s3cret", "", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendMissingParameters(t *testing.T) {
	p := newFakeProvider(t)
	router := newTestRouter(p)

	w := doRequest(router, http.MethodPost, "/wxsend", "application/json",
		`{"token":"s3cret"}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required parameters: content, title1", w.Body.String())
	assert.Zero(t, p.TokenCalls)
}

func TestSendInvalidToken(t *testing.T) {
	p := newFakeProvider(t)
	router := newTestRouter(p)

	w := doRequest(router, http.MethodPost, "/wxsend", "application/json",
		`{"content":"hello","title1":"greeting","token":"wrong"}`, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid token", w.Body.String())
	assert.Zero(t, p.TokenCalls)
}

func TestSendBearerHeaderToken(t *testing.T) {
	p := newFakeProvider(t)
	router := newTestRouter(p)

	header := http.Header{}
	header.Set("Authorization", "Bearer s3cret")

	w := doRequest(router, http.MethodPost, "/wxsend", "application/json",
		`{"content":"hello","title1":"greeting"}`, header)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendAllRecipientsFailed(t *testing.T) {
	p := newFakeProvider(t)
	p.sendResp = func(toUser string) map[string]interface{} {
		return map[string]interface{}{"errcode": 43004, "errmsg": "require subscribe"}
	}
	router := newTestRouter(p)

	w := doRequest(router, http.MethodPost, "/wxsend", "application/json",
		`{"content":"hello","title1":"greeting","token":"s3cret"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to send messages. First error: require subscribe", w.Body.String())
}

func TestSendJSONErrorResponseWhenAccepted(t *testing.T) {
	p := newFakeProvider(t)
	router := newTestRouter(p)

	header := http.Header{}
	header.Set("Accept", "application/json")

	w := doRequest(router, http.MethodPost, "/wxsend", "application/json",
		`{"token":"s3cret"}`, header)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"VALIDATION_ERROR"`)
}

func TestTestPageServedForValidToken(t *testing.T) {
	p := newFakeProvider(t)
	router := newTestRouter(p)

	w := doRequest(router, http.MethodGet, "/s3cret", "", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `value="s3cret"`)
	assert.Contains(t, w.Body.String(), `action="/wxsend"`)
}

func TestTestPageEscapesToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NopLogger()

	hostile := `"><img src=x onerror=alert(1)>`
	authenticator := auth.NewAuthenticator(hostile)
	p := newFakeProvider(t)
	client := wechat.NewClient(p.srv.URL, time.Second, log)
	svc := NewService(fullConfig(), authenticator, client, NewDispatcher(log), log)
	handler := NewHandler(svc, params.NewExtractor(log), authenticator, log)

	router := gin.New()
	handler.RegisterRoutes(router)

	w := doRequest(router, http.MethodGet, "/"+url.PathEscape(hostile), "", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `<img src=x onerror=alert(1)>`)
}

func TestTestPageInvalidToken(t *testing.T) {
	p := newFakeProvider(t)
	router := newTestRouter(p)

	w := doRequest(router, http.MethodGet, "/nope", "", "", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid token", w.Body.String())
}

func TestNotFoundPaths(t *testing.T) {
	p := newFakeProvider(t)
	router := newTestRouter(p)

	tests := []struct {
		name   string
		method string
		target string
	}{
		{name: "reserved path", method: http.MethodGet, target: "/index.html"},
		{name: "nested path", method: http.MethodGet, target: "/a/b"},
		{name: "root", method: http.MethodGet, target: "/"},
		{name: "wrong method on token path", method: http.MethodDelete, target: "/s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.method, tt.target, "", "", nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "Not Found", w.Body.String())
		})
	}
}
