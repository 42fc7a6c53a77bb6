package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/frontdesk-ai/frontdesk/internal/chat"
	"github.com/frontdesk-ai/frontdesk/internal/schedule"
	"github.com/frontdesk-ai/frontdesk/internal/tz"
	"github.com/frontdesk-ai/frontdesk/internal/webchat"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

type noBusy struct{}

func (noBusy) FreeBusy(context.Context, time.Time, time.Time) ([]schedule.Interval, error) {
	return nil, nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	clock, err := tz.NewClock("America/New_York")
	require.NoError(t, err)
	gen := schedule.NewGenerator(clock, schedule.DefaultRules(), noBusy{}, nil, logging.Default())
	engine := chat.NewEngine(clock, gen, nil, nil, nil, nil, logging.Default(), chat.Options{
		BusinessName: "Acme Studio",
	})
	reg := prometheus.NewRegistry()
	return New(&Config{
		Logger:         logging.Default(),
		Chat:           webchat.NewHandler(engine, logging.Default()),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := testRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	r := testRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConverseRoute(t *testing.T) {
	r := testRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/converse", strings.NewReader(`{"session_id":"s1"}`))
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme Studio")
}

func TestWebSocketHandshakeSurvivesMiddleware(t *testing.T) {
	srv := httptest.NewServer(testRouter(t))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws?session=sess-ws"
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	require.NoError(t, err, "the logging middleware must not break the upgrade")
	defer conn.Close()

	require.NoError(t, websocket.JSON.Send(conn, chat.TurnRequest{Message: "how much does it cost?"}))

	var resp chat.TurnResponse
	require.NoError(t, websocket.JSON.Receive(conn, &resp))
	assert.Equal(t, chat.KindText, resp.Kind)
}

func TestUnknownRouteIs404(t *testing.T) {
	r := testRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
