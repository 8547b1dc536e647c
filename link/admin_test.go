package link

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"findee/drive"
)

func TestHandleAdminConfig(t *testing.T) {
	th := drive.NewThrottle(60, 20, 100, 5)
	h := HandleAdminConfig(th)

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/admin/config", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]int
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, map[string]int{"speed": 60, "min_speed": 20, "max_speed": 100}, got)

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader(`{"speed":250}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 100, th.Speed())

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodDelete, "/admin/config", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleMetrics(t *testing.T) {
	l := New(Config{URL: "ws://127.0.0.1:1/ws"})
	l.Emit(drive.DirForward, 60)

	rr := httptest.NewRecorder()
	HandleMetrics(l)(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var payload struct {
		Connected   bool             `json:"connected"`
		Metrics     map[string]int64 `json:"metrics"`
		LastCommand *MotorCommand    `json:"last_command"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.False(t, payload.Connected)
	require.EqualValues(t, 1, payload.Metrics["not_connected"])
	require.Nil(t, payload.LastCommand)
}
