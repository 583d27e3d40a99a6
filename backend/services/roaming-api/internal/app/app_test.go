package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/config"
)

const seedDoc = `
networks:
  - id: Prod
    name: Production
    operators:
      - id: DE*GEF
        pools:
          - id: DE*GEF*P1
            stations:
              - id: DE*GEF*S1
                evses:
                  - id: DE*GEF*E1*1
`

func newTestApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedDoc), 0o600))

	cfg := &config.Config{}
	cfg.HTTP.ServerName = "test"
	cfg.Seed.File = path
	cfg.DebugLog.WriteTimeout = time.Second
	cfg.DebugLog.PingInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	go a.bus.Run(ctx)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		a.Close()
	})
	return a, srv
}

func TestHealth(t *testing.T) {
	_, srv := newTestApp(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestSeededNetworkIsServed(t *testing.T) {
	_, srv := newTestApp(t)

	resp, err := http.Get(srv.URL + "/RNs/Prod/EVSEs->Id")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test", resp.Header.Get("Server"))
	var got []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []string{"DE*GEF*E1*1"}, got)
}

func TestDebugLogStreamsAdminEvents(t *testing.T) {
	a, srv := newTestApp(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/DebugLog", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	req, err := http.NewRequest("CREATE", srv.URL+"/RNs/Test", strings.NewReader(`{"Name":"Test network"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, ok := a.Registry().Get("*", "Test")
	assert.True(t, ok)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, json.Unmarshal(frame, &event))
	assert.Equal(t, "CREATE /RNs/{networkId}", event["type"])
}
