package server_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicelink/voicelink/server"
	"github.com/voicelink/voicelink/server/test"
)

const prometheusAccessToken = "prom1234"

func newOpsRelay(t *testing.T) *server.Server {
	t.Helper()

	var config server.Config

	server.InitConfig(&config)

	return server.New(test.NewLogger(), config)
}

func Test_routeHealth(t *testing.T) {
	relay := newOpsRelay(t)
	mux := server.NewOpsMux(test.NewLogger(), relay, server.PrometheusConfig{AccessToken: prometheusAccessToken})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/probes/health", nil)

	mux.ServeHTTP(w, r)

	require.Equal(t, 200, w.Code)
}

func Test_routeStatus(t *testing.T) {
	relay := newOpsRelay(t)

	alice := server.NewChatClient(nil)
	alice.SetName("alice")
	require.NoError(t, relay.Registry().Register("alice", alice))

	mux := server.NewOpsMux(test.NewLogger(), relay, server.PrometheusConfig{AccessToken: prometheusAccessToken})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/status", nil)

	mux.ServeHTTP(w, r)

	require.Equal(t, 200, w.Code)

	var status struct {
		Users []string          `json:"users"`
		Voice server.VoiceStats `json:"voice"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, []string{"alice"}, status.Users)
	assert.Equal(t, server.VoiceStats{}, status.Voice)
}

func Test_routeMetrics_auth(t *testing.T) {
	relay := newOpsRelay(t)
	mux := server.NewOpsMux(test.NewLogger(), relay, server.PrometheusConfig{AccessToken: prometheusAccessToken})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/metrics", nil)

	mux.ServeHTTP(w, r)
	assert.Equal(t, 401, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/metrics", nil)
	r.Header.Set("Authorization", "Bearer wrong")

	mux.ServeHTTP(w, r)
	assert.Equal(t, 401, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/metrics", nil)
	r.Header.Set("Authorization", "Bearer "+prometheusAccessToken)

	mux.ServeHTTP(w, r)
	assert.Equal(t, 200, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/metrics?access_token="+prometheusAccessToken, nil)

	mux.ServeHTTP(w, r)
	assert.Equal(t, 200, w.Code)
}
