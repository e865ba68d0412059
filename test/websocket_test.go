package test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"formgate/internal/api"
	"formgate/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The live feed needs no database: a hub, the routes, and a bearer
// token are enough to exercise subscription and fan-out.
func setupWSServer(t *testing.T) (*httptest.Server, *ws.Hub, func()) {
	logger := zap.NewNop()
	hub := ws.NewHub(logger)
	go hub.Run()

	r := chi.NewRouter()
	r.Mount("/v1", api.Routes(api.Dependencies{
		Log:       logger,
		Hub:       hub,
		JWTSecret: testJWTSecret,
	}))

	server := httptest.NewServer(r)
	return server, hub, server.Close
}

func dialWS(t *testing.T, server *httptest.Server, recruiterID, orgID string) *websocket.Conn {
	tok, err := MintRecruiterToken(testJWTSecret, recruiterID, orgID)
	require.NoError(t, err)

	wsURL := strings.Replace(server.URL, "http://", "ws://", 1) + "/v1/ws"
	header := http.Header{"Authorization": []string{"Bearer " + tok}}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	return conn
}

func TestWebSocketRequiresAuth(t *testing.T) {
	server, _, cleanup := setupWSServer(t)
	defer cleanup()

	wsURL := strings.Replace(server.URL, "http://", "ws://", 1) + "/v1/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketOrgFeed(t *testing.T) {
	server, hub, cleanup := setupWSServer(t)
	defer cleanup()

	conn := dialWS(t, server, "rec-1", "org-1")
	defer conn.Close()

	otherConn := dialWS(t, server, "rec-2", "org-2")
	defer otherConn.Close()

	// Give the hub a moment to register both connections.
	time.Sleep(100 * time.Millisecond)

	hub.Publish("org-1", map[string]interface{}{
		"type":         "invitation.viewed",
		"invitationId": "inv-123",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "invitation.viewed")
	assert.Contains(t, string(msg), "inv-123")

	// The other org's connection must not receive the event.
	otherConn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = otherConn.ReadMessage()
	assert.Error(t, err, "cross-org delivery must not happen")
}
