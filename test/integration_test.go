package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"formgate/internal/api"
	"formgate/internal/db"
	"formgate/internal/mail"
	"formgate/internal/pubsub"
	"formgate/internal/quota"
	"formgate/internal/ratelimit"
	"formgate/internal/schema"
	"formgate/internal/service"
	"formgate/internal/storage"
	"formgate/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, *db.Pool, func()) {
	dbPool, err := db.NewPool(TestDatabaseURL())
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
		return nil, nil, func() {}
	}

	logger := zap.NewNop()

	bus := pubsub.New(nil, logger)
	hub := ws.NewHub(logger)
	go hub.Run()
	bus.SetWSHub(hub)

	ledger := quota.NewMemoryLedger(quota.Limits{InvitationsSent: 1000, AISuggestions: 1000})
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{RequestsPerWindow: 1000, Window: time.Minute})
	compiler := schema.NewCompilerWithCache(16)

	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	templates := service.NewTemplateService(dbPool.Queries)
	invitations := service.NewInvitationService(dbPool.Queries, ledger, mail.NewLogSender(logger), bus, service.InvitationConfig{
		TTL:        time.Hour,
		PublicBase: "http://localhost:8080",
	}, logger)
	responses := service.NewResponseService(dbPool.Queries, compiler, invitations, bus, logger)

	r := chi.NewRouter()
	r.Mount("/v1", api.Routes(api.Dependencies{
		DB:          dbPool,
		Log:         logger,
		Templates:   templates,
		Invitations: invitations,
		Responses:   responses,
		Export:      service.NewExportService(dbPool.Queries),
		Suggest:     service.NewSuggestService(service.RuleSuggester{}, ledger),
		Quota:       ledger,
		Limiter:     limiter,
		Hub:         hub,
		Storage:     store,
		Policy:      storage.DefaultUploadPolicy(),
		JWTSecret:   testJWTSecret,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := httptest.NewServer(r)

	cleanup := func() {
		server.Close()
		dbPool.Close()
	}

	return server, dbPool, cleanup
}

func authedRequest(t *testing.T, method, url string, body interface{}, recruiterID, orgID string) *http.Request {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	tok, err := MintRecruiterToken(testJWTSecret, recruiterID, orgID)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecruiterEndpointsRequireAuth(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp, err := http.Get(server.URL + "/v1/templates")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest("GET", server.URL+"/v1/templates", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateTemplateValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	testDB, err := SetupTestDB()
	require.NoError(t, err)
	defer testDB.Close()
	if err := RunMigrations(testDB); err != nil {
		t.Logf("Migration error (may be OK if already migrated): %v", err)
	}

	// No fields at all.
	req := authedRequest(t, "POST", server.URL+"/v1/templates", map[string]interface{}{
		"name":   "Empty form",
		"fields": []interface{}{},
	}, "rec-1", "org-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Select without options.
	req = authedRequest(t, "POST", server.URL+"/v1/templates", map[string]interface{}{
		"name": "Bad select",
		"fields": []map[string]interface{}{
			{"type": "select", "label": "Pick one"},
		},
	}, "rec-1", "org-1")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTemplateOrgScoping(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	testDB, err := SetupTestDB()
	require.NoError(t, err)
	defer testDB.Close()
	if err := RunMigrations(testDB); err != nil {
		t.Logf("Migration error (may be OK if already migrated): %v", err)
	}

	req := authedRequest(t, "POST", server.URL+"/v1/templates", map[string]interface{}{
		"name": "Org A form",
		"fields": []map[string]interface{}{
			{"type": "short_text", "label": "Full name", "required": true},
		},
	}, "rec-a", "org-a")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	templateID := created["id"].(string)

	// Another org cannot read it.
	req = authedRequest(t, "GET", server.URL+"/v1/templates/"+templateID, nil, "rec-b", "org-b")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
