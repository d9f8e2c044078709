package melonsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mobiletoly/go-melonsync/melonsync"
)

// IntegrationTestHarness boots a throwaway PostgreSQL container, wires the
// full HTTP surface behind JWT auth, and provides typed pull/push helpers
// for two devices of the same user.
type IntegrationTestHarness struct {
	t         *testing.T
	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	service   *melonsync.SyncService
	mux       *http.ServeMux
	jwtAuth   *melonsync.JWTAuth
	logger    *slog.Logger

	device1Token string
	device2Token string
}

func NewIntegrationTestHarness(t *testing.T) *IntegrationTestHarness {
	if testing.Short() {
		t.Skip("Skipping container-backed integration test in short mode")
	}
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("taskboard_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	service, err := melonsync.NewSyncService(pool, &melonsync.ServiceConfig{
		MaxSupportedSchemaVersion: 1,
		AppName:                   "go-melonsync-integration-test",
	}, logger)
	require.NoError(t, err)

	jwtAuth := melonsync.NewJWTAuth("test-secret-key")
	handlers := melonsync.NewHTTPSyncHandlers(service, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /sync/pull", jwtAuth.Middleware(http.HandlerFunc(handlers.HandlePull)))
	mux.Handle("POST /sync/push", jwtAuth.Middleware(http.HandlerFunc(handlers.HandlePush)))
	mux.Handle("GET /sync/schema-version", jwtAuth.Middleware(http.HandlerFunc(handlers.HandleSchemaVersion)))

	userID := "user-" + uuid.NewString()
	device1Token, err := jwtAuth.GenerateToken(userID, "device1-"+uuid.NewString(), time.Hour)
	require.NoError(t, err)
	device2Token, err := jwtAuth.GenerateToken(userID, "device2-"+uuid.NewString(), time.Hour)
	require.NoError(t, err)

	return &IntegrationTestHarness{
		t:            t,
		ctx:          ctx,
		container:    container,
		pool:         pool,
		service:      service,
		mux:          mux,
		jwtAuth:      jwtAuth,
		logger:       logger,
		device1Token: device1Token,
		device2Token: device2Token,
	}
}

func (h *IntegrationTestHarness) Cleanup() {
	if h.service != nil {
		_ = h.service.Close()
	}
	if h.pool != nil {
		h.pool.Close()
	}
	if h.container != nil {
		_ = h.container.Terminate(h.ctx)
	}
}

// Reset truncates all syncable tables between scenarios.
func (h *IntegrationTestHarness) Reset() {
	_, err := h.pool.Exec(h.ctx, `TRUNCATE comments, tasks, projects, workspaces`)
	require.NoError(h.t, err)
}

// DoPull performs an authenticated pull and decodes the response on 200.
func (h *IntegrationTestHarness) DoPull(token string, lastPulledAt int64) (*melonsync.PullResponse, *http.Response) {
	url := fmt.Sprintf("/sync/pull?last_pulled_at=%d&schema_version=1", lastPulledAt)
	httpReq := httptest.NewRequest(http.MethodGet, url, nil)
	httpReq.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	h.mux.ServeHTTP(recorder, httpReq)

	var pullResp melonsync.PullResponse
	if recorder.Code == http.StatusOK {
		require.NoError(h.t, json.NewDecoder(recorder.Body).Decode(&pullResp))
	}
	return &pullResp, recorder.Result()
}

// DoPush performs an authenticated push of a change batch.
func (h *IntegrationTestHarness) DoPush(token string, changes *melonsync.Changes) *http.Response {
	body, err := json.Marshal(melonsync.PushRequest{Changes: changes})
	require.NoError(h.t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/sync/push", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	h.mux.ServeHTTP(recorder, httpReq)
	return recorder.Result()
}

// MustPush pushes and requires a 200.
func (h *IntegrationTestHarness) MustPush(token string, changes *melonsync.Changes) {
	h.t.Helper()
	resp := h.DoPush(token, changes)
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
}

// MustPull pulls and requires a 200.
func (h *IntegrationTestHarness) MustPull(token string, lastPulledAt int64) *melonsync.PullResponse {
	h.t.Helper()
	pullResp, resp := h.DoPull(token, lastPulledAt)
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	return pullResp
}
