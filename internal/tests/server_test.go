package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/auth"
	"github.com/ShivpalBellway/DevBhakti/internal/catalog"
	"github.com/ShivpalBellway/DevBhakti/internal/config"
	"github.com/ShivpalBellway/DevBhakti/internal/db"
	httphandler "github.com/ShivpalBellway/DevBhakti/internal/http"
	"github.com/ShivpalBellway/DevBhakti/internal/http/handlers"
	"github.com/ShivpalBellway/DevBhakti/internal/metrics"
	"github.com/ShivpalBellway/DevBhakti/internal/middleware"
	"github.com/ShivpalBellway/DevBhakti/internal/onboarding"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
	"github.com/ShivpalBellway/DevBhakti/internal/upload"
)

func TestMain(m *testing.M) {
	// Set env if unset. Do NOT set DATABASE_URL; integration tests skip if missing.
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-jwt-secret-at-least-32-characters-long")
	}
	if os.Getenv("OTP_DEV_MODE") == "" {
		os.Setenv("OTP_DEV_MODE", "true")
	}

	code := m.Run()
	os.Exit(code)
}

// testServer holds the server and DB for integration tests
type testServer struct {
	Server *httptest.Server
	DB     *sqlx.DB
	Auth   *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err, "config load must succeed for integration test")

	logger := zap.NewNop()
	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.MigrateUp(database.DB, logger), "migrations must run successfully")
	require.NoError(t, TruncateTables(ctx, database))

	m := metrics.New()
	store := repo.NewStore(database)
	storage := upload.NewDiskStorage(t.TempDir())

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	authService := auth.NewService(store.Accounts, jwtService, auth.NewLogNotifier(logger), logger, auth.Options{
		DevMode: cfg.OTPDevMode,
		Metrics: m,
	})
	limiters := middleware.NewLimiterFactory(nil)
	t.Cleanup(limiters.Close)

	router := httphandler.NewRouter(httphandler.Deps{
		Auth:        handlers.NewAuthHandler(authService, storage, logger),
		Institution: handlers.NewInstitutionHandler(onboarding.NewService(store, logger, m, cfg.DefaultInstitutionPassword), storage, logger),
		Catalog:     handlers.NewCatalogHandler(catalog.NewService(store.Repos, logger), logger),
		Health:      handlers.NewHealthHandler(database),
		JWT:         jwtService,
		Accounts:    store.Accounts,
		Limiters:    limiters,
		Metrics:     m,
		Logger:      logger,
		UploadDir:   storage.Root(),
		CORSOrigins: []string{"*"},
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, DB: database, Auth: authService}
}

func (s *testServer) URL(path string) string { return s.Server.URL + path }

func (s *testServer) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := s.Server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// adminToken bootstraps an admin account and logs in with it.
func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	_, err := s.Auth.CreateAdmin(context.Background(), auth.NewAdminInput{
		Phone: "9000000000", Name: "Admin", Password: "admin-password",
	})
	require.NoError(t, err)

	resp := s.do(t, NewJSONRequest(t, http.MethodPost, s.URL("/api/admin/auth/login"), "",
		map[string]string{"phone": "9000000000", "password": "admin-password"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sess auth.Session
	_, err = DecodeEnvelope(resp, &sess)
	require.NoError(t, err)
	return sess.Token
}
