package app

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kalpem/internal/acquisition"
	"kalpem/internal/config"
	"kalpem/internal/infrastructure"
	api "kalpem/pkg/contracts/api/v1"
	"kalpem/pkg/contracts/domain"
	"kalpem/pkg/contracts/events"
)

const calendarCSV = "NamaProgramPembelajaran,Mulai,Akhir,Metode,Penyelenggara,TotalPeserta,TotalJamlator,Jumlahkelas,LevelEvaluasi\n" +
	"Pelatihan Anggaran,2025-01-13,2025-01-17,PJJ,Pusdiklat Anggaran,30,20,1,Level 1\n" +
	"Pelatihan Audit,2025-02-03,2025-02-07,E-Learning,Pusdiklat Pengawasan,120,10,4,Level 2\n" +
	"Pelatihan Pajak,2025-02-10,2025-02-12,PJJ,Pusdiklat Pajak,25,12,1,Level 1\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Source.UseRemote = false
	cfg.Source.FirstLoadPolicy = config.PolicyDefaultOnly
	cfg.Source.RefreshInterval = time.Hour
	cfg.Security.RateLimit.Enabled = false
	cfg.Telemetry.MetricsEnabled = true
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func writeDefaultCSV(t *testing.T, cfg *config.Config) {
	t.Helper()
	paths := cfg.ResolvePaths()
	require.NoError(t, os.MkdirAll(paths.DataDir, 0755))
	require.NoError(t, os.WriteFile(paths.DefaultCSV, []byte(calendarCSV), 0644))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()

	frontend := fstest.MapFS{
		IndexFile: {Data: []byte("<!doctype html><title>Kalender Pembelajaran</title>")},
	}
	a, err := New(cfg, frontend, discardLogger())
	require.NoError(t, err)

	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() {
		a.Refresher.Stop()
		a.WebSocketHub.Stop()
		_ = a.OTelProviders.Shutdown(context.Background())
	})
	return a
}

func getJSON(t *testing.T, url string, dst interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func TestNew_ResolvesPathsAndServices(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, nil, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.OTelProviders.Shutdown(context.Background()) })

	assert.DirExists(t, a.Paths.DataDir)
	assert.DirExists(t, a.Paths.LogsDir)
	assert.Equal(t, filepath.Join(cfg.Paths.BaseDir, "data", config.DefaultCSVName), a.Paths.DefaultCSV)
	assert.NotNil(t, a.Dashboard)
	assert.NotNil(t, a.Refresher)
	assert.NotNil(t, a.HealthService)
	assert.NotNil(t, a.WebSocketHub)
	assert.Equal(t, ":8050", a.Server.Addr)
	assert.Equal(t, cfg.Server.MaxHeaderBytes, a.Server.MaxHeaderBytes)
	assert.Equal(t, uint64(0), a.Dashboard.Current().Version)
}

func TestApplication_StartLoadsDefaultFile(t *testing.T) {
	cfg := testConfig(t)
	writeDefaultCSV(t, cfg)

	a := newTestApp(t, cfg)

	snap := a.Dashboard.Current()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, 3, snap.Records.Len())
	assert.Equal(t, domain.StatusOffline, snap.Status.Label)
	assert.False(t, snap.Status.Connected)
	assert.True(t, a.Refresher.Running())
}

func TestApplication_StartWithMissingSheetsCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.UseRemote = true
	cfg.Source.SheetID = "abc"
	writeDefaultCSV(t, cfg)

	a := newTestApp(t, cfg)

	snap := a.Dashboard.Current()
	require.NotNil(t, snap)
	assert.Equal(t, 3, snap.Records.Len())
	assert.Equal(t, domain.StatusOffline, snap.Status.Label)
	assert.Equal(t, acquisition.SourceDefault, snap.Status.Source)
}

func TestApplication_StartWithoutData(t *testing.T) {
	cfg := testConfig(t)

	a := newTestApp(t, cfg)

	snap := a.Dashboard.Current()
	assert.Equal(t, 0, snap.Records.Len())
	assert.NotEqual(t, domain.StatusOnline, snap.Status.Label)

	server := httptest.NewServer(a.Router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestApplication_Routes(t *testing.T) {
	cfg := testConfig(t)
	writeDefaultCSV(t, cfg)
	a := newTestApp(t, cfg)

	server := httptest.NewServer(a.Router)
	defer server.Close()

	t.Run("index page", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "Kalender Pembelajaran")
	})

	t.Run("health", func(t *testing.T) {
		var body map[string]interface{}
		assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/health", &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/health/ready", nil))
		assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/version", nil))
	})

	t.Run("dashboard", func(t *testing.T) {
		var body api.DashboardResponse
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/dashboard", &body))
		assert.Equal(t, 3, body.Result.Count)
		assert.Equal(t, 175.0, body.Result.TotalParticipants)
		assert.Equal(t, uint64(1), body.Snapshot.Version)
	})

	t.Run("dashboard with filters", func(t *testing.T) {
		var body api.DashboardResponse
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/dashboard?method=PJJ", &body))
		assert.Equal(t, 2, body.Result.Count)
		assert.Equal(t, 55.0, body.Result.TotalParticipants)
	})

	t.Run("invalid filter", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, getJSON(t, server.URL+"/api/dashboard?month=Smarch", nil))
	})

	t.Run("filters", func(t *testing.T) {
		var body domain.FilterOptions
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/filters", &body))
		assert.Equal(t, []string{"E-Learning", "PJJ"}, body.Methods)
		assert.Len(t, body.Organizers, 3)
	})

	t.Run("status", func(t *testing.T) {
		var body api.StatusResponse
		require.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/status", &body))
		assert.Equal(t, domain.StatusOffline, body.Status.Label)
		assert.True(t, strings.HasPrefix(body.LastUpdated, "Update: "))
	})

	t.Run("chart", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/charts/month.png?theme=dark")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		img, err := png.DecodeConfig(resp.Body)
		require.NoError(t, err)
		assert.Greater(t, img.Width, 0)
	})

	t.Run("export", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/export?organizer=Pusdiklat+Pajak")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, config.ExportMIMEType, resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), config.ExportFilePrefix)
	})

	t.Run("export matching nothing still builds a workbook", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/export?organizer=Tidak+Ada")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(server.URL + config.MetricsEndpoint)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("request id echoed", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})
}

func TestApplication_RefreshNotifiesWebSocket(t *testing.T) {
	cfg := testConfig(t)
	writeDefaultCSV(t, cfg)
	a := newTestApp(t, cfg)

	server := httptest.NewServer(a.Router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + config.WebSocketEndpoint
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readMessage := func() events.WebSocketMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg events.WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, events.MessageTypeConnect, readMessage().Type)

	resp, err := http.Post(server.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	var refreshed api.RefreshResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&refreshed))
	resp.Body.Close()
	assert.Equal(t, uint64(2), refreshed.Snapshot.Version)

	msg := readMessage()
	assert.Equal(t, events.MessageTypeSnapshotUpdated, msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["version"])
	assert.Equal(t, float64(3), data["records"])
}

func TestApplication_Stop(t *testing.T) {
	cfg := testConfig(t)
	writeDefaultCSV(t, cfg)

	a, err := New(cfg, nil, discardLogger())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	require.NoError(t, a.Stop(context.Background()))
	assert.False(t, a.Refresher.Running())
	assert.Equal(t, 0, a.WebSocketHub.ClientCount())
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 0
	writeDefaultCSV(t, cfg)

	a, err := New(cfg, nil, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return a.Dashboard.Current().Version >= 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, a.Refresher.Running())
}

func TestApplication_allowedOrigins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.AllowedOrigins = []string{"https://kalpem.example.go.id", " ", ""}

	a := &Application{Config: cfg, Logger: discardLogger()}

	assert.Equal(t, []string{
		"http://localhost:8050",
		"http://127.0.0.1:8050",
		"https://kalpem.example.go.id",
	}, a.allowedOrigins())

	cors := a.getCORSConfig()
	assert.Equal(t, a.allowedOrigins(), cors.AllowedOrigins)
	assert.Contains(t, cors.ExposedHeaders, "Content-Disposition")
}

func TestApplication_performStartupHealthCheck(t *testing.T) {
	cfg := testConfig(t)
	paths := cfg.ResolvePaths()
	require.NoError(t, paths.EnsureDirectories())

	a := &Application{Config: cfg, Paths: paths, Logger: discardLogger()}

	err := a.performStartupHealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default data file not found")

	writeDefaultCSV(t, cfg)
	assert.NoError(t, a.performStartupHealthCheck(context.Background()))
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	t.Setenv(config.EnvPrefix+"_CONFIG_FILE", "")
	t.Setenv(config.EnvPrefix+"_LOGGING_LEVEL", "chatty")
	defer infrastructure.ResetLoggerForTesting()

	_, err := NewApplication(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
