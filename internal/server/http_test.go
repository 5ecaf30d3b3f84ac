package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	captureservice "field-capture-ingest/internal/capture/service"
	deviceservice "field-capture-ingest/internal/deviceconfig/service"
	"field-capture-ingest/internal/domainevent/dispatch"
	healthhandler "field-capture-ingest/internal/health/handler"
	"field-capture-ingest/internal/legacy/migration"
	"field-capture-ingest/internal/messaging"
	"field-capture-ingest/internal/platform/backend"
	"field-capture-ingest/internal/platform/httperr"
	"field-capture-ingest/internal/security"
	"field-capture-ingest/internal/telemetry/metrics"
)

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, messaging.Message) error { return nil }
func (discardPublisher) Close() error                                     { return nil }

func newTestApp(t *testing.T, v *security.Verifier, legacyPing error) *fiber.App {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}
	b := backend.NewMemory()
	d := dispatch.NewDispatcher(discardPublisher{}, time.Second, nil, m)
	return NewApp(Deps{
		Captures:             captureservice.NewIngestService(b, migration.NewAdapter(), d, nil, m),
		DeviceConfigurations: deviceservice.NewDeviceConfigurationService(b, nil),
		Health: []healthhandler.Check{
			{Name: "primary_store", Ping: b.PingPrimary},
			{Name: "legacy_store", Ping: func(context.Context) error { return legacyPing }},
		},
		Verifier: v,
		Gatherer: reg,
	})
}

const captureBody = `{
	"id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
	"session_id": "9b2f3a1e-2c4d-4e5f-8a6b-7c8d9e0f1a2b",
	"lat": 10, "lon": 20,
	"image_url": "https://images.example.org/a.jpg",
	"gps_accuracy": 1, "abs_step_count": 2, "delta_step_count": 3,
	"rotation_matrix": [],
	"capture_taken_at": "2026-03-14T09:00:00Z"
}`

func send(t *testing.T, app *fiber.App, method, target, body, token string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(b)
}

func TestNewApp_OpenWithoutVerifier(t *testing.T) {
	app := newTestApp(t, nil, nil)

	if code, body := send(t, app, http.MethodPost, "/raw-captures", captureBody, ""); code != http.StatusCreated {
		t.Fatalf("POST /raw-captures = %d %s", code, body)
	}
	if code, _ := send(t, app, http.MethodGet, "/device-configurations", "", ""); code != http.StatusOK {
		t.Errorf("GET /device-configurations = %d", code)
	}

	code, body := send(t, app, http.MethodGet, "/metrics", "", "")
	if code != http.StatusOK || !strings.Contains(body, `capture_ingest_total{outcome="created"} 1`) {
		t.Errorf("GET /metrics = %d, body missing ingest counter:\n%s", code, body)
	}
}

func TestNewApp_AuthRequiredWhenVerifierSet(t *testing.T) {
	v, err := security.NewTestVerifier()
	if err != nil {
		t.Fatal(err)
	}
	token, err := security.SignTestToken(security.TestClaims("capture-app", time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	app := newTestApp(t, v, nil)

	testCases := []struct {
		name     string
		method   string
		target   string
		body     string
		token    string
		wantCode int
	}{
		{"capture without token", http.MethodPost, "/raw-captures", captureBody, "", http.StatusUnauthorized},
		{"capture list without token", http.MethodGet, "/raw-captures", "", "", http.StatusUnauthorized},
		{"device by id without token", http.MethodGet, "/device-configurations/1b4e28ba-2fa1-41d2-883f-0016d3cca427", "", "", http.StatusUnauthorized},
		{"capture with token", http.MethodPost, "/raw-captures", captureBody, token, http.StatusCreated},
		{"health stays public", http.MethodGet, "/health/live", "", "", http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if code, body := send(t, app, tc.method, tc.target, tc.body, tc.token); code != tc.wantCode {
				t.Errorf("%s %s = %d %s, want %d", tc.method, tc.target, code, body, tc.wantCode)
			}
		})
	}
}

func TestNewApp_ReadinessAndNotFound(t *testing.T) {
	app := newTestApp(t, nil, errors.New("connection refused"))

	code, body := send(t, app, http.MethodGet, "/health/ready", "", "")
	if code != http.StatusServiceUnavailable || !strings.Contains(body, "legacy_store") {
		t.Errorf("GET /health/ready = %d %s", code, body)
	}

	code, body = send(t, app, http.MethodGet, "/nope", "", "")
	var resp httperr.Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if code != http.StatusNotFound || resp.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d %+v", code, resp)
	}
}
