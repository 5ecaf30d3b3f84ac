package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type payload struct {
	ID    string  `json:"id" validate:"required,uuid"`
	Lat   float64 `json:"lat" validate:"gte=-90,lte=90"`
	Items []item  `json:"items" validate:"dive"`
}

type item struct {
	Key string `json:"key" validate:"required"`
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name string
		in   payload
		want []string
	}{
		{"valid", payload{ID: "0b4c8f52-5c1c-4bd4-9a8f-1b2c3d4e5f60", Lat: 10}, nil},
		{"missing id", payload{Lat: 10}, []string{`"id" is required`}},
		{"bad uuid and lat", payload{ID: "nope", Lat: 91}, []string{`"id" must be a valid GUID`, `"lat" must be less than or equal to 90`}},
		{"nested", payload{ID: "0b4c8f52-5c1c-4bd4-9a8f-1b2c3d4e5f60", Items: []item{{}}}, []string{`"items[0].key" is required`}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.in)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate err = %v, want ErrValidation", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q missing %q", err, w)
				}
			}
		})
	}
}

func TestHTTPError(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(http.StatusServiceUnavailable, "legacy store unavailable", cause)
	if !errors.Is(err, cause) {
		t.Error("HTTPError should unwrap to its cause")
	}
	var he *HTTPError
	if !errors.As(error(err), &he) || he.Code != http.StatusServiceUnavailable {
		t.Errorf("errors.As = %+v", he)
	}
	if New(http.StatusNotFound, "missing").Error() != "missing" {
		t.Error("Error() should be the message")
	}
}

func TestErrorHandler(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"http error", fmt.Errorf("handler: %w", New(http.StatusConflict, "capture is being created")), http.StatusConflict, "capture is being created"},
		{"validation", Validate(payload{Lat: 1}), http.StatusUnprocessableEntity, `"id" is required`},
		{"fiber error", fiber.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method Not Allowed"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "Unknown error (connection reset)"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
			app.Get("/", func(*fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantCode)
			}
			var body Response
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tc.wantCode || body.Message != tc.wantMsg {
				t.Errorf("body = %+v, want {%d %q}", body, tc.wantCode, tc.wantMsg)
			}
		})
	}
}

func TestErrorHandler_LogsStablePath(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
	app.Get("/*", func(*fiber.Ctx) error { return errors.New("boom") })

	for _, path := range []string{"/first", "/second-longer"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("app.Test(%s): %v", path, err)
		}
		resp.Body.Close()
	}

	entries := logs.FilterMessage("request failed").All()
	if len(entries) != 2 {
		t.Fatalf("logged %d failures, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["path"]; got != "/first" {
		t.Errorf("first failure path = %v, want /first", got)
	}
}
