package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveRequestAggregatesByLabel(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/stats", 200, 10*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/stats", 200, 5*time.Millisecond)
	recorder.ObserveRequest("POST", "/api/auth", 201, time.Millisecond)

	var out strings.Builder
	recorder.Write(&out)
	body := out.String()

	if !strings.Contains(body, `gamebay_http_requests_total{method="GET",path="/api/stats",status="200"} 2`) {
		t.Fatalf("missing aggregated GET counter:\n%s", body)
	}
	if !strings.Contains(body, `gamebay_http_requests_total{method="POST",path="/api/auth",status="201"} 1`) {
		t.Fatalf("missing POST counter:\n%s", body)
	}
}

func TestNormalizePathCollapsesIdentifiers(t *testing.T) {
	cases := map[string]string{
		"/":                "/",
		"/api/stats":       "/api/stats",
		"/api/categories":  "/api/categories",
		"/api/users/41f2c8b0-aaaa-bbbb-cccc-000000000000": "/api/users/:id",
		"/api/730": "/api/:id",
		"/api/v2":  "/api/v2",
	}
	for input, want := range cases {
		if got := normalizePath(input); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestHandlerServesPrometheusText(t *testing.T) {
	recorder := New()
	recorder.ObserveSteamLookup("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); got != "text/plain; version=0.0.4" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), `gamebay_steam_lookups_total{outcome="ok"} 1`) {
		t.Fatalf("missing steam lookup counter:\n%s", rec.Body.String())
	}
}

func TestHTTPMiddlewareObservesStatus(t *testing.T) {
	recorder := New()
	handler := HTTPMiddleware(recorder, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var out strings.Builder
	recorder.Write(&out)
	if !strings.Contains(out.String(), `status="418"} 1`) {
		t.Fatalf("middleware did not record status:\n%s", out.String())
	}
}
