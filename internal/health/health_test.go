package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeChecker struct{ healthy bool }

func (f fakeChecker) Healthy() bool { return f.healthy }

func TestHandlerHealthy(t *testing.T) {
	srv := httptest.NewServer(Handler(fakeChecker{healthy: true}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
}

func TestHandlerUnhealthy(t *testing.T) {
	srv := httptest.NewServer(Handler(fakeChecker{healthy: false}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("got status %d, want 503", resp.StatusCode)
	}
}
