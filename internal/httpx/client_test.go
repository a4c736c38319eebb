package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	clierr "solflow/internal/errors"
)

func TestDoJSONMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   clierr.Code
	}{
		{http.StatusTooManyRequests, clierr.CodeRateLimited},
		{http.StatusUnauthorized, clierr.CodeAuth},
		{http.StatusBadGateway, clierr.CodeNetwork},
		{http.StatusTeapot, clierr.CodeUnsupported},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		_, err := New(time.Second).DoJSON(context.Background(), req, nil)
		srv.Close()
		if clierr.CodeOf(err) != tc.want {
			t.Fatalf("status %d mapped to %v, want %v", tc.status, clierr.CodeOf(err), tc.want)
		}
	}
}

func TestDoJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := New(time.Second).DoJSON(context.Background(), req, &out); err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
	if out.Value != 42 {
		t.Fatalf("unexpected value: %d", out.Value)
	}
}
