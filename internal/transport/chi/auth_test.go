package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedHandler(apiKeys []string) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return BearerAuthMiddleware(apiKeys)(ok)
}

func doRequest(h http.Handler, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBearerAuth_DisabledWithoutKeys(t *testing.T) {
	h := authedHandler(nil)
	if rec := doRequest(h, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through without keys, got %d", rec.Code)
	}
}

func TestBearerAuth_ValidKey(t *testing.T) {
	h := authedHandler([]string{"secret"})
	if rec := doRequest(h, "/metrics", "Bearer secret"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	h := authedHandler([]string{"secret"})
	if rec := doRequest(h, "/metrics", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBearerAuth_WrongScheme(t *testing.T) {
	h := authedHandler([]string{"secret"})
	if rec := doRequest(h, "/metrics", "Basic secret"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBearerAuth_InvalidKey(t *testing.T) {
	h := authedHandler([]string{"secret"})
	if rec := doRequest(h, "/metrics", "Bearer wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBearerAuth_ExemptsHealthz(t *testing.T) {
	h := authedHandler([]string{"secret"})
	if rec := doRequest(h, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz exemption, got %d", rec.Code)
	}
}

func TestBearerAuth_EmptyKeyIgnored(t *testing.T) {
	h := authedHandler([]string{""})
	if rec := doRequest(h, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through when only empty keys configured, got %d", rec.Code)
	}
}
