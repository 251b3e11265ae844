package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/warpdl/cueline/pkg/logger"
)

func guarded(secret string, l logger.Logger) http.Handler {
	rs := &RPCServer{secret: secret, log: l}
	return rs.authorize(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
}

func TestAuthorize(t *testing.T) {
	const secret = "test-secret-12345"
	tests := []struct {
		name    string
		secret  string
		target  string
		headers map[string]string
		want    int
	}{
		{"valid bearer", secret, "/jsonrpc", map[string]string{"Authorization": "Bearer " + secret}, http.StatusOK},
		{"lower-case scheme", secret, "/jsonrpc", map[string]string{"Authorization": "bearer " + secret}, http.StatusOK},
		{"missing header", secret, "/jsonrpc", nil, http.StatusUnauthorized},
		{"wrong token", secret, "/jsonrpc", map[string]string{"Authorization": "Bearer wrong-token"}, http.StatusUnauthorized},
		{"basic scheme", secret, "/jsonrpc", map[string]string{"Authorization": "Basic " + secret}, http.StatusUnauthorized},
		{"bare secret", secret, "/jsonrpc", map[string]string{"Authorization": secret}, http.StatusUnauthorized},
		{"empty secret", "", "/jsonrpc", map[string]string{"Authorization": "Bearer x"}, http.StatusUnauthorized},
		{"query token on upgrade", secret, "/jsonrpc/ws?token=" + secret, map[string]string{"Upgrade": "websocket"}, http.StatusOK},
		{"query token without upgrade", secret, "/jsonrpc?token=" + secret, nil, http.StatusUnauthorized},
		{"header wins over query", secret, "/jsonrpc/ws?token=" + secret, map[string]string{"Upgrade": "websocket", "Authorization": "Bearer nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			guarded(tt.secret, logger.NewNopLogger()).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestAuthorize_Rejection(t *testing.T) {
	mock := &logger.MockLogger{}
	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", nil)
	rr := httptest.NewRecorder()
	guarded("s3cret", mock).ServeHTTP(rr, req)

	if got := rr.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
		t.Errorf("expected a Bearer challenge, got %q", got)
	}
	var resp struct {
		JSONRPC string `json:"jsonrpc"`
		Error   struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		ID any `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.JSONRPC != "2.0" || resp.ID != nil {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	if resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected error code %d, got %d", codeUnauthorized, resp.Error.Code)
	}
	if resp.Error.Message != "Unauthorized: missing bearer token" {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
	if len(mock.WarningCalls) != 1 || !strings.Contains(mock.WarningCalls[0], "/jsonrpc") {
		t.Fatalf("expected one warning naming the path, got %v", mock.WarningCalls)
	}
}

func TestCheckToken(t *testing.T) {
	tests := []struct {
		secret, token string
		want          error
	}{
		{"secret", "secret", nil},
		{"secret", "wrong", errBadToken},
		{"secret", "", errMissingToken},
		{"", "", errMissingToken},
		{"", "secret", errBadToken},
	}
	for _, tt := range tests {
		if err := checkToken(tt.secret, tt.token); !errors.Is(err, tt.want) {
			t.Errorf("checkToken(%q, %q) = %v, want %v", tt.secret, tt.token, err, tt.want)
		}
	}
}
