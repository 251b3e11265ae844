package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// codeUnauthorized is reported in the body of a rejected request.
const codeUnauthorized = -32600

var (
	errMissingToken = errors.New("missing bearer token")
	errBadToken     = errors.New("invalid bearer token")
)

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type unauthorizedResponse struct {
	JSONRPC string       `json:"jsonrpc"`
	Error   rpcErrorBody `json:"error"`
	ID      *int         `json:"id"`
}

// authorize admits requests carrying the server secret as a bearer token.
// Others get 401 with a JSON-RPC error body and are logged.
func (rs *RPCServer) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := checkToken(rs.secret, requestToken(r)); err != nil {
			rs.log.Warning("rpc: rejected %s %s from %s: %s", r.Method, r.URL.Path, r.RemoteAddr, err.Error())
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="cueline"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(unauthorizedResponse{
				JSONRPC: "2.0",
				Error:   rpcErrorBody{Code: codeUnauthorized, Message: "Unauthorized: " + err.Error()},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestToken returns the token of an "Authorization: Bearer" header. A
// websocket upgrade without the header may carry it as ?token= since
// browsers cannot set headers on the handshake.
func requestToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			return r.URL.Query().Get("token")
		}
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// checkToken compares token with secret in constant time. An empty secret
// admits nothing.
func checkToken(secret, token string) error {
	if token == "" {
		return errMissingToken
	}
	if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return errBadToken
	}
	return nil
}
