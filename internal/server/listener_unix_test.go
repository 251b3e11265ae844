//go:build !windows

package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func shortSocketPath(t *testing.T) string {
	t.Helper()
	// unix socket paths are length-limited, t.TempDir can be too deep
	dir, err := os.MkdirTemp("", "cl")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "rpc.sock")
}

func TestListen_UnixSocket(t *testing.T) {
	path := shortSocketPath(t)
	// stale file from an earlier run
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	l, err := listen(UnixPrefix + path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		t.Fatalf("expected a socket at %s, got mode %v", path, info.Mode())
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Fatalf("expected permissions 0700, got %o", perm)
	}
}

func TestServer_ServesOverUnixSocket(t *testing.T) {
	path := shortSocketPath(t)
	srv, err := NewServer(&Config{
		Addr: UnixPrefix + path,
		RPC:  &RPCConfig{Secret: testSecret, Version: "2.0.0"},
	}, newTestSession(), nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	defer func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Start: %v", err)
		}
	}()

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}}
	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"system.getVersion"}`)
	req, _ := http.NewRequest(http.MethodPost, "http://cueline/jsonrpc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testSecret)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request over unix socket: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
