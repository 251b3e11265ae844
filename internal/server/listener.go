package server

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// UnixPrefix selects a unix domain socket for Config.Addr, as in
// "unix:/run/cueline.sock".
const UnixPrefix = "unix:"

// listen binds addr. A unix socket left over from an earlier run is removed
// first and the new one is restricted to the owner.
func listen(addr string) (net.Listener, error) {
	path, ok := strings.CutPrefix(addr, UnixPrefix)
	if !ok {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("error listening: %w", err)
		}
		return l, nil
	}
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("error listening on unix socket: %w", err)
	}
	if err := setSocketPermissions(path); err != nil {
		l.Close()
		return nil, fmt.Errorf("error securing unix socket: %w", err)
	}
	return l, nil
}
